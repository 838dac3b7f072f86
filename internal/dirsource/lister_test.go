package dirsource

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"testing"
	"time"

	"dirview/internal/fileitem"
	"dirview/internal/loop"

	"go.uber.org/zap"
)

type recorder struct {
	started   []string
	added     map[string][]string
	deleted   []string
	refreshed []string
	completed int
	canceled  int
	cleared   int
	errors    []string
	isFile    []string
	progress  []int
}

func newRecorder() *recorder { return &recorder{added: map[string][]string{}} }

func (r *recorder) Started(url string) { r.started = append(r.started, url) }
func (r *recorder) ItemsAdded(parent string, items []*fileitem.Item) {
	for _, it := range items {
		r.added[parent] = append(r.added[parent], it.Name())
	}
}
func (r *recorder) ItemsDeleted(items []*fileitem.Item) {
	for _, it := range items {
		r.deleted = append(r.deleted, it.Name())
	}
}
func (r *recorder) ItemsRefreshed(changes []Change) {
	for _, c := range changes {
		r.refreshed = append(r.refreshed, c.New.Name())
	}
}
func (r *recorder) Completed() { r.completed++ }
func (r *recorder) Canceled() { r.canceled++ }
func (r *recorder) Progress(p int) { r.progress = append(r.progress, p) }
func (r *recorder) Cleared() { r.cleared++ }
func (r *recorder) ErrorMessage(t string) { r.errors = append(r.errors, t) }
func (r *recorder) Redirected(_, _ string) {}
func (r *recorder) URLIsFile(url string) { r.isFile = append(r.isFile, url) }

func waitFor(t *testing.T, m *loop.Manual, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		m.Flush()
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached")
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	sort.Strings(out)
	return out
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestLister_ListsInBatchesAndHidesDotFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.txt", "b.txt", "c.txt", ".hidden")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	m := loop.NewManual(time.Now())
	rec := newRecorder()
	l := New(m, Options{BatchSize: 2, Logger: zap.NewNop()})
	l.SetEvents(rec)

	l.Open(dir, Reload)
	waitFor(t, m, func() bool { return rec.completed == 1 })

	root := fileitem.CleanURL(dir)
	if got, want := sorted(rec.added[root]), []string{"a.txt", "b.txt", "c.txt", "sub"}; !slices.Equal(got, want) {
		t.Fatalf("added %v want %v", got, want)
	}
	if rec.cleared != 1 || len(rec.started) != 1 {
		t.Fatalf("cleared=%d started=%v", rec.cleared, rec.started)
	}
	if len(rec.progress) == 0 || rec.progress[len(rec.progress)-1] != 100 {
		t.Fatalf("progress %v", rec.progress)
	}

	l.SetShowHidden(true)
	l.EmitChanges()
	if got := rec.added[root]; got[len(got)-1] != ".hidden" {
		t.Fatalf("expected .hidden to be added, got %v", got)
	}

	l.SetShowHidden(false)
	l.SetDirsOnly(true)
	l.EmitChanges()
	if got, want := sorted(rec.deleted), []string{".hidden", "a.txt", "b.txt", "c.txt"}; !slices.Equal(got, want) {
		t.Fatalf("deleted %v want %v", got, want)
	}
}

func TestLister_RescanReportsDifferences(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "keep", "gone", "grow")

	m := loop.NewManual(time.Now())
	rec := newRecorder()
	l := New(m, Options{Logger: zap.NewNop()})
	l.SetEvents(rec)
	l.Open(dir, Reload)
	waitFor(t, m, func() bool { return rec.completed == 1 })

	if err := os.Remove(filepath.Join(dir, "gone")); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, dir, "new")
	if err := os.WriteFile(filepath.Join(dir, "grow"), []byte("much longer content"), 0o644); err != nil {
		t.Fatal(err)
	}

	l.Rescan(dir)
	waitFor(t, m, func() bool { return len(rec.deleted) > 0 && len(rec.refreshed) > 0 })

	root := fileitem.CleanURL(dir)
	if !slices.Equal(rec.deleted, []string{"gone"}) {
		t.Fatalf("deleted %v", rec.deleted)
	}
	if !slices.Contains(rec.added[root], "new") {
		t.Fatalf("new file not reported: %v", rec.added[root])
	}
	if !slices.Equal(rec.refreshed, []string{"grow"}) {
		t.Fatalf("refreshed %v", rec.refreshed)
	}
}

func TestLister_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "file")

	m := loop.NewManual(time.Now())
	rec := newRecorder()
	l := New(m, Options{Logger: zap.NewNop()})
	l.SetEvents(rec)

	l.Open(filepath.Join(dir, "file"), Reload)
	waitFor(t, m, func() bool { return rec.canceled == 1 })
	if len(rec.isFile) != 1 {
		t.Fatalf("expected url-is-file, got %v", rec.isFile)
	}

	l.Open(filepath.Join(dir, "missing"), Reload)
	waitFor(t, m, func() bool { return rec.canceled == 2 })
	if len(rec.errors) != 1 {
		t.Fatalf("expected one error message, got %v", rec.errors)
	}
}

func TestLister_StopCancelsRunningListing(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a")

	m := loop.NewManual(time.Now())
	rec := newRecorder()
	l := New(m, Options{Logger: zap.NewNop()})
	l.SetEvents(rec)

	l.Open(dir, Reload)
	l.Stop(dir)
	if rec.canceled != 1 {
		t.Fatalf("expected cancel, got %d", rec.canceled)
	}
	// Late results of the stopped listing are dropped.
	time.Sleep(20 * time.Millisecond)
	m.Flush()
	if rec.completed != 0 || len(rec.added) != 0 {
		t.Fatalf("stopped listing still reported: completed=%d added=%v", rec.completed, rec.added)
	}
}

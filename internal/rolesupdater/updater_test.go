package rolesupdater

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"dirview/internal/dircount"
	"dirview/internal/dirsource"
	"dirview/internal/fileitem"
	"dirview/internal/loop"
	"dirview/internal/model"
	"dirview/internal/preview"
	"dirview/internal/role"

	"go.uber.org/zap"
)

var testNow = time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC)

type fakeLister struct {
	events     dirsource.Events
	url        string
	showHidden bool
	dirsOnly   bool
}

func (f *fakeLister) SetEvents(e dirsource.Events) { f.events = e }

func (f *fakeLister) Open(url string, mode dirsource.OpenMode) {
	url = path.Clean(url)
	if mode == dirsource.Reload {
		f.url = url
		f.events.Cleared()
	}
	f.events.Started(url)
}

func (f *fakeLister) Stop(string) {}
func (f *fakeLister) StopAll() { f.events.Canceled() }
func (f *fakeLister) URL() string { return f.url }
func (f *fakeLister) ShowHidden() bool { return f.showHidden }
func (f *fakeLister) SetShowHidden(show bool) { f.showHidden = show }
func (f *fakeLister) DirsOnly() bool { return f.dirsOnly }
func (f *fakeLister) SetDirsOnly(dirsOnly bool) { f.dirsOnly = dirsOnly }
func (f *fakeLister) EmitChanges() {}

type scan struct {
	path     string
	priority dircount.Priority
}

type fakeCounter struct {
	onResult func(dircount.Result)
	flags    dircount.Flags
	scans    []scan
	stops    int
}

func (c *fakeCounter) SetOnResult(fn func(dircount.Result)) { c.onResult = fn }
func (c *fakeCounter) SetFlags(f dircount.Flags) { c.flags = f }
func (c *fakeCounter) ScanDirectory(path string, p dircount.Priority) {
	c.scans = append(c.scans, scan{path, p})
}
func (c *fakeCounter) Stop() { c.stops++ }

type fakeJob struct {
	req    preview.Request
	h      preview.Handlers
	killed bool
}

func (j *fakeJob) Kill() { j.killed = true }

type fakePreviews struct{ jobs []*fakeJob }

func (f *fakePreviews) start(req preview.Request, h preview.Handlers) PreviewJob {
	j := &fakeJob{req: req, h: h}
	f.jobs = append(f.jobs, j)
	return j
}

type progressRecorder struct {
	model.BaseObserver
	progress []int
}

func (r *progressRecorder) DirectorySortingProgress(p int) { r.progress = append(r.progress, p) }

type harness struct {
	t        *testing.T
	sched    *loop.Manual
	lister   *fakeLister
	model    *model.Model
	counter  *fakeCounter
	previews *fakePreviews
	rec      *progressRecorder
	updater  *Updater
}

func newHarness(t *testing.T, roles ...string) *harness {
	t.Helper()
	sched := loop.NewManual(testNow)
	l := &fakeLister{}
	m := model.New(sched, l, zap.NewNop())
	m.SetRoles(role.NewSet(roles...))
	rec := &progressRecorder{}
	m.Subscribe(rec)
	return &harness{
		t:        t,
		sched:    sched,
		lister:   l,
		model:    m,
		counter:  &fakeCounter{},
		previews: &fakePreviews{},
		rec:      rec,
	}
}

// attach creates the updater. sched defaults to the model's scheduler.
func (h *harness) attach(sched loop.Scheduler) *Updater {
	if sched == nil {
		sched = h.sched
	}
	h.updater = New(sched, h.model, Options{
		Counter:      h.counter,
		StartPreview: h.previews.start,
		Logger:       zap.NewNop(),
	})
	h.updater.SetRoles(h.model.Roles())
	h.t.Cleanup(h.updater.Close)
	return h.updater
}

func (h *harness) load(url string, items ...*fileitem.Item) {
	h.model.Load(url)
	h.lister.events.ItemsAdded(url, items)
	h.lister.events.Completed()
	h.sched.Flush()
}

func (h *harness) texts() []string {
	out := make([]string, h.model.Count())
	for i := range out {
		out[i] = h.model.Item(i).Text()
	}
	return out
}

func file(url string, size int64) *fileitem.Item {
	return fileitem.New(fileitem.Attrs{URL: url, Size: size, ModTime: testNow})
}

func dir(url string) *fileitem.Item {
	return fileitem.New(fileitem.Attrs{URL: url, Dir: true, ModTime: testNow})
}

// tickingScheduler advances its clock on every Now call.
type tickingScheduler struct {
	*loop.Manual
	now  time.Time
	step time.Duration
}

func (s *tickingScheduler) Now() time.Time {
	s.now = s.now.Add(s.step)
	return s.now
}

func TestItemsInserted_ResolvesAllRoles(t *testing.T) {
	h := newHarness(t, role.Text, role.Type, role.IsExpandable)
	u := h.attach(nil)
	h.load("/d", file("/d/a.txt", 3), file("/d/b.md", 5), dir("/d/sub"))

	for i := range h.model.Count() {
		it := h.model.Item(i)
		d := h.model.Data(i)
		if d[role.IconName] != it.IconName() {
			t.Fatalf("%s: iconName = %v, want %s", it.Name(), d[role.IconName], it.IconName())
		}
		if d[role.Type] != it.MimeComment() {
			t.Fatalf("%s: type = %v, want %s", it.Name(), d[role.Type], it.MimeComment())
		}
	}
	if u.State() != Idle {
		t.Fatalf("state = %v, want idle", u.State())
	}

	if len(h.counter.scans) != 1 || h.counter.scans[0].path != "/d/sub" {
		t.Fatalf("scans = %+v", h.counter.scans)
	}
	if h.counter.flags != (dircount.Flags{}) {
		t.Fatalf("flags = %+v", h.counter.flags)
	}
	i := h.model.Index("/d/sub")
	if h.model.Data(i)[role.IsExpandable] != false {
		t.Fatalf("isExpandable while counting = %v", h.model.Data(i)[role.IsExpandable])
	}
	h.counter.onResult(dircount.Result{Path: "/d/sub", Count: 3, Size: -1})
	if h.model.Data(i)[role.IsExpandable] != true {
		t.Fatalf("isExpandable after counting = %v", h.model.Data(i)[role.IsExpandable])
	}
}

func TestSortBySize_CountsDirectories(t *testing.T) {
	h := newHarness(t, role.Text, role.Size)
	h.model.SetSortRole(role.Size, true)
	h.attach(nil)
	h.load("/d", file("/d/x.txt", 10), file("/d/y.txt", 2), dir("/d/big"), dir("/d/small"))

	if len(h.counter.scans) != 2 {
		t.Fatalf("scans = %+v, want one per directory", h.counter.scans)
	}
	if got := h.rec.progress; len(got) == 0 || got[len(got)-1] != 100 {
		t.Fatalf("sort progress = %v", got)
	}

	h.counter.onResult(dircount.Result{Path: "/d/big", Count: 5, Size: -1})
	h.counter.onResult(dircount.Result{Path: "/d/small", Count: 1, Size: -1})
	h.sched.Advance(model.ResortAllItemsDelay)

	want := []string{"small", "big", "y.txt", "x.txt"}
	if got := h.texts(); !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if c := h.model.Data(0)[role.Count]; c != 1 {
		t.Fatalf("count = %v", c)
	}
	if err := h.model.IsConsistent(); err != nil {
		t.Fatal(err)
	}
}

func TestSortRole_ResolvedInTimeBoxedSteps(t *testing.T) {
	h := newHarness(t, role.Text, role.Size)
	h.model.SetSortRole(role.Size, true)
	// Every clock read takes 150ms, so one item fits into the first pass.
	ticking := &tickingScheduler{Manual: h.sched, now: testNow, step: 150 * time.Millisecond}
	u := h.attach(ticking)
	h.load("/d", dir("/d/a"), dir("/d/b"), dir("/d/c"))

	if want := []int{33, 66, 100}; !slices.Equal(h.rec.progress, want) {
		t.Fatalf("sort progress = %v, want %v", h.rec.progress, want)
	}
	if len(h.counter.scans) != 3 {
		t.Fatalf("scans = %+v", h.counter.scans)
	}
	for i := range h.model.Count() {
		if size := h.model.Data(i)[role.Size]; size != int64(SizeCounting) {
			t.Fatalf("%s: size = %v while counting", h.model.Item(i).Name(), size)
		}
	}
	if u.State() == ResolvingSortRole {
		t.Fatalf("still resolving the sort role")
	}
	if err := h.model.IsConsistent(); err != nil {
		t.Fatal(err)
	}
}

func TestPreviews_GotAndFailed(t *testing.T) {
	h := newHarness(t, role.Text)
	u := h.attach(nil)
	u.SetPreviewsShown(true)
	h.load("/d", file("/d/a.png", 1), file("/d/b.txt", 1), file("/d/c.md", 1))

	if len(h.previews.jobs) != 1 {
		t.Fatalf("%d jobs started", len(h.previews.jobs))
	}
	job := h.previews.jobs[0]
	if len(job.req.Items) != 3 || job.req.Size != 128 || !job.req.IgnoreMaximumSize {
		t.Fatalf("request = %+v", job.req)
	}
	for _, it := range job.req.Items {
		if !it.IsMimeTypeKnown() {
			t.Fatalf("%s passed without a MIME type", it.Name())
		}
	}

	p := preview.Preview{Kind: preview.Text, Width: 16, Height: 1, Lines: []string{"hi"}}
	job.h.OnGot(job.req.Items[0], p)
	job.h.OnFailed(job.req.Items[1])
	job.h.OnFinished()

	if !hasPreview(h.model.Data(0)) {
		t.Fatalf("no preview for %s", h.model.Item(0).Name())
	}
	d := h.model.Data(1)
	if hasPreview(d) || d[role.IconName] == nil {
		t.Fatalf("failed item = %v", d)
	}
	if u.State() != Idle {
		t.Fatalf("state = %v", u.State())
	}
}

func TestSetPaused_KillsJobAndReplaysChanges(t *testing.T) {
	h := newHarness(t, role.Text)
	u := h.attach(nil)
	u.SetPreviewsShown(true)
	h.load("/d", file("/d/a.png", 1), file("/d/b.png", 1))
	first := h.previews.jobs[0]

	u.SetPaused(true)
	if !first.killed || !u.IsPaused() {
		t.Fatalf("pausing must kill the job (killed=%v, paused=%v)", first.killed, u.IsPaused())
	}
	// A late result of the killed job is dropped.
	first.h.OnGot(first.req.Items[0], preview.Preview{Kind: preview.Text, Lines: []string{"x"}})
	if hasPreview(h.model.Data(0)) {
		t.Fatalf("killed job wrote a preview")
	}

	u.SetIconSize(200)
	if len(h.previews.jobs) != 1 {
		t.Fatalf("job started while paused")
	}
	u.SetPaused(false)
	if len(h.previews.jobs) != 2 {
		t.Fatalf("%d jobs after resume", len(h.previews.jobs))
	}
	if got := h.previews.jobs[1].req.Size; got != 256 {
		t.Fatalf("preview size = %d, want 256", got)
	}
}

func TestPreviewsShownOff_ClearsPreviews(t *testing.T) {
	h := newHarness(t, role.Text)
	u := h.attach(nil)
	u.SetPreviewsShown(true)
	h.load("/d", file("/d/a.png", 1), file("/d/b.png", 1))
	job := h.previews.jobs[0]
	job.h.OnGot(job.req.Items[0], preview.Preview{Kind: preview.Text, Lines: []string{"x"}})
	if !hasPreview(h.model.Data(0)) {
		t.Fatalf("preview not set")
	}

	u.SetPreviewsShown(false)
	h.sched.Flush()
	if !job.killed {
		t.Fatalf("running job not killed")
	}
	for i := range h.model.Count() {
		if hasPreview(h.model.Data(i)) {
			t.Fatalf("%s keeps its preview", h.model.Item(i).Name())
		}
	}
	if u.clearPreviews {
		t.Fatalf("clearPreviews still set")
	}
}

func TestWithoutPreviewBackend_ItemsStillResolve(t *testing.T) {
	h := newHarness(t, role.Text, role.Type)
	u := New(h.sched, h.model, Options{Logger: zap.NewNop()})
	t.Cleanup(u.Close)
	u.SetRoles(h.model.Roles())
	u.SetPreviewsShown(true)
	h.load("/d", file("/d/a.png", 1), file("/d/b.txt", 1))

	for i := range h.model.Count() {
		d := h.model.Data(i)
		if d[role.IconName] == nil || d[role.Type] == nil {
			t.Fatalf("%s unresolved: %v", h.model.Item(i).Name(), d)
		}
	}
	if u.State() != Idle {
		t.Fatalf("state = %v", u.State())
	}
}

func TestItemsChanged_Debounced(t *testing.T) {
	h := newHarness(t, role.Text, role.IsExpandable)
	h.attach(nil)
	h.load("/d", dir("/d/sub"), file("/d/f.txt", 1))
	if len(h.counter.scans) != 1 {
		t.Fatalf("scans after load = %d", len(h.counter.scans))
	}

	refresh := func() {
		old := h.model.ItemForURL("/d/sub")
		h.lister.events.ItemsRefreshed([]dirsource.Change{{Old: old, New: dir("/d/sub")}})
	}

	refresh()
	h.sched.Flush()
	if len(h.counter.scans) != 2 {
		t.Fatalf("first change not resolved at once: %d scans", len(h.counter.scans))
	}

	refresh()
	h.sched.Flush()
	if len(h.counter.scans) != 2 {
		t.Fatalf("repeated change resolved before the delay")
	}
	h.sched.Advance(recentlyChangedDelay)
	if len(h.counter.scans) != 3 {
		t.Fatalf("repeated change not resolved after the delay: %d scans", len(h.counter.scans))
	}
}

func TestVisibleDirectoriesCountedFirst(t *testing.T) {
	h := newHarness(t, role.Text, role.IsExpandable)
	h.load("/d", dir("/d/a"), dir("/d/b"), dir("/d/c"))
	u := h.attach(nil)

	u.SetVisibleIndexRange(2, 1)
	h.sched.Flush()
	want := []scan{{"/d/c", dircount.High}, {"/d/b", dircount.Normal}, {"/d/a", dircount.Normal}}
	if !slices.Equal(h.counter.scans, want) {
		t.Fatalf("scans = %+v, want %+v", h.counter.scans, want)
	}
}

func TestIndexesToResolve(t *testing.T) {
	h := newHarness(t, role.Text)
	h.model.SetSortDirectoriesFirst(false)
	var items []*fileitem.Item
	for i := range 1000 {
		url := fmt.Sprintf("/d/f%04d", i)
		if i == 503 {
			items = append(items, dir(url))
		} else {
			items = append(items, file(url, 1))
		}
	}
	h.load("/d", items...)
	u := h.attach(nil)

	u.maximumVisibleItems = 10
	u.firstVisible, u.lastVisible = 500, 509
	got := u.indexesToResolve()

	var want []int
	for i := 500; i <= 509; i++ {
		if i != 503 {
			want = append(want, i)
		}
	}
	want = append(want, 503)
	for i := 510; i < 560; i++ {
		want = append(want, i)
	}
	for i := 499; i >= 450; i-- {
		want = append(want, i)
	}
	for i := 990; i < 1000; i++ {
		want = append(want, i)
	}
	for i := range 10 {
		want = append(want, i)
	}
	for i := 560; i < 930; i++ {
		want = append(want, i)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("indexesToResolve returned %d indexes, starting %v", len(got), got[:min(len(got), 12)])
	}
	if len(got) != ResolveAllItemsLimit {
		t.Fatalf("len = %d", len(got))
	}
}

func TestImageRoles(t *testing.T) {
	p := filepath.Join(t.TempDir(), "pic.png")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 30, 10))); err != nil {
		t.Fatal(err)
	}
	f.Close()
	it, err := fileitem.FromPath(p)
	if err != nil {
		t.Fatal(err)
	}

	h := newHarness(t, role.Text, role.Dimensions, role.Width)
	h.attach(nil)
	h.load(filepath.Dir(p), it)

	d := h.model.Data(0)
	if d[role.Dimensions] != (model.Dimensions{Width: 30, Height: 10}) || d[role.Width] != 30 {
		t.Fatalf("image roles = %v", d)
	}
}

func TestAllItemsRemoved_Resets(t *testing.T) {
	h := newHarness(t, role.Text)
	u := h.attach(nil)
	h.load("/d", file("/d/a.txt", 1))
	h.load("/e")

	if h.model.Count() != 0 || u.State() != Idle || len(u.finished) != 0 {
		t.Fatalf("count=%d state=%v finished=%d", h.model.Count(), u.State(), len(u.finished))
	}
	if h.counter.stops == 0 {
		t.Fatalf("counter not stopped")
	}
}

func TestClose_Detaches(t *testing.T) {
	h := newHarness(t, role.Text, role.Type)
	u := h.attach(nil)
	u.Close()
	h.load("/d", file("/d/a.txt", 1))
	if _, ok := h.model.Data(0)[role.Type]; ok {
		t.Fatalf("closed updater resolved roles")
	}
}

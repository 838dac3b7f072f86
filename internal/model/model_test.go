package model

import (
	"fmt"
	"path"
	"slices"
	"testing"
	"time"

	"dirview/internal/dirsource"
	"dirview/internal/fileitem"
	"dirview/internal/loop"
	"dirview/internal/rangeset"
	"dirview/internal/role"

	"go.uber.org/zap"
)

type openCall struct {
	url  string
	mode dirsource.OpenMode
}

// fakeLister records what the model asks for; tests push events through
// events directly.
type fakeLister struct {
	events     dirsource.Events
	url        string
	opened     []openCall
	stopped    []string
	showHidden bool
	dirsOnly   bool
	emits      int
}

func (f *fakeLister) SetEvents(e dirsource.Events) { f.events = e }

func (f *fakeLister) Open(url string, mode dirsource.OpenMode) {
	url = path.Clean(url)
	f.opened = append(f.opened, openCall{url, mode})
	if mode == dirsource.Reload {
		f.url = url
		f.events.Cleared()
	}
	f.events.Started(url)
}

func (f *fakeLister) Stop(url string) { f.stopped = append(f.stopped, url) }
func (f *fakeLister) StopAll() { f.events.Canceled() }
func (f *fakeLister) URL() string { return f.url }
func (f *fakeLister) ShowHidden() bool { return f.showHidden }
func (f *fakeLister) SetShowHidden(show bool) { f.showHidden = show }
func (f *fakeLister) DirsOnly() bool { return f.dirsOnly }
func (f *fakeLister) SetDirsOnly(dirsOnly bool) { f.dirsOnly = dirsOnly }
func (f *fakeLister) EmitChanges() { f.emits++ }

type movedCall struct {
	moved     rangeset.Range
	positions []int
}

type changedCall struct {
	ranges rangeset.List
	roles  role.Set
}

type recorder struct {
	BaseObserver
	inserted       []rangeset.List
	removed        []rangeset.List
	moved          []movedCall
	changed        []changedCall
	groups         int
	completed      int
	canceled       int
	removedCurrent int
	errors         []string
	progress       []int
}

func (r *recorder) ItemsInserted(l rangeset.List) { r.inserted = append(r.inserted, l) }
func (r *recorder) ItemsRemoved(l rangeset.List) { r.removed = append(r.removed, l) }
func (r *recorder) ItemsMoved(moved rangeset.Range, positions []int) {
	r.moved = append(r.moved, movedCall{moved, positions})
}
func (r *recorder) ItemsChanged(l rangeset.List, roles role.Set) {
	r.changed = append(r.changed, changedCall{l, roles})
}
func (r *recorder) GroupsChanged() { r.groups++ }
func (r *recorder) DirectoryLoadingCompleted() { r.completed++ }
func (r *recorder) DirectoryLoadingCanceled() { r.canceled++ }
func (r *recorder) CurrentDirectoryRemoved() { r.removedCurrent++ }
func (r *recorder) ErrorMessage(text string) { r.errors = append(r.errors, text) }
func (r *recorder) DirectorySortingProgress(p int) { r.progress = append(r.progress, p) }

var testNow = time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) (*Model, *fakeLister, *loop.Manual, *recorder) {
	t.Helper()
	sched := loop.NewManual(testNow)
	l := &fakeLister{}
	m := New(sched, l, zap.NewNop())
	rec := &recorder{}
	m.Subscribe(rec)
	return m, l, sched, rec
}

func file(url string, size int64) *fileitem.Item {
	return fileitem.New(fileitem.Attrs{URL: url, Size: size, ModTime: testNow})
}

func dir(url string) *fileitem.Item {
	return fileitem.New(fileitem.Attrs{URL: url, Dir: true, ModTime: testNow})
}

func texts(m *Model) []string {
	out := make([]string, m.Count())
	for i := range out {
		out[i] = m.Item(i).Text()
	}
	return out
}

func load(m *Model, l *fakeLister, url string, items ...*fileitem.Item) {
	m.Load(url)
	l.events.ItemsAdded(url, items)
	l.events.Completed()
}

func assertConsistent(t *testing.T, m *Model) {
	t.Helper()
	if err := m.IsConsistent(); err != nil {
		t.Fatalf("inconsistent: %v", err)
	}
}

func TestLoad_SortsAndInsertsOnce(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	load(m, l, "/d", file("/d/c.txt", 1), file("/d/a.txt", 1), file("/d/b.txt", 1))

	if got, want := texts(m), []string{"a.txt", "b.txt", "c.txt"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if len(rec.inserted) != 1 || !slices.Equal(rec.inserted[0], rangeset.List{{Index: 0, Count: 3}}) {
		t.Fatalf("inserted = %v, want one [0,3)", rec.inserted)
	}
	if rec.completed != 1 {
		t.Fatalf("completed = %d", rec.completed)
	}
	for i := 0; i < m.Count(); i++ {
		if got := m.Index(m.Item(i).URL()); got != i {
			t.Fatalf("Index(item %d) = %d", i, got)
		}
	}
	assertConsistent(t, m)
}

func TestInsert_MergesIntoExistingWithMinimalRanges(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	load(m, l, "/d", file("/d/b", 1), file("/d/d", 1), file("/d/f", 1))

	l.events.ItemsAdded("/d", []*fileitem.Item{file("/d/a", 1), file("/d/e", 1), file("/d/c", 1), file("/d/g", 1)})
	l.events.Completed()

	if got, want := texts(m), []string{"a", "b", "c", "d", "e", "f", "g"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	want := rangeset.List{{Index: 0, Count: 1}, {Index: 1, Count: 1}, {Index: 2, Count: 1}, {Index: 3, Count: 1}}
	if got := rec.inserted[len(rec.inserted)-1]; !slices.Equal(got, want) {
		t.Fatalf("inserted = %v, want %v", got, want)
	}
	assertConsistent(t, m)
}

func TestInsert_BufferedUntilThrottleFires(t *testing.T) {
	m, l, sched, rec := newTestModel(t)
	m.Load("/d")
	l.events.ItemsAdded("/d", []*fileitem.Item{file("/d/a", 1)})
	if m.Count() != 0 {
		t.Fatalf("items shown before the update interval")
	}
	sched.Advance(MaximumUpdateInterval / 2)
	l.events.ItemsAdded("/d", []*fileitem.Item{file("/d/b", 1)})
	sched.Advance(MaximumUpdateInterval / 2)
	if m.Count() != 2 || len(rec.inserted) != 1 {
		t.Fatalf("count = %d inserted = %v", m.Count(), rec.inserted)
	}
}

func TestInsert_FirstFullBatchShownImmediately(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	m.Load("/big")
	items := make([]*fileitem.Item, 2500)
	for i := range items {
		items[i] = file(fmt.Sprintf("/big/f%04d", 2499-i), 1)
	}
	l.events.ItemsAdded("/big", items)

	if m.Count() != 2500 {
		t.Fatalf("count = %d before completion", m.Count())
	}
	if !slices.Equal(rec.inserted[0], rangeset.List{{Index: 0, Count: 2500}}) {
		t.Fatalf("inserted = %v", rec.inserted[0])
	}
	if got := m.Index("/big/f0000"); got != 0 {
		t.Fatalf("Index(f0000) = %d", got)
	}
	if m.indexed != indexBlockSize {
		t.Fatalf("indexed = %d, want one block", m.indexed)
	}
	if got := m.Index("/big/f2499"); got != 2499 {
		t.Fatalf("Index(f2499) = %d", got)
	}
	if got := m.Index("/big/missing"); got != -1 {
		t.Fatalf("Index(missing) = %d", got)
	}
	assertConsistent(t, m)
}

func TestSortRole_ValueChangeMovesItem(t *testing.T) {
	m, l, sched, rec := newTestModel(t)
	m.SetRoles(role.NewSet(role.Text, role.IsDir, role.IsLink, role.IsHidden, role.Rating))
	load(m, l, "/d", file("/d/a", 1), file("/d/b", 1), file("/d/c", 1))
	for i, rating := range []int{2, 4, 6} {
		m.SetData(i, Values{role.Rating: rating})
	}

	m.SetSortRole(role.Rating, true)
	if len(rec.moved) != 0 {
		t.Fatalf("moved = %v, ratings already in order", rec.moved)
	}

	m.SetData(m.Index("/d/a"), Values{role.Rating: 8})
	if got := texts(m); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("resorted synchronously: %v", got)
	}
	sched.Advance(ResortAllItemsDelay)

	if got, want := texts(m), []string{"b", "c", "a"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if len(rec.moved) != 1 {
		t.Fatalf("moved = %v", rec.moved)
	}
	mv := rec.moved[0]
	if mv.moved != (rangeset.Range{Index: 0, Count: 3}) || !slices.Equal(mv.positions, []int{2, 0, 1}) {
		t.Fatalf("moved = %+v", mv)
	}
	assertConsistent(t, m)
}

func TestSetData_InOrderChangeDoesNotResort(t *testing.T) {
	m, l, sched, rec := newTestModel(t)
	m.SetSortRole(role.Rating, false)
	load(m, l, "/d", file("/d/a", 1), file("/d/b", 1))
	m.SetData(0, Values{role.Rating: 1})
	m.SetData(1, Values{role.Rating: 3})
	sched.Advance(ResortAllItemsDelay)
	rec.moved = nil

	m.SetData(0, Values{role.Rating: 2})
	sched.Advance(ResortAllItemsDelay)
	if len(rec.moved) != 0 {
		t.Fatalf("moved = %v", rec.moved)
	}
	if m.SetData(0, Values{role.Rating: 2}) {
		t.Fatalf("SetData with equal values reported a change")
	}
	if m.SetData(5, Values{role.Rating: 2}) {
		t.Fatalf("SetData out of range reported a change")
	}
}

func TestSetData_RenameMovesURL(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	load(m, l, "/d", file("/d/a", 1), file("/d/b", 1))
	m.SetData(0, Values{role.Text: "z"})

	if got := m.Index("/d/z"); got < 0 {
		t.Fatalf("renamed item not found")
	}
	last := rec.changed[len(rec.changed)-1]
	if !last.roles.Has(role.Text) || !last.roles.Has(role.URL) {
		t.Fatalf("changed roles = %v", last.roles.Sorted())
	}
}

func expandable(t *testing.T, m *Model) {
	t.Helper()
	m.SetRoles(role.NewSet(role.Text, role.IsDir, role.IsLink, role.IsHidden, role.IsExpandable, role.ExpandedParentsCount))
}

func TestExpandCollapse(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	expandable(t, m)
	load(m, l, "/r", dir("/r/a"), dir("/r/c"), file("/r/x.txt", 1))

	if !m.SetExpanded(0, true) {
		t.Fatalf("expand failed")
	}
	if m.SetExpanded(0, true) {
		t.Fatalf("expanding twice succeeded")
	}
	if got := l.opened[len(l.opened)-1]; got != (openCall{"/r/a", dirsource.Keep}) {
		t.Fatalf("opened = %+v", got)
	}
	l.events.ItemsAdded("/r/a", []*fileitem.Item{file("/r/a/f", 1), dir("/r/a/b")})
	l.events.Completed()

	if got, want := texts(m), []string{"a", "b", "f", "c", "x.txt"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if got := rec.inserted[len(rec.inserted)-1]; !slices.Equal(got, rangeset.List{{Index: 1, Count: 2}}) {
		t.Fatalf("inserted = %v", got)
	}
	if m.ExpandedParentsCount(1) != 1 || m.ExpandedParentsCount(0) != 0 {
		t.Fatalf("levels = %d %d", m.ExpandedParentsCount(0), m.ExpandedParentsCount(1))
	}
	assertConsistent(t, m)

	// Expand a/b as well, then collapse a.
	m.SetExpanded(1, true)
	l.events.ItemsAdded("/r/a/b", []*fileitem.Item{file("/r/a/b/deep", 1)})
	l.events.Completed()
	if got, want := texts(m), []string{"a", "b", "deep", "f", "c", "x.txt"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if got := m.ExpandedDirectories(); !slices.Equal(got, []string{"/r/a", "/r/a/b"}) {
		t.Fatalf("expanded = %v", got)
	}

	if !m.SetExpanded(0, false) {
		t.Fatalf("collapse failed")
	}
	if got := rec.removed[len(rec.removed)-1]; !slices.Equal(got, rangeset.List{{Index: 1, Count: 3}}) {
		t.Fatalf("removed = %v", got)
	}
	if got, want := texts(m), []string{"a", "c", "x.txt"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if !slices.Contains(l.stopped, "/r/a") || !slices.Contains(l.stopped, "/r/a/b") {
		t.Fatalf("stopped = %v", l.stopped)
	}
	if len(m.ExpandedDirectories()) != 0 {
		t.Fatalf("expanded = %v", m.ExpandedDirectories())
	}
	if m.SetExpanded(0, false) {
		t.Fatalf("collapsing a collapsed item succeeded")
	}
	if m.SetExpanded(2, true) {
		t.Fatalf("expanding a file succeeded")
	}

	// Expanding again restores the expanded grandchild once it is listed.
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/a", []*fileitem.Item{dir("/r/a/b"), file("/r/a/f", 1)})
	completed := rec.completed
	l.events.Completed()
	if rec.completed != completed {
		t.Fatalf("completion reported while restoring expansion")
	}
	if got := l.opened[len(l.opened)-1]; got != (openCall{"/r/a/b", dirsource.Keep}) {
		t.Fatalf("opened = %+v", got)
	}
	assertConsistent(t, m)
}

func TestExpand_DuplicateChildrenIgnored(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	expandable(t, m)
	load(m, l, "/r", dir("/r/a"))
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/a", []*fileitem.Item{file("/r/a/f", 1)})
	l.events.Completed()
	l.events.ItemsAdded("/r/a", []*fileitem.Item{file("/r/a/f", 1)})
	l.events.Completed()
	if m.Count() != 2 {
		t.Fatalf("count = %d", m.Count())
	}
}

func TestFilter_KeepsAncestorsOfMatchesAndRestores(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	expandable(t, m)
	load(m, l, "/r", dir("/r/a"), dir("/r/c"), file("/r/x.txt", 1))
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/a", []*fileitem.Item{dir("/r/a/b"), file("/r/a/f", 1)})
	l.events.Completed()
	m.SetExpanded(1, true)
	l.events.ItemsAdded("/r/a/b", []*fileitem.Item{file("/r/a/b/notes-xyz.txt", 1)})
	l.events.Completed()
	before := texts(m)

	m.SetNameFilter("xyz")
	if got, want := texts(m), []string{"a", "b", "notes-xyz.txt"}; !slices.Equal(got, want) {
		t.Fatalf("filtered = %v, want %v", got, want)
	}
	if got := rec.removed[len(rec.removed)-1]; !slices.Equal(got, rangeset.List{{Index: 3, Count: 3}}) {
		t.Fatalf("removed = %v", got)
	}
	assertConsistent(t, m)

	m.SetNameFilter("")
	if got := texts(m); !slices.Equal(got, before) {
		t.Fatalf("restored = %v, want %v", got, before)
	}
	if got := rec.inserted[len(rec.inserted)-1]; !slices.Equal(got, rangeset.List{{Index: 3, Count: 3}}) {
		t.Fatalf("inserted = %v", got)
	}
	assertConsistent(t, m)
}

// loadNested lists /r/keep with the expanded directory /r/keep/b inside it,
// which holds /r/keep/b/c, and filters for "keep".
func loadNested(t *testing.T, m *Model, l *fakeLister) {
	t.Helper()
	expandable(t, m)
	load(m, l, "/r", dir("/r/keep"))
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/keep", []*fileitem.Item{dir("/r/keep/b")})
	l.events.Completed()
	m.SetExpanded(1, true)
	l.events.ItemsAdded("/r/keep/b", []*fileitem.Item{file("/r/keep/b/c", 1)})
	l.events.Completed()
	if got, want := texts(m), []string{"keep", "b", "c"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	m.SetNameFilter("keep")
	if got := texts(m); !slices.Equal(got, []string{"keep"}) {
		t.Fatalf("filtered = %v", got)
	}
}

func TestFilter_CollapseForgetsHiddenDescendants(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	loadNested(t, m, l)

	if !m.SetExpanded(0, false) {
		t.Fatalf("collapse failed")
	}
	if !slices.Contains(l.stopped, "/r/keep/b") {
		t.Fatalf("stopped = %v", l.stopped)
	}
	if got := m.ExpandedDirectories(); len(got) != 0 {
		t.Fatalf("expanded = %v", got)
	}

	m.SetNameFilter("")
	if got := texts(m); !slices.Equal(got, []string{"keep"}) {
		t.Fatalf("restored = %v", got)
	}
	assertConsistent(t, m)

	// The hidden expanded directory is expanded again with its parent.
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/keep", []*fileitem.Item{dir("/r/keep/b")})
	l.events.Completed()
	if got := l.opened[len(l.opened)-1]; got != (openCall{"/r/keep/b", dirsource.Keep}) {
		t.Fatalf("opened = %+v", got)
	}
}

func TestFilter_NoMatchHidesEverything(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	load(m, l, "/r", file("/r/a", 1), file("/r/b", 1))
	m.SetNameFilter("*.go")
	if m.Count() != 0 {
		t.Fatalf("count = %d", m.Count())
	}
	// Items listed while filtering are held back too.
	l.events.ItemsAdded("/r", []*fileitem.Item{file("/r/main.go", 1), file("/r/c", 1)})
	l.events.Completed()
	if got := texts(m); !slices.Equal(got, []string{"main.go"}) {
		t.Fatalf("shown = %v", got)
	}
	m.SetNameFilter("")
	if m.Count() != 4 {
		t.Fatalf("count = %d", m.Count())
	}
}

func TestFilter_MimeTypes(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	load(m, l, "/r",
		fileitem.New(fileitem.Attrs{URL: "/r/a.png", MimeType: "image/png"}),
		fileitem.New(fileitem.Attrs{URL: "/r/b.txt", MimeType: "text/plain"}),
		fileitem.New(fileitem.Attrs{URL: "/r/c.jpg", MimeType: "image/jpeg"}))
	m.SetMimeTypeFilters([]string{"image/*"})
	if got := texts(m); !slices.Equal(got, []string{"a.png", "c.jpg"}) {
		t.Fatalf("shown = %v", got)
	}
	if got := m.MimeTypeFilters(); !slices.Equal(got, []string{"image/*"}) {
		t.Fatalf("filters = %v", got)
	}
}

func TestItemsDeleted_RemovesChildrenAndReportsCurrentDirectory(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	expandable(t, m)
	load(m, l, "/r", dir("/r/a"), file("/r/z", 1))
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/a", []*fileitem.Item{file("/r/a/1", 1), file("/r/a/2", 1)})
	l.events.Completed()

	l.events.ItemsDeleted([]*fileitem.Item{dir("/r/a")})
	if got := texts(m); !slices.Equal(got, []string{"z"}) {
		t.Fatalf("left = %v", got)
	}
	if got := rec.removed[len(rec.removed)-1]; !slices.Equal(got, rangeset.List{{Index: 0, Count: 3}}) {
		t.Fatalf("removed = %v", got)
	}

	l.events.ItemsDeleted([]*fileitem.Item{dir("/r")})
	if rec.removedCurrent != 1 {
		t.Fatalf("current directory removal not reported")
	}
	assertConsistent(t, m)
}

func TestItemsDeleted_FilteredParentLosesLastChild(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	expandable(t, m)
	load(m, l, "/r", dir("/r/a"), file("/r/match-1", 1))
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/a", []*fileitem.Item{file("/r/a/match-2", 1)})
	l.events.Completed()
	m.SetNameFilter("match")
	if got := texts(m); !slices.Equal(got, []string{"a", "match-2", "match-1"}) {
		t.Fatalf("shown = %v", got)
	}

	l.events.ItemsDeleted([]*fileitem.Item{file("/r/a/match-2", 1)})
	if got := texts(m); !slices.Equal(got, []string{"match-1"}) {
		t.Fatalf("shown = %v", got)
	}
	assertConsistent(t, m)
}

func TestItemsDeleted_ForgetsHiddenDescendants(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	loadNested(t, m, l)

	l.events.ItemsDeleted([]*fileitem.Item{dir("/r/keep/b")})
	if !slices.Contains(l.stopped, "/r/keep/b") {
		t.Fatalf("stopped = %v", l.stopped)
	}
	if got := m.ExpandedDirectories(); !slices.Equal(got, []string{"/r/keep"}) {
		t.Fatalf("expanded = %v", got)
	}
	m.SetNameFilter("")
	if got := texts(m); !slices.Equal(got, []string{"keep"}) {
		t.Fatalf("restored = %v", got)
	}
	assertConsistent(t, m)
}

func TestItemsDeleted_ShownParentTakesHiddenDescendants(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	loadNested(t, m, l)

	l.events.ItemsDeleted([]*fileitem.Item{dir("/r/keep")})
	if got := m.ExpandedDirectories(); len(got) != 0 {
		t.Fatalf("expanded = %v", got)
	}
	m.SetNameFilter("")
	if m.Count() != 0 {
		t.Fatalf("left = %v", texts(m))
	}
	assertConsistent(t, m)
}

func TestItemsRefreshed_ReportsChangedRoles(t *testing.T) {
	m, l, sched, rec := newTestModel(t)
	m.SetSortRole(role.Size, true)
	load(m, l, "/r", file("/r/a", 10), file("/r/b", 20))

	l.events.ItemsRefreshed([]dirsource.Change{{Old: file("/r/a", 10), New: file("/r/a", 30)}})
	last := rec.changed[len(rec.changed)-1]
	if !slices.Equal(last.ranges, rangeset.List{{Index: 0, Count: 1}}) || !last.roles.Has(role.Size) {
		t.Fatalf("changed = %+v", last)
	}
	sched.Advance(ResortAllItemsDelay)
	if got := texts(m); !slices.Equal(got, []string{"b", "a"}) {
		t.Fatalf("order = %v", got)
	}
	assertConsistent(t, m)
}

func TestItemsRefreshed_FilteredItemBecomesVisible(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	load(m, l, "/r", file("/r/keep", 1), file("/r/other", 1))
	m.SetNameFilter("keep")
	l.events.ItemsRefreshed([]dirsource.Change{{Old: file("/r/other", 1), New: file("/r/keep-too", 1)}})
	if got := texts(m); !slices.Equal(got, []string{"keep", "keep-too"}) {
		t.Fatalf("shown = %v", got)
	}
}

func TestCleared_RemovesEverything(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	load(m, l, "/r", file("/r/a", 1), file("/r/b", 1))
	m.Load("/other")
	if m.Count() != 0 {
		t.Fatalf("count = %d", m.Count())
	}
	if got := rec.removed[len(rec.removed)-1]; !slices.Equal(got, rangeset.List{{Index: 0, Count: 2}}) {
		t.Fatalf("removed = %v", got)
	}
}

func TestSorting_DirsFirstHiddenLastAndNatural(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	load(m, l, "/r", file("/r/file10", 1), file("/r/file2", 1), dir("/r/zdir"), file("/r/.a", 1))

	if got, want := texts(m), []string{"zdir", ".a", "file2", "file10"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	m.SetSortHiddenLast(true)
	if got, want := texts(m), []string{"zdir", "file2", "file10", ".a"}; !slices.Equal(got, want) {
		t.Fatalf("hidden last = %v, want %v", got, want)
	}
	m.SetNaturalSorting(false)
	if got, want := texts(m), []string{"zdir", "file10", "file2", ".a"}; !slices.Equal(got, want) {
		t.Fatalf("plain = %v, want %v", got, want)
	}
	m.SetSortDirectoriesFirst(false)
	m.SetSortOrder(Descending)
	if got, want := texts(m), []string{"zdir", "file2", "file10", ".a"}; !slices.Equal(got, want) {
		t.Fatalf("descending = %v, want %v", got, want)
	}
	assertConsistent(t, m)
}

func TestStringCompare_NaturalComparesBaseBeforeExtension(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	tests := []struct {
		a, b string
		want int
	}{
		{"a.txt", "b.txt", -1},
		{"img2.png", "img10.png", -1},
		{"report.pdf", "report.doc", 1},
		{"report", "report.doc", -1},
		{"Same", "same", 0},
	}
	for _, tt := range tests {
		if got := m.stringCompare(tt.a, tt.b); sign(got) != tt.want {
			t.Fatalf("stringCompare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

func TestGroups_Name(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	load(m, l, "/r", file("/r/banana", 1), file("/r/apple", 1), file("/r/Äpfel", 1), file("/r/1file", 1), file("/r/Жук", 1))
	want := []Group{{0, "0 - 9"}, {1, "A"}, {3, "B"}, {4, "Ж"}}
	if got := m.Groups(); !slices.Equal(got, want) {
		t.Fatalf("groups = %v, want %v (order %v)", got, want, texts(m))
	}
}

func TestGroups_Size(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	m.SetSortRole(role.Size, true)
	load(m, l, "/r", file("/r/big", 20<<20), file("/r/small", 1<<10), file("/r/medium", 6<<20), dir("/r/dir"))
	want := []Group{{0, "Folders"}, {1, "Small"}, {2, "Medium"}, {3, "Big"}}
	if got := m.Groups(); !slices.Equal(got, want) {
		t.Fatalf("groups = %v, want %v", got, want)
	}
}

func TestGroups_ModificationTime(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	m.SetSortRole(role.ModificationTime, true)
	at := func(name string, t time.Time) *fileitem.Item {
		return fileitem.New(fileitem.Attrs{URL: "/r/" + name, ModTime: t})
	}
	load(m, l, "/r",
		at("today", testNow.Add(-2*time.Hour)),
		at("yesterday", testNow.AddDate(0, 0, -1)),
		at("weeks", time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)),
		at("lastmonth", time.Date(2026, time.February, 27, 9, 0, 0, 0, time.UTC)),
		at("old", time.Date(2025, time.November, 5, 9, 0, 0, 0, time.UTC)))
	want := []Group{
		{0, "November, 2025"},
		{1, "Two Weeks Ago (February, 2026)"},
		{2, "Two Weeks Ago"},
		{3, "Yesterday"},
		{4, "Today"},
	}
	if got := m.Groups(); !slices.Equal(got, want) {
		t.Fatalf("groups = %v, want %v", got, want)
	}
}

func TestTimeGroup(t *testing.T) {
	tests := []struct {
		t    time.Time
		want string
	}{
		{testNow, "Today"},
		{time.Date(2026, time.March, 16, 0, 0, 0, 0, time.UTC), "Monday"},
		{time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), "One Week Ago"},
		{time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC), "Two Weeks Ago"},
		{time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC), "Earlier on February, 2026"},
		{time.Date(2024, time.March, 18, 0, 0, 0, 0, time.UTC), "March, 2024"},
	}
	for _, tt := range tests {
		if got := timeGroup(tt.t, testNow); got != tt.want {
			t.Fatalf("timeGroup(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestGroups_Rating(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	m.SetSortRole(role.Rating, true)
	load(m, l, "/r", file("/r/a", 1), file("/r/b", 1), file("/r/c", 1))
	m.SetData(0, Values{role.Rating: 2})
	m.SetData(1, Values{role.Rating: 2})
	m.SetData(2, Values{role.Rating: 4})
	m.groups = nil
	want := []Group{{0, 2}, {2, 4}}
	if got := m.Groups(); !slices.Equal(got, want) {
		t.Fatalf("groups = %v, want %v", got, want)
	}
}

func TestGroupedSorting_ValueChangeRecomputesGroups(t *testing.T) {
	m, l, sched, rec := newTestModel(t)
	m.SetSortRole(role.Comment, true)
	m.SetGroupedSorting(true)
	load(m, l, "/r", file("/r/a", 1), file("/r/b", 1))
	m.SetData(0, Values{role.Comment: "x"})
	m.SetData(1, Values{role.Comment: "y"})
	sched.Advance(ResortAllItemsDelay)
	groups := rec.groups

	m.SetData(1, Values{role.Comment: "z"})
	sched.Advance(ResortAllItemsDelay)
	if rec.groups != groups+1 {
		t.Fatalf("groups changed %d times, want %d", rec.groups, groups+1)
	}
}

func TestGroupedSorting_OutOfOrderChangeRestartsResort(t *testing.T) {
	m, l, sched, _ := newTestModel(t)
	m.SetSortRole(role.Rating, true)
	m.SetGroupedSorting(true)
	load(m, l, "/r", file("/r/a", 1), file("/r/b", 1), file("/r/c", 1))
	for i, rating := range []int{2, 4, 6} {
		m.SetData(i, Values{role.Rating: rating})
	}
	sched.Advance(ResortAllItemsDelay)

	m.SetData(1, Values{role.Rating: 5})
	sched.Advance(ResortAllItemsDelay * 3 / 5)
	m.SetData(0, Values{role.Rating: 9})
	sched.Advance(ResortAllItemsDelay * 3 / 5)
	if !m.ResortPending() {
		t.Fatalf("resort ran before the restarted delay elapsed")
	}
	if got := texts(m); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("resorted early: %v", got)
	}
	sched.Advance(ResortAllItemsDelay)
	if got, want := texts(m), []string{"b", "c", "a"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestSetRoles_DroppingLevelsCollapses(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	expandable(t, m)
	load(m, l, "/r", dir("/r/a"))
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/a", []*fileitem.Item{file("/r/a/f", 1)})
	l.events.Completed()

	m.SetRoles(role.NewSet(role.Text, role.Size))
	if m.Count() != 1 {
		t.Fatalf("count = %d", m.Count())
	}
	last := rec.changed[len(rec.changed)-1]
	if !last.roles.Has(role.Size) || !last.roles.Has(role.ExpandedParentsCount) {
		t.Fatalf("changed roles = %v", last.roles.Sorted())
	}
	if _, ok := m.Data(0)[role.Size]; ok {
		t.Fatalf("directory got a size value")
	}
}

func TestSetSortRole_KeepsExpansion(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	expandable(t, m)
	load(m, l, "/r", dir("/r/a"), dir("/r/b"))
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/a", []*fileitem.Item{file("/r/a/child", 1)})
	l.events.Completed()

	m.SetSortRole(role.Rating, true)
	a := m.Index("/r/a")
	if !m.IsExpanded(a) {
		t.Fatalf("a collapsed by the sort role change")
	}
	if !m.SetExpanded(a, false) {
		t.Fatalf("collapse failed")
	}
	if got := texts(m); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("left = %v", got)
	}
	if got := m.ExpandedDirectories(); len(got) != 0 {
		t.Fatalf("expanded = %v", got)
	}
	assertConsistent(t, m)
}

func TestSetData_ExpandedItemResortsPastItsChildren(t *testing.T) {
	m, l, sched, _ := newTestModel(t)
	m.SetRoles(role.NewSet(role.Text, role.IsDir, role.IsExpandable, role.ExpandedParentsCount, role.Rating))
	m.SetSortRole(role.Rating, true)
	load(m, l, "/r", dir("/r/a"), dir("/r/b"))
	m.SetExpanded(0, true)
	l.events.ItemsAdded("/r/a", []*fileitem.Item{file("/r/a/child", 1)})
	l.events.Completed()
	if got, want := texts(m), []string{"a", "child", "b"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	m.SetData(0, Values{role.Rating: 8})
	if !m.ResortPending() {
		t.Fatalf("no resort scheduled")
	}
	sched.Advance(ResortAllItemsDelay)
	if got, want := texts(m), []string{"b", "a", "child"}; !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	assertConsistent(t, m)
}

func TestSuspend_SkipsObserver(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	load(m, l, "/r", file("/r/a", 1))
	before := len(rec.changed)
	m.Suspend(rec)
	m.SetData(0, Values{role.Comment: "x"})
	m.Resume(rec)
	if len(rec.changed) != before {
		t.Fatalf("suspended observer notified")
	}
	m.SetData(0, Values{role.Comment: "y"})
	if len(rec.changed) != before+1 {
		t.Fatalf("resumed observer not notified")
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	other := &recorder{}
	unsubscribe := m.Subscribe(other)
	unsubscribe()
	load(m, l, "/r", file("/r/a", 1))
	if len(other.inserted) != 0 {
		t.Fatalf("unsubscribed observer notified")
	}
}

func TestIndexForKeyboardSearch(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	load(m, l, "/r", file("/r/alpha", 1), file("/r/beta", 1), file("/r/Alps", 1))
	tests := []struct {
		text  string
		start int
		want  int
	}{
		{"al", 0, 0},
		{"AL", 1, 1},
		{"be", 2, 2},
		{"x", 0, -1},
	}
	for _, tt := range tests {
		if got := m.IndexForKeyboardSearch(tt.text, tt.start); got != tt.want {
			t.Fatalf("IndexForKeyboardSearch(%q, %d) = %d, want %d (order %v)", tt.text, tt.start, got, tt.want, texts(m))
		}
	}
}

func TestEmitSortProgress(t *testing.T) {
	m, l, _, rec := newTestModel(t)
	load(m, l, "/r", file("/r/a", 1), file("/r/b", 1), file("/r/c", 1), file("/r/d", 1))
	m.EmitSortProgress(1)
	m.EmitSortProgress(1)
	m.EmitSortProgress(4)
	if !slices.Equal(rec.progress, []int{25, 100}) {
		t.Fatalf("progress = %v", rec.progress)
	}
}

func TestExpandParentDirectories(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	expandable(t, m)
	load(m, l, "/r", dir("/r/a"))
	m.ExpandParentDirectories("/r/a/b/file")
	if !m.IsExpanded(0) {
		t.Fatalf("a not expanded")
	}
	l.events.ItemsAdded("/r/a", []*fileitem.Item{dir("/r/a/b")})
	l.events.Completed()
	if !m.IsExpanded(1) {
		t.Fatalf("a/b not expanded after a completed")
	}
}

func TestShowHiddenFiles_DelegatesToLister(t *testing.T) {
	m, l, _, _ := newTestModel(t)
	m.SetShowHiddenFiles(true)
	m.SetShowDirectoriesOnly(true)
	if !m.ShowHiddenFiles() || !m.ShowDirectoriesOnly() || l.emits != 2 {
		t.Fatalf("hidden=%v dirsOnly=%v emits=%d", m.ShowHiddenFiles(), m.ShowDirectoriesOnly(), l.emits)
	}
}

func TestOutOfRange(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	if m.Data(-1) != nil || m.Item(3) != nil || m.IsExpanded(9) || m.IsExpandable(-2) || m.ExpandedParentsCount(7) != 0 {
		t.Fatalf("out of range access returned data")
	}
	if m.SetExpanded(0, true) {
		t.Fatalf("SetExpanded on empty model succeeded")
	}
}

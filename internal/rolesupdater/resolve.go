package rolesupdater

import (
	"slices"

	"dirview/internal/dircount"
	"dirview/internal/fileitem"
	"dirview/internal/model"
	"dirview/internal/preview"
	"dirview/internal/role"

	"go.uber.org/zap"
)

type resolveHint int

const (
	// resolveFast only determines the MIME type and icon.
	resolveFast resolveHint = iota
	resolveAll
)

func (u *Updater) startUpdating() {
	if u.state == Paused {
		return
	}
	if len(u.finished) == u.model.Count() {
		u.state = Idle
		return
	}

	u.killPreviewJob()
	u.pending = nil

	u.updateVisibleIcons()
	if u.state == ResolvingSortRole {
		return
	}

	indexes := u.indexesToResolve()
	if u.previewShown {
		u.previews = nil
		for _, index := range indexes {
			if it := u.model.Item(index); !u.finished.has(it.URL()) {
				u.previews = append(u.previews, it)
			}
		}
		u.startPreviewJob()
		return
	}

	u.pending = indexes
	u.state = ResolvingAllRoles
	u.postResolveNextPendingRoles()
}

// updateVisibleIcons gives the visible items their icons within
// MaxBlockTimeout.
func (u *Updater) updateVisibleIcons() {
	count := u.model.Count()
	last := u.lastVisible
	if last <= 0 {
		last = min(u.firstVisible+u.maximumVisibleItems, count-1)
		if last <= 0 {
			last = min(200, count-1)
		}
	}
	last = min(last, count-1)

	start := u.sched.Now()
	index := u.firstVisible
	for ; index <= last && u.elapsed(start) < MaxBlockTimeout; index++ {
		u.applyResolvedRoles(index, resolveFast)
	}
	if index <= last {
		u.log.Debug("visible icons timed out", zap.Int("resolved", index-u.firstVisible), zap.Int("last", last))
	}
}

// indexesToResolve orders the items to resolve: visible files, visible
// directories, the read ahead after and before the visible range, the last
// and the first page, then whatever fits into ResolveAllItemsLimit.
func (u *Updater) indexesToResolve() []int {
	count := u.model.Count()
	first := min(u.firstVisible, count)
	last := min(u.lastVisible, count-1)

	var result, visibleDirs []int
	for i := first; i <= last; i++ {
		if u.model.Item(i).IsDir() {
			visibleDirs = append(visibleDirs, i)
		} else {
			result = append(result, i)
		}
	}
	result = append(result, visibleDirs...)

	readAhead := min(ReadAheadPages*u.maximumVisibleItems, ResolveAllItemsLimit/2)

	endExtended := min(last+readAhead, count-1)
	for i := last + 1; i <= endExtended; i++ {
		result = append(result, i)
	}

	beginExtended := max(0, first-readAhead)
	for i := first - 1; i >= beginExtended; i-- {
		result = append(result, i)
	}

	beginLastPage := max(endExtended+1, count-u.maximumVisibleItems)
	for i := beginLastPage; i < count; i++ {
		result = append(result, i)
	}

	endFirstPage := min(beginExtended, u.maximumVisibleItems)
	for i := 0; i < endFirstPage; i++ {
		result = append(result, i)
	}

	remaining := ResolveAllItemsLimit - len(result)
	for i := endExtended + 1; i < beginLastPage && remaining > 0; i++ {
		result = append(result, i)
		remaining--
	}
	for i := beginExtended - 1; i >= endFirstPage && remaining > 0; i-- {
		result = append(result, i)
		remaining--
	}
	return result
}

func (u *Updater) queueSortRole(url string) {
	if u.sortPending.has(url) {
		return
	}
	u.sortPending.add(url)
	u.sortQueue = append(u.sortQueue, url)
}

func (u *Updater) postResolveNextSortRole() {
	if u.sortRoleQueued {
		return
	}
	u.sortRoleQueued = true
	u.post(func() {
		u.sortRoleQueued = false
		u.resolveNextSortRole()
	})
}

// resolveNextSortRole resolves the sort role of one queued item and comes
// back for the next one until the queue is empty.
func (u *Updater) resolveNextSortRole() {
	if u.state != ResolvingSortRole {
		return
	}

	sortRole := u.model.SortRole()
	for len(u.sortQueue) > 0 {
		url := u.sortQueue[0]
		u.sortQueue = u.sortQueue[1:]
		delete(u.sortPending, url)

		index := u.model.Index(url)
		if index < 0 {
			continue
		}
		// Known and not changed since.
		if _, ok := u.model.Data(index)[sortRole]; ok && !u.changed.has(url) {
			continue
		}
		u.applySortRole(index)
		break
	}

	if len(u.sortQueue) > 0 {
		u.applySortProgressToModel()
		u.postResolveNextSortRole()
		return
	}

	u.state = Idle
	// The resort this may cause is followed by startUpdating anyway.
	u.ignoreMoves = true
	u.applySortProgressToModel()
	u.ignoreMoves = false
	u.startUpdating()
}

func (u *Updater) postResolveNextPendingRoles() {
	if u.pendingRolesQueue {
		return
	}
	u.pendingRolesQueue = true
	u.post(func() {
		u.pendingRolesQueue = false
		u.resolveNextPendingRoles()
	})
}

// resolveNextPendingRoles resolves all roles of one pending item per call.
func (u *Updater) resolveNextPendingRoles() {
	if u.state != ResolvingAllRoles {
		return
	}

	for len(u.pending) > 0 {
		index := u.pending[0]
		u.pending = u.pending[1:]
		it := u.model.Item(index)
		if it == nil || u.finished.has(it.URL()) {
			continue
		}
		u.applyResolvedRoles(index, resolveAll)
		u.finished.add(it.URL())
		delete(u.changed, it.URL())
		break
	}

	if len(u.pending) > 0 {
		u.postResolveNextPendingRoles()
		return
	}

	u.state = Idle
	if u.clearPreviews {
		// Items not resolved since previews were switched off may still
		// carry one.
		if len(u.finished) != u.model.Count() {
			for index := range u.model.Count() {
				if hasPreview(u.model.Data(index)) {
					u.setData(index, model.Values{role.IconPixmap: preview.Preview{}})
				}
			}
		}
		u.clearPreviews = false
	}
	if len(u.changed) > 0 {
		u.updateChangedItems()
	}
}

func hasPreview(v model.Values) bool {
	p, ok := v[role.IconPixmap].(preview.Preview)
	return ok && !p.IsZero()
}

// updateChangedItems resolves the roles of changed items again, visible
// ones first.
func (u *Updater) updateChangedItems() {
	if u.state == Paused || len(u.changed) == 0 {
		return
	}
	for url := range u.changed {
		delete(u.finished, url)
	}

	if u.resolvableRoles.Has(u.model.SortRole()) {
		for _, url := range sortedURLs(u.changed) {
			u.queueSortRole(url)
		}
		if u.state != ResolvingSortRole {
			u.killPreviewJob()
			u.state = ResolvingSortRole
			u.postResolveNextSortRole()
		}
		return
	}

	var visible, invisible []int
	for url := range u.changed {
		index := u.model.Index(url)
		if index < 0 {
			delete(u.changed, url)
			continue
		}
		if index >= u.firstVisible && index <= u.lastVisible {
			visible = append(visible, index)
		} else {
			invisible = append(invisible, index)
		}
	}
	slices.Sort(visible)
	slices.Sort(invisible)

	if u.previewShown {
		for _, index := range slices.Concat(visible, invisible) {
			u.previews = append(u.previews, u.model.Item(index))
		}
		if u.previewJob == nil {
			u.startPreviewJob()
		}
		return
	}

	resolving := len(u.pending) > 0
	u.pending = slices.Concat(visible, u.pending, invisible)
	if !resolving {
		u.state = ResolvingAllRoles
		u.postResolveNextPendingRoles()
	}
}

func sortedURLs(s urlSet) []string {
	out := make([]string, 0, len(s))
	for url := range s {
		out = append(out, url)
	}
	slices.Sort(out)
	return out
}

func (u *Updater) applySortRole(index int) {
	it := u.model.Item(index)
	if it == nil {
		return
	}

	var data model.Values
	switch sortRole := u.model.SortRole(); {
	case sortRole == role.Type:
		it.DetermineMimeType()
		data = model.Values{role.Type: it.MimeComment()}
	case sortRole == role.Size && it.IsLocal() && it.IsDir():
		u.startDirectorySizeCounting(it, index)
		return
	default:
		data = u.rolesData(it, index)
	}
	u.setData(index, data)
}

func (u *Updater) applySortProgressToModel() {
	u.model.EmitSortProgress(u.model.Count() - len(u.sortQueue))
}

// applyResolvedRoles determines the item's MIME type and icon, and with
// resolveAll every other role. It reports whether anything was written.
func (u *Updater) applyResolvedRoles(index int, hint resolveHint) bool {
	it := u.model.Item(index)
	if it == nil {
		return false
	}
	all := hint == resolveAll

	iconChanged := false
	if !it.IsMimeTypeKnown() {
		it.DetermineMimeType()
		iconChanged = true
	} else if _, ok := u.model.Data(index)[role.IconName]; !ok {
		iconChanged = true
	}
	if !iconChanged && !all && !u.clearPreviews {
		return false
	}

	data := model.Values{}
	if all {
		data = u.rolesData(it, index)
	}
	if name := it.IconName(); name != "" {
		data[role.IconName] = name
	}
	if u.clearPreviews {
		data[role.IconPixmap] = preview.Preview{}
	}
	u.setData(index, data)
	return true
}

// rolesData returns the expensive roles of it. Directory counts arrive
// later through the counter.
func (u *Updater) rolesData(it *fileitem.Item, index int) model.Values {
	data := model.Values{}

	if (u.roles.Has(role.Size) || u.roles.Has(role.IsExpandable)) && it.IsDir() {
		u.startDirectorySizeCounting(it, index)
	}
	if u.roles.Has(role.Extension) {
		data[role.Extension] = it.Suffix()
	}
	if u.roles.Has(role.Type) {
		data[role.Type] = it.MimeComment()
	}
	if overlays := overlaysOf(it); len(overlays) > 0 {
		data[role.IconOverlays] = overlays
	}
	u.imageRoles(it, data)
	return data
}

// overlaysOf returns the emblems drawn over the item's icon.
func overlaysOf(it *fileitem.Item) []string {
	var overlays []string
	if it.IsLink() {
		overlays = append(overlays, "emblem-symbolic-link")
	}
	if !it.IsReadable() {
		overlays = append(overlays, "emblem-locked")
	}
	if it.IsHidden() {
		overlays = append(overlays, "hidden")
	}
	return overlays
}

var imageRoleNames = []string{role.Dimensions, role.Width, role.Height, role.Orientation, role.ImageDateTime}

// imageRoles reads the dimensions, orientation and capture time of images
// when one of those roles is shown.
func (u *Updater) imageRoles(it *fileitem.Item, data model.Values) {
	if it.IsDir() || !slices.ContainsFunc(imageRoleNames, u.roles.Has) || !preview.IsImage(it.MimeType()) {
		return
	}
	info, err := preview.ReadImageInfo(it.URL())
	if err != nil {
		u.log.Debug("image info unavailable", zap.String("url", it.URL()), zap.Error(err))
		return
	}
	if u.roles.Has(role.Dimensions) {
		data[role.Dimensions] = model.Dimensions{Width: info.Width, Height: info.Height}
	}
	if u.roles.Has(role.Width) {
		data[role.Width] = info.Width
	}
	if u.roles.Has(role.Height) {
		data[role.Height] = info.Height
	}
	if u.roles.Has(role.Orientation) {
		data[role.Orientation] = info.Orientation
	}
	if u.roles.Has(role.ImageDateTime) && !info.Taken.IsZero() {
		data[role.ImageDateTime] = info.Taken
	}
}

// startDirectorySizeCounting asks the counter for the content of the
// directory it. Visible directories jump the queue.
func (u *Updater) startDirectorySizeCounting(it *fileitem.Item, index int) {
	if u.counter == nil || !it.IsLocal() {
		return
	}
	u.counter.SetFlags(dircount.Flags{
		ShowHidden: u.model.ShowHiddenFiles(),
		DirsOnly:   u.model.ShowDirectoriesOnly(),
		SumSizes:   u.model.DirectorySizeMode() == model.ContentSize,
	})

	if u.model.DirectorySizeMode() == model.ContentCount {
		if size, ok := u.model.Data(index)[role.Size].(int64); ok && size == SizeCounting {
			return
		}
		data := model.Values{}
		if u.roles.Has(role.Size) {
			data[role.Count] = 0
			data[role.Size] = int64(SizeCounting)
		}
		if u.roles.Has(role.IsExpandable) {
			data[role.IsExpandable] = false
		}
		u.setData(index, data)
	}

	p := dircount.Normal
	if index >= u.firstVisible && index <= u.lastVisible {
		p = dircount.High
	}
	u.counter.ScanDirectory(it.URL(), p)
}

func (u *Updater) directoryContentsCountReceived(r dircount.Result) {
	getSize := u.roles.Has(role.Size)
	getExpandable := u.roles.Has(role.IsExpandable)
	if !getSize && !getExpandable {
		return
	}
	index := u.model.Index(r.Path)
	if index < 0 {
		return
	}

	data := model.Values{}
	if getSize {
		data[role.Count] = r.Count
		data[role.Size] = r.Size
	}
	if getExpandable {
		data[role.IsExpandable] = r.Count > 0
	}
	u.setData(index, data)
}

package rolesupdater

import (
	"dirview/internal/fileitem"
	"dirview/internal/model"
	"dirview/internal/rangeset"
	"dirview/internal/role"
)

// hooks receives the model's notifications. The model must not be changed
// from inside a notification, so everything that writes is posted.
type hooks struct {
	model.BaseObserver
	u *Updater
}

func (h *hooks) ItemsInserted(ranges rangeset.List) {
	u := h.u
	// Inserted ranges count positions from before the insertion.
	var items []*fileitem.Item
	inserted := 0
	for _, r := range ranges {
		for i := inserted + r.Index; i < inserted+r.Index+r.Count; i++ {
			if it := u.model.Item(i); it != nil {
				items = append(items, it)
			}
		}
		inserted += r.Count
	}
	u.post(func() { u.itemsInserted(items) })
}

func (h *hooks) ItemsRemoved(rangeset.List) {
	u := h.u
	u.post(u.itemsRemoved)
}

func (h *hooks) ItemsMoved(rangeset.Range, []int) {
	if !h.u.ignoreMoves {
		h.u.scheduleUpdate()
	}
}

// ItemsChanged postpones resolving while items keep changing, so files
// written to continuously are not resolved over and over.
func (h *hooks) ItemsChanged(ranges rangeset.List, _ role.Set) {
	u := h.u
	changedRecently := u.recentlyChangedTimer.Active()
	target := u.changed
	if changedRecently {
		target = u.recentlyChanged
	}
	for _, it := range u.model.FileItems(ranges) {
		target.add(it.URL())
	}
	u.recentlyChangedTimer.Start()
	if !changedRecently {
		u.post(u.updateChangedItems)
	}
}

func (h *hooks) SortRoleChanged(current, _ string) {
	u := h.u
	u.post(func() { u.sortRoleChanged(current) })
}

func (u *Updater) post(fn func()) {
	u.sched.Post(func() {
		if !u.closed {
			fn()
		}
	})
}

// scheduleUpdate coalesces restarts requested while the owner goroutine is
// busy.
func (u *Updater) scheduleUpdate() {
	if u.updateQueued {
		return
	}
	u.updateQueued = true
	u.post(func() {
		u.updateQueued = false
		u.startUpdating()
	})
}

func (u *Updater) itemsInserted(items []*fileitem.Item) {
	start := u.sched.Now()

	// Resolve the sort role synchronously for as many items as possible.
	if u.resolvableRoles.Has(u.model.SortRole()) {
		for _, it := range items {
			index := u.model.Index(it.URL())
			if index < 0 {
				continue
			}
			if u.elapsed(start) < MaxBlockTimeout {
				u.applySortRole(index)
			} else {
				u.queueSortRole(it.URL())
			}
		}
		u.applySortProgressToModel()

		if len(u.sortQueue) > 0 && u.state != ResolvingSortRole && u.state != Paused {
			u.killPreviewJob()
			u.state = ResolvingSortRole
			u.resolveNextSortRole()
		}
	}
	u.startUpdating()
}

func (u *Updater) itemsRemoved() {
	if u.model.Count() == 0 {
		if u.state != Paused {
			u.state = Idle
		}
		clear(u.finished)
		u.sortQueue = nil
		clear(u.sortPending)
		u.pending = nil
		u.previews = nil
		clear(u.recentlyChanged)
		u.recentlyChangedTimer.Stop()
		clear(u.changed)

		u.killPreviewJob()
		if u.counter != nil && !u.model.ShowDirectoriesOnly() {
			u.counter.Stop()
		}
		return
	}

	// The other sets skip vanished items when they get to them.
	for url := range u.finished {
		if u.model.Index(url) < 0 {
			delete(u.finished, url)
		}
	}
	u.startUpdating()
}

func (u *Updater) sortRoleChanged(current string) {
	if !u.resolvableRoles.Has(current) {
		if u.state != Paused {
			u.state = Idle
		}
		u.sortQueue = nil
		clear(u.sortPending)
		u.applySortProgressToModel()
		return
	}

	u.sortQueue = nil
	clear(u.sortPending)
	clear(u.finished)

	start := u.sched.Now()
	for index := range u.model.Count() {
		if u.elapsed(start) < MaxBlockTimeout {
			u.applySortRole(index)
		} else {
			u.queueSortRole(u.model.Item(index).URL())
		}
	}
	u.applySortProgressToModel()

	if len(u.sortQueue) > 0 && u.state != Paused {
		u.killPreviewJob()
		u.state = ResolvingSortRole
		u.resolveNextSortRole()
	}
}

func (u *Updater) resolveRecentlyChangedItems() {
	for url := range u.recentlyChanged {
		u.changed.add(url)
	}
	clear(u.recentlyChanged)
	u.updateChangedItems()
}

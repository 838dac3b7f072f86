package model

import (
	"dirview/internal/rangeset"
	"dirview/internal/role"
)

// Observer receives the model's notifications, synchronously and in
// subscription order. Observers must not mutate the model from inside a
// callback; post the mutation to the scheduler instead.
type Observer interface {
	ItemsInserted(ranges rangeset.List)
	ItemsRemoved(ranges rangeset.List)
	// ItemsMoved reports that the items of moved now sit at newPositions,
	// one entry per moved item.
	ItemsMoved(moved rangeset.Range, newPositions []int)
	ItemsChanged(ranges rangeset.List, roles role.Set)
	GroupsChanged()
	SortRoleChanged(current, previous string)
	SortOrderChanged(current, previous SortOrder)

	DirectoryLoadingStarted()
	DirectoryLoadingProgress(percent int)
	DirectoryLoadingCompleted()
	DirectoryLoadingCanceled()
	DirectorySortingProgress(percent int)
	DirectoryRedirection(oldURL, newURL string)
	URLIsFileError(url string)
	CurrentDirectoryRemoved()
	ErrorMessage(text string)
}

// BaseObserver implements every Observer method as a no-op. Embed it to
// implement only what is needed.
type BaseObserver struct{}

func (BaseObserver) ItemsInserted(rangeset.List) {}
func (BaseObserver) ItemsRemoved(rangeset.List) {}
func (BaseObserver) ItemsMoved(rangeset.Range, []int) {}
func (BaseObserver) ItemsChanged(rangeset.List, role.Set) {}
func (BaseObserver) GroupsChanged() {}
func (BaseObserver) SortRoleChanged(string, string) {}
func (BaseObserver) SortOrderChanged(SortOrder, SortOrder) {}
func (BaseObserver) DirectoryLoadingStarted() {}
func (BaseObserver) DirectoryLoadingProgress(int) {}
func (BaseObserver) DirectoryLoadingCompleted() {}
func (BaseObserver) DirectoryLoadingCanceled() {}
func (BaseObserver) DirectorySortingProgress(int) {}
func (BaseObserver) DirectoryRedirection(string, string) {}
func (BaseObserver) URLIsFileError(string) {}
func (BaseObserver) CurrentDirectoryRemoved() {}
func (BaseObserver) ErrorMessage(string) {}

type subscriber struct {
	obs       Observer
	suspended int
}

// Subscribe adds o to the end of the observer list. The returned function
// removes it again.
func (m *Model) Subscribe(o Observer) (unsubscribe func()) {
	s := &subscriber{obs: o}
	m.observers = append(m.observers, s)
	return func() {
		for i, cur := range m.observers {
			if cur == s {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

// Suspend stops delivering notifications to o until Resume is called. Calls
// nest.
func (m *Model) Suspend(o Observer) {
	for _, s := range m.observers {
		if s.obs == o {
			s.suspended++
		}
	}
}

func (m *Model) Resume(o Observer) {
	for _, s := range m.observers {
		if s.obs == o && s.suspended > 0 {
			s.suspended--
		}
	}
}

func (m *Model) notify(fn func(o Observer)) {
	// Observers may unsubscribe while being notified.
	subs := m.observers
	for _, s := range subs {
		if s.suspended == 0 {
			fn(s.obs)
		}
	}
}

// Package dirsource lists directories in the background and keeps watching
// them, reporting everything as events on the owner goroutine.
package dirsource

import (
	"errors"

	"dirview/internal/fileitem"
)

// OpenMode selects how Open treats directories that are already listed.
type OpenMode int

const (
	// Reload forgets every listed directory and lists the url as the new root.
	Reload OpenMode = iota
	// Keep lists the url in addition to what is already listed.
	Keep
)

var ErrNotDirectory = errors.New("not a directory")

// Change pairs the old and new state of a refreshed item.
type Change struct {
	Old *fileitem.Item
	New *fileitem.Item
}

// Events receives listing results. All methods are called on the owner
// goroutine.
type Events interface {
	Started(url string)
	ItemsAdded(parentURL string, items []*fileitem.Item)
	ItemsDeleted(items []*fileitem.Item)
	ItemsRefreshed(changes []Change)
	Completed()
	Canceled()
	Progress(percent int)
	// Cleared is sent when Reload drops everything listed so far.
	Cleared()
	ErrorMessage(text string)
	Redirected(oldURL, newURL string)
	URLIsFile(url string)
}

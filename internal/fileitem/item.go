// Package fileitem holds the filesystem item handle the model stores.
package fileitem

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Item is one filesystem entry. The URL (a clean absolute slash path) is its
// identity. Stat data is immutable after construction; the MIME type is
// resolved lazily and must only be touched from the model's owner goroutine.
type Item struct {
	url  string
	name string

	size       int64
	mode       fs.FileMode
	modTime    time.Time
	accessTime time.Time
	birthTime  time.Time
	changeTime time.Time

	uid, gid int
	owner    string
	group    string

	isDir    bool
	isLink   bool
	linkDest string

	mimeType  string
	mimeKnown bool
}

// Attrs describes an item without touching the filesystem.
type Attrs struct {
	URL        string
	Dir        bool
	Size       int64
	Mode       fs.FileMode
	ModTime    time.Time
	AccessTime time.Time
	BirthTime  time.Time
	Owner      string
	Group      string
	LinkDest   string
	MimeType   string
}

// New builds an item from attributes. A non-empty MimeType marks the type as
// known.
func New(a Attrs) *Item {
	it := &Item{
		url:        CleanURL(a.URL),
		size:       a.Size,
		mode:       a.Mode,
		modTime:    a.ModTime,
		accessTime: a.AccessTime,
		birthTime:  a.BirthTime,
		owner:      a.Owner,
		group:      a.Group,
		isDir:      a.Dir,
		linkDest:   a.LinkDest,
		isLink:     a.LinkDest != "",
		mimeType:   a.MimeType,
		mimeKnown:  a.MimeType != "",
	}
	it.name = path.Base(it.url)
	if it.mode == 0 {
		if it.isDir {
			it.mode = fs.ModeDir | 0o755
		} else {
			it.mode = 0o644
		}
	}
	if it.isDir && !it.mimeKnown {
		it.mimeType, it.mimeKnown = MimeDirectory, true
	}
	return it
}

// FromPath stats path without following a final symlink, then resolves the
// link target for directory and size information.
func FromPath(p string) (*Item, error) {
	fi, err := os.Lstat(p)
	if err != nil {
		return nil, err
	}
	return FromFileInfo(p, fi), nil
}

// FromFileInfo builds an item from an lstat result.
func FromFileInfo(p string, fi fs.FileInfo) *Item {
	it := &Item{
		url:     CleanURL(p),
		name:    fi.Name(),
		size:    fi.Size(),
		mode:    fi.Mode(),
		modTime: fi.ModTime(),
		isDir:   fi.IsDir(),
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		it.isLink = true
		it.linkDest, _ = os.Readlink(p)
		if target, err := os.Stat(p); err == nil {
			it.isDir = target.IsDir()
			it.size = target.Size()
		}
	}
	fillSysInfo(it, p, fi)
	if it.isDir {
		it.mimeType, it.mimeKnown = MimeDirectory, true
	}
	return it
}

// CleanURL normalises a path into the identity form used by the model.
func CleanURL(p string) string {
	if p == "" {
		return ""
	}
	if !filepath.IsAbs(p) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// ParentURL returns the URL of the directory holding url.
func ParentURL(url string) string {
	if url == "/" || url == "" {
		return ""
	}
	return path.Dir(url)
}

func (it *Item) URL() string { return it.url }
func (it *Item) Name() string { return it.name }
func (it *Item) Text() string { return it.name }
func (it *Item) Size() int64 { return it.size }
func (it *Item) Mode() fs.FileMode { return it.mode }
func (it *Item) ModTime() time.Time { return it.modTime }
func (it *Item) AccessTime() time.Time { return it.accessTime }
func (it *Item) BirthTime() time.Time { return it.birthTime }
func (it *Item) ChangeTime() time.Time { return it.changeTime }
func (it *Item) Owner() string { return it.owner }
func (it *Item) Group() string { return it.group }
func (it *Item) IsDir() bool { return it.isDir }
func (it *Item) IsLink() bool { return it.isLink }
func (it *Item) LinkDest() string { return it.linkDest }
func (it *Item) IsLocal() bool { return true }
func (it *Item) ParentURL() string { return ParentURL(it.url) }

// IsHidden reports dot files.
func (it *Item) IsHidden() bool { return strings.HasPrefix(it.name, ".") }

// Suffix returns the extension without the dot, or "".
func (it *Item) Suffix() string {
	if it.isDir {
		return ""
	}
	ext := path.Ext(it.name)
	if ext == "" || ext == it.name {
		return ""
	}
	return ext[1:]
}

// IsReadable reports whether the owner read bit is set.
func (it *Item) IsReadable() bool { return it.mode.Perm()&0o400 != 0 }

// IsWritable reports whether the owner write bit is set.
func (it *Item) IsWritable() bool { return it.mode.Perm()&0o200 != 0 }

// Same reports whether a and b describe the same on-disk state.
func Same(a, b *Item) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.url == b.url &&
		a.size == b.size &&
		a.mode == b.mode &&
		a.modTime.Equal(b.modTime) &&
		a.isDir == b.isDir &&
		a.linkDest == b.linkDest
}

// WithURL returns a copy of it at a new location, as after a rename.
func (it *Item) WithURL(url string) *Item {
	cp := *it
	cp.url = CleanURL(url)
	cp.name = path.Base(cp.url)
	return &cp
}

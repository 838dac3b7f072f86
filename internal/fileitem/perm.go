package fileitem

import "io/fs"

// Class selects a permission class.
type Class int

const (
	User Class = iota
	GroupClass
	Others
)

// Bit selects a permission bit.
type Bit int

const (
	Read Bit = iota
	Write
	Execute
)

// Permission reports whether the bit is set for the class.
func (it *Item) Permission(c Class, b Bit) bool {
	shift := uint(6 - 3*int(c))
	mask := fs.FileMode(0o4 >> uint(b))
	return (it.mode.Perm()>>shift)&mask != 0
}

// PermissionsString renders the mode the way ls does, e.g. "drwxr-xr-x".
func (it *Item) PermissionsString() string {
	b := []byte("----------")
	switch {
	case it.isLink:
		b[0] = 'l'
	case it.isDir:
		b[0] = 'd'
	}
	const rwx = "rwx"
	perm := it.mode.Perm()
	for i := 0; i < 9; i++ {
		if perm&(1<<uint(8-i)) != 0 {
			b[i+1] = rwx[i%3]
		}
	}
	if it.mode&fs.ModeSetuid != 0 {
		b[3] = setBit(b[3], 's', 'S')
	}
	if it.mode&fs.ModeSetgid != 0 {
		b[6] = setBit(b[6], 's', 'S')
	}
	if it.mode&fs.ModeSticky != 0 {
		b[9] = setBit(b[9], 't', 'T')
	}
	return string(b)
}

func setBit(cur, withExec, withoutExec byte) byte {
	if cur == 'x' {
		return withExec
	}
	return withoutExec
}

//go:build !linux

package fileitem

import "io/fs"

func fillSysInfo(it *Item, p string, fi fs.FileInfo) {}

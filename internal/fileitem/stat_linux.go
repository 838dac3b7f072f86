//go:build linux

package fileitem

import (
	"io/fs"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func fillSysInfo(it *Item, p string, fi fs.FileInfo) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	it.uid, it.gid = int(st.Uid), int(st.Gid)
	it.owner = lookupUser(it.uid)
	it.group = lookupGroup(it.gid)
	it.accessTime = time.Unix(st.Atim.Unix())
	it.changeTime = time.Unix(st.Ctim.Unix())

	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, p, unix.AT_SYMLINK_NOFOLLOW, unix.STATX_BTIME, &stx)
	if err == nil && stx.Mask&unix.STATX_BTIME != 0 {
		it.birthTime = time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
}

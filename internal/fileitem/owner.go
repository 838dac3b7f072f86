package fileitem

import (
	"os/user"
	"strconv"
	"sync"
)

var (
	userNames  sync.Map // uid string -> name
	groupNames sync.Map // gid string -> name
)

func lookupUser(uid int) string {
	key := strconv.Itoa(uid)
	if v, ok := userNames.Load(key); ok {
		return v.(string)
	}
	name := key
	if u, err := user.LookupId(key); err == nil && u.Username != "" {
		name = u.Username
	}
	userNames.Store(key, name)
	return name
}

func lookupGroup(gid int) string {
	key := strconv.Itoa(gid)
	if v, ok := groupNames.Load(key); ok {
		return v.(string)
	}
	name := key
	if g, err := user.LookupGroupId(key); err == nil && g.Name != "" {
		name = g.Name
	}
	groupNames.Store(key, name)
	return name
}

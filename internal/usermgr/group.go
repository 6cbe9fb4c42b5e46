package usermgr

import (
	"sort"
	"strings"
)

type GroupFile struct {
	entries []GroupEntry
}

func LoadGroup(path string) (*GroupFile, error) {
	entries, err := loadColonFile(path, 4, func(parts []string) (GroupEntry, error) {
		gid, err := atoi(parts[2], "group.gid")
		if err != nil {
			return GroupEntry{}, err
		}
		members := []string{}
		if parts[3] != "" {
			members = strings.Split(parts[3], ",")
		}
		return GroupEntry{Name: parts[0], Passwd: parts[1], GID: gid, Members: members}, nil
	})
	if err != nil {
		return nil, err
	}
	return &GroupFile{entries: entries}, nil
}

func (f *GroupFile) Find(name string) *GroupEntry {
	for i := range f.entries {
		if f.entries[i].Name == name {
			return &f.entries[i]
		}
	}
	return nil
}

func (f *GroupFile) FindByGID(gid int) *GroupEntry {
	for i := range f.entries {
		if f.entries[i].GID == gid {
			return &f.entries[i]
		}
	}
	return nil
}

// GroupsOf lists the groups naming user as a supplementary member, sorted.
func (f *GroupFile) GroupsOf(user string) []string {
	var out []string
	for _, g := range f.entries {
		if g.HasMember(user) {
			out = append(out, g.Name)
		}
	}
	sort.Strings(out)
	return out
}

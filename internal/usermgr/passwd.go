package usermgr

type PasswdFile struct {
	entries []PasswdEntry
}

func LoadPasswd(path string) (*PasswdFile, error) {
	entries, err := loadColonFile(path, 7, func(parts []string) (PasswdEntry, error) {
		uid, err := atoi(parts[2], "passwd.uid")
		if err != nil {
			return PasswdEntry{}, err
		}
		gid, err := atoi(parts[3], "passwd.gid")
		if err != nil {
			return PasswdEntry{}, err
		}
		return PasswdEntry{
			Name:   parts[0],
			Passwd: parts[1],
			UID:    uid,
			GID:    gid,
			Gecos:  parts[4],
			Home:   parts[5],
			Shell:  parts[6],
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &PasswdFile{entries: entries}, nil
}

func (f *PasswdFile) Find(name string) *PasswdEntry {
	for i := range f.entries {
		if f.entries[i].Name == name {
			return &f.entries[i]
		}
	}
	return nil
}

// FindByUID returns the first entry with uid, as getpwuid(3) does.
func (f *PasswdFile) FindByUID(uid int) *PasswdEntry {
	for i := range f.entries {
		if f.entries[i].UID == uid {
			return &f.entries[i]
		}
	}
	return nil
}

func (f *PasswdFile) List() []PasswdEntry {
	return append([]PasswdEntry(nil), f.entries...)
}

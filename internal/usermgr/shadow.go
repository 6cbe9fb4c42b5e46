package usermgr

type ShadowFile struct {
	entries []ShadowEntry
}

func LoadShadow(path string) (*ShadowFile, error) {
	entries, err := loadColonFile(path, 2, func(parts []string) (ShadowEntry, error) {
		for len(parts) < 9 {
			parts = append(parts, "")
		}
		return ShadowEntry{
			Name:       parts[0],
			Hash:       parts[1],
			LastChange: parts[2],
			Expire:     parts[7],
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &ShadowFile{entries: entries}, nil
}

func (f *ShadowFile) Find(name string) *ShadowEntry {
	for i := range f.entries {
		if f.entries[i].Name == name {
			return &f.entries[i]
		}
	}
	return nil
}

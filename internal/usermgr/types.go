package usermgr

type PasswdEntry struct {
	Name   string
	Passwd string
	UID    int
	GID    int
	Gecos  string
	Home   string
	Shell  string
}

type ShadowEntry struct {
	Name       string
	Hash       string
	LastChange string
	Expire     string
}

// Locked reports whether the entry cannot be used to log in with a password.
func (e ShadowEntry) Locked() bool {
	return e.Hash == "" || e.Hash[0] == '!' || e.Hash[0] == '*'
}

type GroupEntry struct {
	Name    string
	Passwd  string
	GID     int
	Members []string
}

func (g GroupEntry) HasMember(user string) bool {
	for _, m := range g.Members {
		if m == user {
			return true
		}
	}
	return false
}

package usermgr

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// Accounts resolves users against one set of account files.
type Accounts struct {
	PasswdPath string
	ShadowPath string
	GroupPath  string
}

// UserByUID returns the login name owning uid.
func (a *Accounts) UserByUID(uid int) (string, error) {
	pw, err := LoadPasswd(a.PasswdPath)
	if err != nil {
		return "", err
	}
	e := pw.FindByUID(uid)
	if e == nil {
		return "", fmt.Errorf("%w: uid %d", ErrUserNotFound, uid)
	}
	return e.Name, nil
}

func (a *Accounts) Exists(name string) (bool, error) {
	pw, err := LoadPasswd(a.PasswdPath)
	if err != nil {
		return false, err
	}
	return pw.Find(name) != nil, nil
}

// Shadow returns the shadow entry of name.
func (a *Accounts) Shadow(name string) (*ShadowEntry, error) {
	sh, err := LoadShadow(a.ShadowPath)
	if err != nil {
		return nil, err
	}
	e := sh.Find(name)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, name)
	}
	return e, nil
}

// InAnyGroup reports whether name is a member of one of groups, either as a
// listed member or through its primary group.
func (a *Accounts) InAnyGroup(name string, groups ...string) (bool, error) {
	gr, err := LoadGroup(a.GroupPath)
	if err != nil {
		return false, err
	}
	primary := -1
	if pw, err := LoadPasswd(a.PasswdPath); err == nil {
		if e := pw.Find(name); e != nil {
			primary = e.GID
		}
	}
	for _, gname := range groups {
		g := gr.Find(gname)
		if g == nil {
			continue
		}
		if g.HasMember(name) || g.GID == primary {
			return true, nil
		}
	}
	return false, nil
}

package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GehirnInc/crypt"
	"github.com/GehirnInc/crypt/md5_crypt"
	"github.com/GehirnInc/crypt/sha256_crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"

	"github.com/deepin-community/fprintd/internal/usermgr"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserLocked         = errors.New("user is locked")
	ErrUnsupportedHash    = errors.New("unsupported password hash")
)

// AdminGroups grant the right to act for other users.
var AdminGroups = []string{"sudo", "wheel"}

type Authenticator struct {
	Accounts *usermgr.Accounts
	// SuFallback checks hashes crypt cannot handle (yescrypt) by running su.
	SuFallback bool
}

func (a *Authenticator) VerifyPassword(username, password string) error {
	se, err := a.Accounts.Shadow(username)
	if err != nil {
		if errors.Is(err, usermgr.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if se.Locked() {
		return ErrUserLocked
	}
	ok, err := verifyCrypt(se.Hash, password)
	if errors.Is(err, ErrUnsupportedHash) && a.SuFallback {
		ok, err = verifyWithSu(username, password)
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func verifyCrypt(hash, password string) (bool, error) {
	// $1$ (md5-crypt), $5$ (sha256-crypt) and $6$ (sha512-crypt) only.
	crypters := []crypt.Crypter{sha512_crypt.New(), sha256_crypt.New(), md5_crypt.New()}
	for _, c := range crypters {
		if err := c.Verify(hash, []byte(password)); err == nil {
			return true, nil
		}
	}

	// Ubuntu commonly uses yescrypt ($y$).
	if strings.HasPrefix(hash, "$y$") || strings.HasPrefix(hash, "$7$") || strings.HasPrefix(hash, "$2") {
		return false, ErrUnsupportedHash
	}
	return false, nil
}

func (a *Authenticator) IsAdmin(username string) (bool, error) {
	return a.Accounts.InAnyGroup(username, AdminGroups...)
}

func HumanAuthError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, ErrUserLocked):
		return "This account is locked."
	case errors.Is(err, ErrUnsupportedHash):
		return "This host uses a password hash format that cannot be checked here."
	default:
		return fmt.Sprintf("Authentication failed: %v", err)
	}
}

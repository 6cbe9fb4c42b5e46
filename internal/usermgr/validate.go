package usermgr

import "regexp"

var usernameRe = regexp.MustCompile(`^[a-z_][a-z0-9_-]{0,31}\$?$`)

// ValidUsername accepts the names useradd(8) accepts by default: lowercase
// letters, digits, underscore and dash, starting with a letter or underscore,
// with an optional trailing $ for machine accounts.
func ValidUsername(u string) bool {
	return usernameRe.MatchString(u)
}

// Package auth authenticates callers of the daemon's HTTP boundary against
// the host account database and hands out signed identity tokens.
//
// A token names the caller and whether the caller may act on behalf of other
// users, which host administrators (members of sudo or wheel) may do.
package auth

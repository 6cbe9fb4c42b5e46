// Package usermgr reads the host account database (passwd, shadow and group
// files) to resolve the users that talk to the simulated daemon.
//
// Files are only read; the daemon never edits accounts.
package usermgr

package hostfs

import (
	"os"
	"strings"
)

// Well-known host file locations.
const (
	EtcPasswd = "/etc/passwd"
	EtcShadow = "/etc/shadow"
	EtcGroup  = "/etc/group"
)

// StateDirectoryEnv is set by systemd for units declaring StateDirectory=.
const StateDirectoryEnv = "STATE_DIRECTORY"

// StateDir picks the directory holding persistent state. An explicit dir
// wins; otherwise the first entry of $STATE_DIRECTORY is used, which systemd
// sets to a colon separated list. It returns "" when neither is set.
func StateDir(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return firstListEntry(os.Getenv(StateDirectoryEnv))
}

func firstListEntry(list string) string {
	first, _, _ := strings.Cut(list, ":")
	return strings.TrimSpace(first)
}

// Package hostfs resolves and accesses the files the daemon reads from the
// machine it simulates: the account database and the state directory.
//
// Paths may be rebased under a root, so a container can point the daemon at
// a host filesystem mounted elsewhere (for instance /etc/passwd read from
// /host/etc/passwd).
package hostfs

import (
	"errors"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid host path")

// Abs maps an absolute host path under root. An empty root leaves the path as is.
// Example: Abs("/host", "/etc/passwd") -> /host/etc/passwd
func Abs(root, abs string) (string, error) {
	if abs == "" || !strings.HasPrefix(abs, "/") {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(abs)
	if root == "" {
		return clean, nil
	}
	return filepath.Join(root, strings.TrimPrefix(clean, "/")), nil
}

// Path joins root with a relative path (no leading slash). Paths escaping
// root are rejected.
func Path(root, rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	clean := filepath.Clean(rel)
	if clean == "." || clean == "" {
		return "", ErrInvalidPath
	}
	if strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	if root == "" {
		root = "/"
	}
	return filepath.Join(root, clean), nil
}

// Package storage keeps the enrolled-prints table of every simulated reader
// in a single YAML file, so that enrollments survive a daemon restart.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/deepin-community/fprintd/internal/hostfs"
)

const FileName = "prints.yaml"

// PrintStore implements device.PrintStore on top of a YAML file.
type PrintStore struct {
	mu   sync.Mutex
	path string
}

func NewPrintStore(path string) *PrintStore {
	return &PrintStore{path: path}
}

// DefaultPath returns the prints file inside stateDir, or "" when there is no
// state directory.
func DefaultPath(stateDir string) string {
	if stateDir == "" {
		return ""
	}
	return filepath.Join(stateDir, FileName)
}

func (s *PrintStore) Path() string { return s.path }

// Ensure creates the backing directory and an empty file if missing.
func (s *PrintStore) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := hostfs.EnsureDir(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.saveLocked(state{})
		}
		return err
	}
	return nil
}

func (s *PrintStore) Load(device string) (map[string][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	return st.Devices[device], nil
}

func (s *PrintStore) Save(device string, prints map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocked()
	if err != nil {
		return err
	}
	if st.Devices == nil {
		st.Devices = map[string]map[string][]string{}
	}
	st.Devices[device] = prints
	return s.saveLocked(st)
}

// Devices lists the device names that have a stored table.
func (s *PrintStore) Devices() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(st.Devices))
	for name := range st.Devices {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

type state struct {
	Devices map[string]map[string][]string `yaml:"devices"`
}

func (s *PrintStore) loadLocked() (state, error) {
	b, err := hostfs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return state{}, nil
		}
		return state{}, err
	}
	if len(b) == 0 {
		return state{}, nil
	}
	var st state
	if err := yaml.Unmarshal(b, &st); err != nil {
		return state{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return st, nil
}

func (s *PrintStore) saveLocked(st state) error {
	if err := hostfs.EnsureDir(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if st.Devices == nil {
		st.Devices = map[string]map[string][]string{}
	}
	b, err := yaml.Marshal(st)
	if err != nil {
		return err
	}
	return hostfs.WriteFileAtomic(s.path, b, 0o600)
}

package hostfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAbs(t *testing.T) {
	p, err := Abs("", "/etc//passwd")
	require.NoError(t, err)
	require.Equal(t, "/etc/passwd", p)

	p, err = Abs("/host", EtcShadow)
	require.NoError(t, err)
	require.Equal(t, "/host/etc/shadow", p)

	_, err = Abs("/host", "etc/passwd")
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestPath(t *testing.T) {
	p, err := Path("/host", "etc/group")
	require.NoError(t, err)
	require.Equal(t, "/host/etc/group", p)

	_, err = Path("/host", "../etc/group")
	require.ErrorIs(t, err, ErrInvalidPath)
	_, err = Path("/host", "")
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestStateDir(t *testing.T) {
	t.Setenv(StateDirectoryEnv, "/var/lib/fprint:/var/lib/other")
	require.Equal(t, "/var/lib/fprint", StateDir(""))
	require.Equal(t, "/tmp/x", StateDir("/tmp/x"))

	t.Setenv(StateDirectoryEnv, "")
	require.Equal(t, "", StateDir(""))
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "prints.yaml")
	require.NoError(t, EnsureDir(filepath.Dir(path), 0o755))

	require.NoError(t, WriteFileAtomic(path, []byte("one\n"), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte("two\n"), 0o600))

	b, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two\n", string(b))

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

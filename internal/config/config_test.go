package config

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepin-community/fprintd/internal/device"
	"github.com/deepin-community/fprintd/internal/events"
	"github.com/deepin-community/fprintd/internal/mainloop"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseDefaults(t *testing.T) {
	t.Setenv("STATE_DIRECTORY", "")
	cfg, err := Parse(newFlagSet(), nil)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:14392", cfg.ListenAddr)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
	require.Equal(t, "/etc/passwd", cfg.PasswdPath)
	require.Equal(t, 0, cfg.DefaultUID)
	require.Empty(t, cfg.StateDir)
}

func TestParseEnvAndFlags(t *testing.T) {
	t.Setenv("FPRINT_MOCK_LISTEN", ":9000")
	t.Setenv("FPRINT_MOCK_DEBUG", "true")
	t.Setenv("FPRINT_MOCK_DEFAULT_UID", "1000")
	t.Setenv("STATE_DIRECTORY", "/var/lib/fprint:/var/lib/other")

	cfg, err := Parse(newFlagSet(), []string{"-listen", ":9001"})
	require.NoError(t, err)
	require.Equal(t, ":9001", cfg.ListenAddr)
	require.True(t, cfg.Debug)
	require.Equal(t, 1000, cfg.DefaultUID)
	require.Equal(t, "/var/lib/fprint", cfg.StateDir)
}

func TestParseRejectsBadValues(t *testing.T) {
	t.Setenv("FPRINT_MOCK_TOKEN_TTL", "-1s")
	_, err := Parse(newFlagSet(), nil)
	require.Error(t, err)

	t.Setenv("FPRINT_MOCK_TOKEN_TTL", "1h")
	t.Setenv("FPRINT_MOCK_DEFAULT_UID", "many")
	_, err = Parse(newFlagSet(), nil)
	require.Error(t, err)
}

func TestAccountPaths(t *testing.T) {
	cfg := Config{HostRoot: "/host", PasswdPath: "/etc/passwd", ShadowPath: "/etc/shadow", GroupPath: "/etc/group"}
	p, s, g, err := cfg.AccountPaths()
	require.NoError(t, err)
	require.Equal(t, "/host/etc/passwd", p)
	require.Equal(t, "/host/etc/shadow", s)
	require.Equal(t, "/host/etc/group", g)

	cfg.ShadowPath = "relative"
	_, _, _, err = cfg.AccountPaths()
	require.Error(t, err)
}

const seedYAML = `devices:
  - name: Fake Press Reader
    num_enroll_stages: 3
    scan_type: press
    enrolled:
      toto: [left-thumb, right-index-finger]
    claimed: toto
    script:
      - {result: verify-match, done: true, delay_ms: 5}
  - name: Fake Swipe Reader
    scan_type: swipe
    has_identification: true
`

func TestLoadAndApplySeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	seed, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Devices, 2)
	require.Equal(t, 5, seed.Devices[1].NumEnrollStages)
	require.True(t, seed.Devices[1].HasIdentification)
	require.Equal(t, 5, seed.Devices[0].Script[0].DelayMillis)

	loop := mainloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	reg := device.NewRegistry(loop, events.Discard)

	ids, err := seed.Apply(reg)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	states, err := reg.Snapshot()
	require.NoError(t, err)
	require.Equal(t, "toto", states[0].ClaimedUser)
	require.Equal(t, []string{"left-thumb", "right-index-finger"}, states[0].Enrolled["toto"])
	require.Equal(t, 1, states[0].ScriptPending)
	require.Equal(t, "swipe", states[1].Properties.ScanType)
}

func TestLoadSeedRejectsBadDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("devices:\n  - name: x\n    scan_type: wave\n"), 0o644))
	_, err := LoadSeed(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("devices:\n  - scan_type: press\n"), 0o644))
	_, err = LoadSeed(path)
	require.Error(t, err)
}

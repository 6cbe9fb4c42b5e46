// Package config loads the daemon settings from FPRINT_MOCK_* environment
// variables overlaid by command line flags, and the optional YAML seed that
// describes the readers to create at startup.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/deepin-community/fprintd/internal/hostfs"
)

type Config struct {
	ListenAddr string `env:"FPRINT_MOCK_LISTEN" envDefault:"127.0.0.1:14392"`
	// StateDir holds prints.yaml. Falls back to $STATE_DIRECTORY; empty disables persistence.
	StateDir string `env:"FPRINT_MOCK_STATE_DIR"`
	LogDir   string `env:"FPRINT_MOCK_LOG_DIR"`
	Debug    bool   `env:"FPRINT_MOCK_DEBUG"`

	JWTSecret string        `env:"FPRINT_MOCK_JWT_SECRET"`
	TokenTTL  time.Duration `env:"FPRINT_MOCK_TOKEN_TTL" envDefault:"24h"`
	SuAuth    bool          `env:"FPRINT_MOCK_SU_AUTH"`

	// HostRoot rebases the account files, e.g. /host in a container.
	HostRoot   string `env:"FPRINT_MOCK_HOST_ROOT"`
	PasswdPath string `env:"FPRINT_MOCK_PASSWD" envDefault:"/etc/passwd"`
	ShadowPath string `env:"FPRINT_MOCK_SHADOW" envDefault:"/etc/shadow"`
	GroupPath  string `env:"FPRINT_MOCK_GROUP" envDefault:"/etc/group"`
	// DefaultUID identifies callers that present no token.
	DefaultUID int `env:"FPRINT_MOCK_DEFAULT_UID" envDefault:"0"`

	SeedPath string `env:"FPRINT_MOCK_SEED"`

	// LoginRate and LoginBurst throttle /api/login per remote address.
	LoginRate  float64 `env:"FPRINT_MOCK_LOGIN_RATE" envDefault:"1"`
	LoginBurst int     `env:"FPRINT_MOCK_LOGIN_BURST" envDefault:"5"`
}

// Parse reads the environment, then args through fs.
func Parse(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address (FPRINT_MOCK_LISTEN)")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for prints.yaml (FPRINT_MOCK_STATE_DIR or STATE_DIRECTORY)")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for daily log files (FPRINT_MOCK_LOG_DIR)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging (FPRINT_MOCK_DEBUG)")
	fs.StringVar(&cfg.HostRoot, "host-root", cfg.HostRoot, "prefix for the account files (FPRINT_MOCK_HOST_ROOT)")
	fs.IntVar(&cfg.DefaultUID, "default-uid", cfg.DefaultUID, "uid of callers without a token (FPRINT_MOCK_DEFAULT_UID)")
	fs.StringVar(&cfg.SeedPath, "seed", cfg.SeedPath, "YAML file describing devices to add at startup (FPRINT_MOCK_SEED)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.StateDir = hostfs.StateDir(cfg.StateDir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		return fmt.Errorf("login rate and burst must be positive")
	}
	if c.DefaultUID < 0 {
		return fmt.Errorf("default uid must not be negative")
	}
	return nil
}

// AccountPaths returns the passwd, shadow and group paths rebased under HostRoot.
func (c Config) AccountPaths() (passwd, shadow, group string, err error) {
	if passwd, err = hostfs.Abs(c.HostRoot, c.PasswdPath); err != nil {
		return "", "", "", fmt.Errorf("passwd path: %w", err)
	}
	if shadow, err = hostfs.Abs(c.HostRoot, c.ShadowPath); err != nil {
		return "", "", "", fmt.Errorf("shadow path: %w", err)
	}
	if group, err = hostfs.Abs(c.HostRoot, c.GroupPath); err != nil {
		return "", "", "", fmt.Errorf("group path: %w", err)
	}
	return passwd, shadow, group, nil
}

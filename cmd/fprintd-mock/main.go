// Command fprintd-mock runs a simulated fprintd daemon: fingerprint readers
// that a test harness adds, scripts and drives over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/deepin-community/fprintd/internal/auth"
	"github.com/deepin-community/fprintd/internal/config"
	"github.com/deepin-community/fprintd/internal/device"
	"github.com/deepin-community/fprintd/internal/events"
	"github.com/deepin-community/fprintd/internal/logger"
	"github.com/deepin-community/fprintd/internal/mainloop"
	"github.com/deepin-community/fprintd/internal/server"
	"github.com/deepin-community/fprintd/internal/storage"
	"github.com/deepin-community/fprintd/internal/usermgr"
)

func main() {
	if err := run(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		return err
	}
	logger.SetDebug(cfg.Debug)
	if err := logger.Init(cfg.LogDir); err != nil {
		return fmt.Errorf("init logs: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := mainloop.New()
	go loop.Run(ctx)
	bus := events.NewBus()

	var opts []device.Option
	if path := storage.DefaultPath(cfg.StateDir); path != "" {
		store := storage.NewPrintStore(path)
		if err := store.Ensure(); err != nil {
			return fmt.Errorf("prints store: %w", err)
		}
		logger.Info("persisting enrolled prints in %s", path)
		opts = append(opts, device.WithStore(store))
	}
	reg := device.NewRegistry(loop, bus, opts...)

	if cfg.SeedPath != "" {
		seed, err := config.LoadSeed(cfg.SeedPath)
		if err != nil {
			return err
		}
		ids, err := seed.Apply(reg)
		if err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
		logger.Info("seeded %d device(s) from %s", len(ids), cfg.SeedPath)
	}

	passwd, shadow, group, err := cfg.AccountPaths()
	if err != nil {
		return err
	}
	accounts := &usermgr.Accounts{PasswdPath: passwd, ShadowPath: shadow, GroupPath: group}

	secretText := cfg.JWTSecret
	if secretText == "" {
		// Tokens do not survive a restart without a configured secret.
		s, err := auth.NewRandomSecretB64(32)
		if err != nil {
			return err
		}
		secretText = s
	}

	app, err := server.NewApp(server.Options{
		Registry:   reg,
		Bus:        bus,
		Accounts:   accounts,
		Auth:       &auth.Authenticator{Accounts: accounts, SuFallback: cfg.SuAuth},
		Secret:     auth.DecodeSecret(secretText),
		TokenTTL:   cfg.TokenTTL,
		DefaultUID: cfg.DefaultUID,
		LoginRate:  rate.Limit(cfg.LoginRate),
		LoginBurst: cfg.LoginBurst,
	})
	if err != nil {
		return err
	}

	logger.Info("fprintd-mock listening on %s", cfg.ListenAddr)
	err = server.New(server.Config{ListenAddr: cfg.ListenAddr}, app).ListenAndServe(ctx)
	loop.Stop()
	<-loop.Done()
	return err
}

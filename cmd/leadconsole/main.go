package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/goliatone/go-leadconsole/internal/config"
	"github.com/goliatone/go-leadconsole/internal/console"
	"github.com/goliatone/go-leadconsole/internal/fakeapi"
	"github.com/goliatone/go-leadconsole/internal/logging"
	"github.com/goliatone/go-leadconsole/pkg/client"
	"github.com/goliatone/go-leadconsole/pkg/resources"
	"github.com/goliatone/go-leadconsole/pkg/session"
	"github.com/goliatone/go-leadconsole/pkg/transport"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "leadconsole: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New(cfg.Log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("leadconsole stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	baseURL := cfg.API.BaseURL
	var store session.Store = session.NewFileStore(cfg.SessionFile)

	if cfg.Demo {
		api := fakeapi.New(
			fakeapi.WithDemoLeads(25),
			fakeapi.WithLogger(logger.With().Str("component", "demo-api").Logger()),
		)
		url, err := api.Start(ctx, cfg.DemoAddr)
		if err != nil {
			return err
		}
		baseURL = url
		store = session.NewMemoryStore(session.State{})
		admin := fakeapi.DefaultOptions().Admin
		fmt.Printf("Demo API at %s. Sign in as %s / %s\n", url, admin.Email, admin.Password)
	}

	sess := session.New(store, session.WithLogger(logger))
	if err := sess.Init(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	opts := []transport.Option{
		transport.WithTimeout(cfg.API.Timeout),
		transport.WithTokenSource(sess),
		transport.WithLogger(logger),
	}
	if cfg.API.AuthScheme != "" {
		opts = append(opts, transport.WithAuthScheme(cfg.API.AuthScheme))
	}
	if cfg.API.RateLimit > 0 {
		opts = append(opts, transport.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst))
	}
	doer, err := transport.New(baseURL, opts...)
	if err != nil {
		return err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	c := console.New(client.New(doer), sess,
		console.WithRegistry(registry),
		console.WithLogger(logger),
	)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRegistry(cfg config.Config) (*resources.Registry, error) {
	leads := resources.Leads()
	if cfg.LeadsPageSize > 0 {
		leads.PageSize = cfg.LeadsPageSize
	}
	users := resources.Users()
	if cfg.UsersPageSize > 0 {
		users.PageSize = cfg.UsersPageSize
	}

	registry := resources.NewRegistry()
	for _, res := range []resources.Resource{leads, users} {
		if err := registry.Register(res); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

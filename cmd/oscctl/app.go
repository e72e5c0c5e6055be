package main

import (
	"context"
	"strings"

	"github.com/danmuck/oscctl/internal/router"
	"github.com/danmuck/oscctl/internal/settings"
	"github.com/danmuck/oscctl/internal/transport"
	"github.com/pkg/errors"
)

// cliOptions carries the persistent flags shared by every command.
type cliOptions struct {
	configPath string
	logLevel   string
	host       string
	port       string
	output     string
}

type closeFunc func() error

func openProvider(cfg appConfig) (settings.Provider, closeFunc, error) {
	switch cfg.SettingsBackend {
	case backendMemory:
		return settings.NewMemoryStore(), func() error { return nil }, nil
	case backendRedis:
		store := settings.NewRedisStore(cfg.RedisAddr, settings.WithRedisKey(cfg.RedisKey))
		return store, store.Close, nil
	case backendFile, "":
		if strings.TrimSpace(cfg.SettingsPath) == "" {
			return nil, nil, errors.New("settings_path is required for the file backend")
		}
		return settings.NewFileStore(cfg.SettingsPath), func() error { return nil }, nil
	}
	return nil, nil, errors.Errorf("unknown settings backend %q", cfg.SettingsBackend)
}

// loadTarget reads the stored settings and applies config and flag
// overrides, without building a router.
func loadTarget(ctx context.Context, cfg appConfig, opts *cliOptions) (settings.Settings, error) {
	provider, closeProvider, err := openProvider(cfg)
	if err != nil {
		return settings.Settings{}, errors.Wrap(err, "opening settings store")
	}
	defer closeProvider()
	stored, err := provider.Load(ctx)
	if err != nil {
		return settings.Settings{}, errors.Wrap(err, "loading settings")
	}
	current, _ := targetOverride(stored, cfg, opts)
	return current.Normalized(), nil
}

// session is one CLI invocation's router, built over the configured
// settings store with any config or flag target applied on top.
type session struct {
	cfg      appConfig
	provider settings.Provider
	router   *router.Router
	close    closeFunc
}

func openSession(ctx context.Context, cfg appConfig, opts *cliOptions, layers int) (*session, error) {
	provider, closeProvider, err := openProvider(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "opening settings store")
	}
	rcfg := cfg.routerConfig()
	if layers > rcfg.LayerCount {
		rcfg.LayerCount = layers
	}
	r := router.New(rcfg, transport.New(cfg.transportConfig()), provider)

	current, err := r.LoadSettings(ctx)
	if err != nil {
		r.Close()
		_ = closeProvider()
		return nil, errors.Wrap(err, "loading settings")
	}
	if override, ok := targetOverride(current, cfg, opts); ok {
		r.UseSettings(override)
	}
	return &session{cfg: cfg, provider: provider, router: r, close: closeProvider}, nil
}

func (s *session) Close() error {
	s.router.Close()
	return s.close()
}

// targetOverride applies config-file then flag host/port over the stored
// settings.
func targetOverride(stored settings.Settings, cfg appConfig, opts *cliOptions) (settings.Settings, bool) {
	out := stored
	changed := false
	for _, layer := range []settings.Settings{{Host: cfg.Host, Port: cfg.Port}, {Host: opts.host, Port: opts.port}} {
		if h := strings.TrimSpace(layer.Host); h != "" {
			out.Host = h
			changed = true
		}
		if p := strings.TrimSpace(layer.Port); p != "" {
			out.Port = p
			changed = true
		}
	}
	return out, changed
}

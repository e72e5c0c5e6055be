package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/oscctl/internal/control"
	"github.com/danmuck/oscctl/internal/router"
	"github.com/danmuck/oscctl/internal/settings"
	"github.com/danmuck/oscctl/internal/transport"
)

const (
	backendFile   = "file"
	backendRedis  = "redis"
	backendMemory = "memory"

	defaultSettingsPath = "oscctl.settings.toml"
	defaultRedisAddr    = "127.0.0.1:6379"
)

type appConfig struct {
	Name            string
	LogLevel        string
	Host            string
	Port            string
	Layers          int
	ListenAddr      string
	CorsOrigins     []string
	ControlToken    string
	TriggerInterval time.Duration
	ResolveTimeout  time.Duration
	WriteTimeout    time.Duration
	SettingsBackend string
	SettingsPath    string
	RedisAddr       string
	RedisKey        string
}

type fileConfig struct {
	Name            string   `toml:"name"`
	LogLevel        string   `toml:"log_level"`
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	Layers          int      `toml:"layers"`
	ListenAddr      string   `toml:"listen_addr"`
	CorsOrigins     []string `toml:"cors_origins"`
	ControlToken    string   `toml:"control_token"`
	TriggerInterval string   `toml:"trigger_interval"`
	ResolveTimeout  string   `toml:"resolve_timeout"`
	WriteTimeout    string   `toml:"write_timeout"`
	SettingsBackend string   `toml:"settings_backend"`
	SettingsPath    string   `toml:"settings_path"`
	RedisAddr       string   `toml:"redis_addr"`
	RedisKey        string   `toml:"redis_key"`
}

func defaultAppConfig() appConfig {
	tc := transport.DefaultConfig()
	rc := router.DefaultConfig()
	return appConfig{
		Name:            control.DefaultName,
		Layers:          rc.LayerCount,
		ListenAddr:      control.DefaultAddr,
		TriggerInterval: rc.TriggerInterval,
		ResolveTimeout:  tc.ResolveTimeout,
		WriteTimeout:    tc.WriteTimeout,
		SettingsBackend: backendFile,
		SettingsPath:    defaultSettingsPath,
		RedisAddr:       defaultRedisAddr,
		RedisKey:        settings.DefaultRedisKey,
	}
}

// loadAppConfig overlays the keys present in path onto the defaults. An
// empty path yields the defaults.
func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return appConfig{}, fmt.Errorf("load oscctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return appConfig{}, fmt.Errorf("load oscctl config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		if raw.Port < 1 || raw.Port > 65535 {
			return appConfig{}, fmt.Errorf("parse port: %d out of range", raw.Port)
		}
		cfg.Port = fmt.Sprint(raw.Port)
	}
	if meta.IsDefined("layers") {
		if raw.Layers < 1 {
			return appConfig{}, fmt.Errorf("parse layers: must be at least 1, got %d", raw.Layers)
		}
		cfg.Layers = raw.Layers
	}
	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("control_token") {
		cfg.ControlToken = strings.TrimSpace(raw.ControlToken)
	}

	durations := []struct {
		key string
		raw string
		out *time.Duration
	}{
		{"trigger_interval", raw.TriggerInterval, &cfg.TriggerInterval},
		{"resolve_timeout", raw.ResolveTimeout, &cfg.ResolveTimeout},
		{"write_timeout", raw.WriteTimeout, &cfg.WriteTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return appConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if v <= 0 {
			return appConfig{}, fmt.Errorf("parse %s: must be positive", d.key)
		}
		*d.out = v
	}

	if meta.IsDefined("settings_backend") {
		backend := strings.ToLower(strings.TrimSpace(raw.SettingsBackend))
		switch backend {
		case backendFile, backendRedis, backendMemory:
			cfg.SettingsBackend = backend
		default:
			return appConfig{}, fmt.Errorf("parse settings_backend: unknown backend %q", raw.SettingsBackend)
		}
	}
	if meta.IsDefined("settings_path") {
		cfg.SettingsPath = strings.TrimSpace(raw.SettingsPath)
	}
	if meta.IsDefined("redis_addr") {
		cfg.RedisAddr = strings.TrimSpace(raw.RedisAddr)
	}
	if meta.IsDefined("redis_key") {
		cfg.RedisKey = strings.TrimSpace(raw.RedisKey)
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (c appConfig) transportConfig() transport.Config {
	return transport.Config{ResolveTimeout: c.ResolveTimeout, WriteTimeout: c.WriteTimeout}
}

func (c appConfig) routerConfig() router.Config {
	return router.Config{LayerCount: c.Layers, TriggerInterval: c.TriggerInterval}
}

func (c appConfig) controlConfig() control.Config {
	return control.Config{Name: c.Name, Addr: c.ListenAddr, CorsOrigins: c.CorsOrigins, Token: c.ControlToken}
}

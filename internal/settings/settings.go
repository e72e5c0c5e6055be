// Package settings persists the user-entered OSC target. Values are kept as
// the raw strings the user typed; ParsePort and Settings.Target validate them
// at the point of use.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultHost = "192.168.1.100"
	DefaultPort = "7000"
)

var (
	ErrBlankHost   = errors.New("settings: host is blank")
	ErrInvalidPort = errors.New("settings: invalid port")
)

type Settings struct {
	Host string `toml:"host" json:"host" yaml:"host"`
	Port string `toml:"port" json:"port" yaml:"port"`
}

func Default() Settings {
	return Settings{Host: DefaultHost, Port: DefaultPort}
}

// Normalized trims both fields.
func (s Settings) Normalized() Settings {
	return Settings{Host: strings.TrimSpace(s.Host), Port: strings.TrimSpace(s.Port)}
}

// Target validates the pair and returns a dialable host and port.
func (s Settings) Target() (string, uint16, error) {
	s = s.Normalized()
	if s.Host == "" {
		return "", 0, ErrBlankHost
	}
	port, err := ParsePort(s.Port)
	if err != nil {
		return "", 0, err
	}
	return s.Host, port, nil
}

// ParsePort accepts decimal ports in 1..65535.
func ParsePort(raw string) (uint16, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, raw)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, raw)
	}
	return uint16(n), nil
}

// Provider loads and stores settings. Load returns Default() when nothing
// has been saved yet.
type Provider interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

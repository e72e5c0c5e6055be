package transport

import "time"

// Config bounds the two blocking steps of the transport.
type Config struct {
	ResolveTimeout time.Duration
	WriteTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		ResolveTimeout: 2 * time.Second,
		WriteTimeout:   time.Second,
	}
}

// WithDefaults fills zero durations from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = def.ResolveTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}

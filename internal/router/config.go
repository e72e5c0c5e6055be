package router

import (
	"time"

	"github.com/danmuck/oscctl/internal/catalog"
)

const DefaultTriggerInterval = 60 * time.Millisecond

type Config struct {
	LayerCount      int
	TriggerInterval time.Duration
	SendLogLimit    int
}

func DefaultConfig() Config {
	return Config{
		LayerCount:      catalog.DefaultLayerCount,
		TriggerInterval: DefaultTriggerInterval,
		SendLogLimit:    DefaultSendLogLimit,
	}
}

func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.LayerCount <= 0 {
		c.LayerCount = d.LayerCount
	}
	if c.TriggerInterval <= 0 {
		c.TriggerInterval = d.TriggerInterval
	}
	if c.SendLogLimit <= 0 {
		c.SendLogLimit = d.SendLogLimit
	}
	return c
}

package router

import (
	"sync"

	"github.com/danmuck/oscctl/internal/settings"
	"github.com/danmuck/oscctl/internal/transport"
)

const StatusNotConnected = "Not connected"

// State is the observable snapshot handed to UIs and subscribers.
type State struct {
	Connected    bool              `json:"connected" yaml:"connected"`
	Status       string            `json:"status" yaml:"status"`
	Target       transport.Target  `json:"target" yaml:"target"`
	Settings     settings.Settings `json:"settings" yaml:"settings"`
	Selection    Selection         `json:"selection" yaml:"selection"`
	Opacity      float32           `json:"opacity" yaml:"opacity"`
	Sending      bool              `json:"sending" yaml:"sending"`
	LastMessage  string            `json:"last_message" yaml:"last_message"`
	Error        string            `json:"error,omitempty" yaml:"error,omitempty"`
	SentMessages []string          `json:"sent_messages" yaml:"sent_messages"`
}

// hub fans snapshots out to subscribers. Each channel holds at most its
// buffer of snapshots; when full the oldest is dropped so publishers never
// block.
type hub struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan State
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan State)}
}

func (h *hub) subscribe(buffer int, initial State) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	ch <- initial

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

func (h *hub) publish(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

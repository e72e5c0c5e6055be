package router

import "sync"

const DefaultSendLogLimit = 20

// SendLog keeps the most recent dispatched addresses, newest first.
type SendLog struct {
	mu      sync.RWMutex
	limit   int
	entries []string
}

func NewSendLog(limit int) *SendLog {
	if limit <= 0 {
		limit = DefaultSendLogLimit
	}
	return &SendLog{
		limit:   limit,
		entries: make([]string, 0, limit),
	}
}

// Push records address as the newest entry and evicts the oldest past the
// limit.
func (l *SendLog) Push(address string) {
	if address == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) < l.limit {
		l.entries = append(l.entries, "")
	}
	copy(l.entries[1:], l.entries[:len(l.entries)-1])
	l.entries[0] = address
}

func (l *SendLog) Entries() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *SendLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *SendLog) Limit() int { return l.limit }

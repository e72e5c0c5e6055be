package udptest

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

// Receiver is a loopback UDP endpoint that records every datagram it sees.
type Receiver struct {
	conn *net.UDPConn

	mu       sync.Mutex
	packets  [][]byte
	arrivals []time.Time
	notify   chan struct{}
	done     chan struct{}
}

func NewReceiver(t testing.TB) *Receiver {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("listen udp: %v", err)
	}
	r := &Receiver{
		conn:   conn,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go r.loop()
	t.Cleanup(r.Close)
	return r
}

func (r *Receiver) loop() {
	defer close(r.done)
	buf := make([]byte, 64*1024)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		r.mu.Lock()
		r.packets = append(r.packets, pkt)
		r.arrivals = append(r.arrivals, time.Now())
		r.mu.Unlock()
		select {
		case r.notify <- struct{}{}:
		default:
		}
	}
}

func (r *Receiver) Host() string {
	return "127.0.0.1"
}

func (r *Receiver) Port() uint16 {
	return uint16(r.conn.LocalAddr().(*net.UDPAddr).Port)
}

func (r *Receiver) PortString() string {
	return strconv.Itoa(int(r.Port()))
}

// WaitFor blocks until at least n datagrams arrived or the timeout elapses.
func (r *Receiver) WaitFor(t testing.TB, n int, timeout time.Duration) [][]byte {
	t.Helper()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if got := r.Packets(); len(got) >= n {
			return got
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			got := r.Packets()
			t.Fatalf("udptest: waited %v for %d datagrams, got %d", timeout, n, len(got))
			return got
		}
	}
}

func (r *Receiver) Packets() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.packets))
	copy(out, r.packets)
	return out
}

func (r *Receiver) Arrivals() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]time.Time, len(r.arrivals))
	copy(out, r.arrivals)
	return out
}

func (r *Receiver) Close() {
	_ = r.conn.Close()
	<-r.done
}

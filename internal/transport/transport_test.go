package transport

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/oscctl/internal/protocol"
	"github.com/danmuck/oscctl/internal/testutil/testlog"
	"github.com/danmuck/oscctl/internal/testutil/udptest"
)

// countingDialer wraps the real UDP dialer and counts socket opens.
type countingDialer struct {
	dials atomic.Int32
}

func (d *countingDialer) DialUDP(raddr *net.UDPAddr) (Conn, error) {
	d.dials.Add(1)
	return udpDialer{}.DialUDP(raddr)
}

type fakeConn struct {
	closes   atomic.Int32
	writeErr error
}

func (c *fakeConn) Write(b []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	return len(b), nil
}
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) LocalAddr() net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}
}

func (c *fakeConn) Close() error {
	c.closes.Add(1)
	return nil
}

type fakeDialer struct {
	mu       sync.Mutex
	conns    []*fakeConn
	err      error
	writeErr error
}

func (d *fakeDialer) DialUDP(*net.UDPAddr) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{writeErr: d.writeErr}
	d.conns = append(d.conns, c)
	return c, nil
}

type fakeResolver struct {
	addrs []net.IPAddr
	err   error
	calls atomic.Int32
}

func (r *fakeResolver) LookupIPAddr(context.Context, string) ([]net.IPAddr, error) {
	r.calls.Add(1)
	return r.addrs, r.err
}

func TestSendBeforeConnectIsNotConnected(t *testing.T) {
	testlog.Start(t)
	dialer := &fakeDialer{}
	tr := New(DefaultConfig(), WithDialer(dialer))

	err := tr.Send(context.Background(), "/composition/master")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if KindOf(err) != KindNotConnected {
		t.Fatalf("expected KindNotConnected, got %v", KindOf(err))
	}
	if len(dialer.conns) != 0 {
		t.Fatalf("no socket may be opened by a failed send, got %d", len(dialer.conns))
	}
	if tr.IsConnected() {
		t.Fatalf("transport must stay disconnected")
	}
}

func TestConnectSameTargetIsNoop(t *testing.T) {
	testlog.Start(t)
	rx := udptest.NewReceiver(t)
	dialer := &countingDialer{}
	tr := New(DefaultConfig(), WithDialer(dialer))
	defer tr.Disconnect()

	ctx := context.Background()
	if err := tr.Connect(ctx, rx.Host(), rx.Port()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	first := tr.LocalAddr().String()
	if err := tr.Connect(ctx, rx.Host(), rx.Port()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}

	if n := dialer.dials.Load(); n != 1 {
		t.Fatalf("expected one dial, got %d", n)
	}
	if got := tr.LocalAddr().String(); got != first {
		t.Fatalf("socket changed on same-target connect: %s -> %s", first, got)
	}
	target, ok := tr.Target()
	if !ok || target != (Target{Host: rx.Host(), Port: rx.Port()}) {
		t.Fatalf("unexpected target %+v ok=%v", target, ok)
	}
}

func TestConnectNewTargetClosesPrevious(t *testing.T) {
	testlog.Start(t)
	dialer := &fakeDialer{}
	tr := New(DefaultConfig(), WithDialer(dialer))
	ctx := context.Background()

	if err := tr.Connect(ctx, "10.0.0.5", 7000); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := tr.Connect(ctx, "10.0.0.5", 7001); err != nil {
		t.Fatalf("connect new target: %v", err)
	}
	if len(dialer.conns) != 2 {
		t.Fatalf("expected 2 sockets, got %d", len(dialer.conns))
	}
	if dialer.conns[0].closes.Load() != 1 || dialer.conns[1].closes.Load() != 0 {
		t.Fatalf("previous socket must close before the new one is used")
	}

	tr.Disconnect()
	tr.Disconnect()
	if n := dialer.conns[1].closes.Load(); n != 1 {
		t.Fatalf("socket must close exactly once, closed %d times", n)
	}
	if tr.IsConnected() {
		t.Fatalf("transport must be disconnected")
	}
	if _, ok := tr.Target(); ok {
		t.Fatalf("target must be cleared on disconnect")
	}
}

func TestConnectInvalidInput(t *testing.T) {
	testlog.Start(t)
	tr := New(DefaultConfig(), WithDialer(&fakeDialer{}))
	ctx := context.Background()

	if err := tr.Connect(ctx, "  ", 7000); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank host: expected ErrInvalidInput, got %v", err)
	}
	if err := tr.Connect(ctx, "10.0.0.5", 0); KindOf(err) != KindInvalidInput {
		t.Fatalf("zero port: expected KindInvalidInput, got %v", err)
	}
}

func TestConnectResolutionFailure(t *testing.T) {
	testlog.Start(t)
	cause := errors.New("no such host")
	resolver := &fakeResolver{err: cause}
	tr := New(DefaultConfig(), WithDialer(&fakeDialer{}), WithResolver(resolver))

	err := tr.Connect(context.Background(), "resolume.invalid", 7000)
	if !errors.Is(err, ErrResolution) || !errors.Is(err, cause) {
		t.Fatalf("expected resolution failure wrapping the cause, got %v", err)
	}
	if tr.IsConnected() {
		t.Fatalf("failed resolution must leave the transport disconnected")
	}
}

func TestConnectResolvesHostnamePreferringIPv4(t *testing.T) {
	testlog.Start(t)
	rx := udptest.NewReceiver(t)
	resolver := &fakeResolver{addrs: []net.IPAddr{{IP: net.ParseIP("::1")}, {IP: net.IPv4(127, 0, 0, 1)}}}
	tr := New(DefaultConfig(), WithResolver(resolver))
	defer tr.Disconnect()

	if err := tr.Connect(context.Background(), "arena.local", rx.Port()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := tr.Send(context.Background(), "/composition/master"); err != nil {
		t.Fatalf("send: %v", err)
	}
	got := rx.WaitFor(t, 1, time.Second)
	if want := protocol.Encode("/composition/master"); !bytes.Equal(got[0], want) {
		t.Fatalf("datagram % x want % x", got[0], want)
	}
	if n := resolver.calls.Load(); n != 1 {
		t.Fatalf("expected one lookup, got %d", n)
	}
}

func TestConnectSocketFailure(t *testing.T) {
	testlog.Start(t)
	tr := New(DefaultConfig(), WithDialer(&fakeDialer{err: errors.New("emfile")}))
	if err := tr.Connect(context.Background(), "10.0.0.5", 7000); !errors.Is(err, ErrSocket) {
		t.Fatalf("expected ErrSocket, got %v", err)
	}
	if tr.IsConnected() {
		t.Fatalf("failed dial must leave the transport disconnected")
	}
}

func TestSendWriteFailureIsSocketFailure(t *testing.T) {
	testlog.Start(t)
	tr := New(DefaultConfig(), WithDialer(&fakeDialer{writeErr: errors.New("host unreachable")}))
	if err := tr.Connect(context.Background(), "10.0.0.5", 7000); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := tr.Send(context.Background(), "/a", int32(1)); KindOf(err) != KindSocket {
		t.Fatalf("expected KindSocket, got %v", err)
	}
	if !tr.IsConnected() {
		t.Fatalf("a failed send keeps the socket")
	}
}

func TestSendCancelledContext(t *testing.T) {
	testlog.Start(t)
	tr := New(DefaultConfig(), WithDialer(&fakeDialer{}))
	if err := tr.Connect(context.Background(), "10.0.0.5", 7000); err != nil {
		t.Fatalf("connect: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.Send(ctx, "/a")
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrSocket) {
		t.Fatalf("expected cancelled socket failure, got %v", err)
	}
}

func TestSendDeliversEncodedDatagram(t *testing.T) {
	testlog.Start(t)
	rx := udptest.NewReceiver(t)
	tr := New(DefaultConfig())
	defer tr.Disconnect()

	ctx := context.Background()
	if err := tr.Connect(ctx, rx.Host(), rx.Port()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := tr.Send(ctx, "/composition/layers/2/clips/3/connect", int32(1)); err != nil {
		t.Fatalf("send: %v", err)
	}

	got := rx.WaitFor(t, 1, time.Second)
	if want := protocol.Encode("/composition/layers/2/clips/3/connect", int32(1)); !bytes.Equal(got[0], want) {
		t.Fatalf("datagram % x want % x", got[0], want)
	}
}

func TestConcurrentSendAndDisconnect(t *testing.T) {
	testlog.Start(t)
	dialer := &fakeDialer{}
	tr := New(DefaultConfig(), WithDialer(dialer))
	ctx := context.Background()
	if err := tr.Connect(ctx, "10.0.0.5", 7000); err != nil {
		t.Fatalf("connect: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				err := tr.Send(ctx, "/a", int32(j))
				if err != nil && KindOf(err) != KindNotConnected {
					t.Errorf("unexpected send error: %v", err)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				tr.Disconnect()
				_ = tr.Connect(ctx, "10.0.0.5", 7000)
			}
		}()
	}
	wg.Wait()
	tr.Disconnect()

	dialer.mu.Lock()
	defer dialer.mu.Unlock()
	for i, c := range dialer.conns {
		if n := c.closes.Load(); n != 1 {
			t.Fatalf("conn %d closed %d times", i, n)
		}
	}
}

func TestErrorMessage(t *testing.T) {
	err := newError(KindResolution, "connect", errors.New("boom"))
	if got := err.Error(); got != "transport: resolution failure op=connect: boom" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := newError(KindNotConnected, "send", nil).Error(); got != "transport: not connected op=send" {
		t.Fatalf("unexpected message %q", got)
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("plain errors have no kind")
	}
}

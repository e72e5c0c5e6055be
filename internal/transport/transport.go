package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/oscctl/internal/logging"
	"github.com/danmuck/oscctl/internal/observability"
	"github.com/danmuck/oscctl/internal/protocol"
)

// Target is the remote OSC endpoint.
type Target struct {
	Host string `json:"host" yaml:"host"`
	Port uint16 `json:"port" yaml:"port"`
}

func (t Target) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// Conn is the slice of *net.UDPConn the transport uses.
type Conn interface {
	Write(b []byte) (int, error)
	SetWriteDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// Dialer opens a connected UDP socket to raddr.
type Dialer interface {
	DialUDP(raddr *net.UDPAddr) (Conn, error)
}

// Resolver looks up host addresses; *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

type udpDialer struct{}

func (udpDialer) DialUDP(raddr *net.UDPAddr) (Conn, error) {
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Option func(*Transport)

func WithDialer(d Dialer) Option {
	return func(t *Transport) {
		if d != nil {
			t.dialer = d
		}
	}
}

func WithResolver(r Resolver) Option {
	return func(t *Transport) {
		if r != nil {
			t.resolver = r
		}
	}
}

// Transport owns at most one open UDP socket and its target. Connect,
// Disconnect and Send serialise on one mutex so a disconnect never races a
// send on a half-closed socket.
type Transport struct {
	cfg      Config
	dialer   Dialer
	resolver Resolver

	mu     sync.Mutex
	conn   Conn
	target Target
}

func New(cfg Config, opts ...Option) *Transport {
	t := &Transport{
		cfg:      cfg.WithDefaults(),
		dialer:   udpDialer{},
		resolver: net.DefaultResolver,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect opens a socket to host:port. Connecting to the target that is
// already open is a no-op; any other open target is closed first.
func (t *Transport) Connect(ctx context.Context, host string, port uint16) error {
	host = strings.TrimSpace(host)
	if host == "" {
		return newError(KindInvalidInput, "connect", errors.New("blank host"))
	}
	if port == 0 {
		return newError(KindInvalidInput, "connect", errors.New("port must be in 1..65535"))
	}
	target := Target{Host: host, Port: port}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil && t.target == target {
		observability.RecordConnect("reused")
		return nil
	}
	t.closeLocked()

	raddr, err := t.resolve(ctx, target)
	if err != nil {
		observability.RecordConnect("failed")
		logging.Warnf("transport.Transport.Connect resolve target=%s err=%v", target, err)
		return newError(KindResolution, "connect", err)
	}
	conn, err := t.dialer.DialUDP(raddr)
	if err != nil {
		observability.RecordConnect("failed")
		logging.Warnf("transport.Transport.Connect dial target=%s err=%v", target, err)
		return newError(KindSocket, "connect", err)
	}
	t.conn = conn
	t.target = target
	observability.RecordConnect("opened")
	logging.Infof("transport.Transport.Connect ok target=%s raddr=%s local=%s", target, raddr, conn.LocalAddr())
	return nil
}

func (t *Transport) resolve(ctx context.Context, target Target) (*net.UDPAddr, error) {
	if ip := net.ParseIP(target.Host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: int(target.Port)}, nil
	}
	lookupCtx, cancel := context.WithTimeout(ctx, t.cfg.ResolveTimeout)
	defer cancel()
	addrs, err := t.resolver.LookupIPAddr(lookupCtx, target.Host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses for host %q", target.Host)
	}
	pick := addrs[0]
	for _, a := range addrs {
		if a.IP.To4() != nil {
			pick = a
			break
		}
	}
	return &net.UDPAddr{IP: pick.IP, Port: int(target.Port), Zone: pick.Zone}, nil
}

// Disconnect closes the socket if one is open. Safe to call repeatedly.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
}

func (t *Transport) closeLocked() {
	if t.conn == nil {
		return
	}
	if err := t.conn.Close(); err != nil {
		logging.Warnf("transport.Transport.close target=%s err=%v", t.target, err)
	} else {
		logging.Debugf("transport.Transport.close target=%s", t.target)
	}
	t.conn = nil
	t.target = Target{}
}

// Send encodes one OSC message and writes it as a single datagram.
func (t *Transport) Send(ctx context.Context, address string, args ...any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		observability.RecordDatagram(KindNotConnected.String(), 0)
		return newError(KindNotConnected, "send", nil)
	}
	if err := ctx.Err(); err != nil {
		observability.RecordDatagram(KindSocket.String(), 0)
		return newError(KindSocket, "send", err)
	}

	payload := protocol.Encode(address, args...)
	if err := t.conn.SetWriteDeadline(t.writeDeadline(ctx)); err != nil {
		observability.RecordDatagram(KindSocket.String(), 0)
		return newError(KindSocket, "send", err)
	}
	if _, err := t.conn.Write(payload); err != nil {
		observability.RecordDatagram(KindSocket.String(), 0)
		logging.Warnf("transport.Transport.Send target=%s address=%q err=%v", t.target, address, err)
		return newError(KindSocket, "send", err)
	}
	observability.RecordDatagram("none", len(payload))
	logging.Debugf("transport.Transport.Send target=%s address=%q args=%v bytes=%d", t.target, address, args, len(payload))
	return nil
}

func (t *Transport) writeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(t.cfg.WriteTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return deadline
}

// IsConnected reports whether a socket and target are currently held.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Target returns the open target, if any.
func (t *Transport) Target() (Target, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return Target{}, false
	}
	return t.target, true
}

// LocalAddr returns the local socket address, or nil when closed.
func (t *Transport) LocalAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

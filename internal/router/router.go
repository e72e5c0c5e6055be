// Package router turns catalog commands into OSC sends aimed at the
// selected layer and keeps the observable control state: selection,
// opacity, connection status, the last message, and the recent send log.
//
// Router methods are safe for concurrent use. Each call blocks only on
// transport I/O; failures are folded into State and also returned.
package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/danmuck/oscctl/internal/catalog"
	"github.com/danmuck/oscctl/internal/logging"
	"github.com/danmuck/oscctl/internal/observability"
	"github.com/danmuck/oscctl/internal/protocol"
	"github.com/danmuck/oscctl/internal/settings"
	"github.com/danmuck/oscctl/internal/transport"
)

var (
	ErrClosed        = errors.New("router: closed")
	ErrInvalidTarget = errors.New("router: invalid target")
	ErrInvalidLayer  = errors.New("router: invalid layer")
)

// Transport is the send side the router drives; *transport.Transport
// satisfies it.
type Transport interface {
	Connect(ctx context.Context, host string, port uint16) error
	Disconnect()
	Send(ctx context.Context, address string, args ...any) error
	IsConnected() bool
}

type model struct {
	selection   Selection
	opacity     float32
	inflight    int
	status      string
	lastMessage string
	err         string
	connected   bool
	target      transport.Target
	settings    settings.Settings
	closed      bool
}

type Router struct {
	cfg      Config
	tr       Transport
	provider settings.Provider
	log      *SendLog
	hub      *hub

	mu    sync.RWMutex
	state model

	closeOnce sync.Once
}

// New builds a router over tr. provider may be nil, in which case settings
// live in memory only.
func New(cfg Config, tr Transport, provider settings.Provider) *Router {
	cfg = cfg.WithDefaults()
	if provider == nil {
		provider = settings.NewMemoryStore()
	}
	return &Router{
		cfg:      cfg,
		tr:       tr,
		provider: provider,
		log:      NewSendLog(cfg.SendLogLimit),
		hub:      newHub(),
		state: model{
			selection: NewSelection(cfg.LayerCount),
			opacity:   1,
			status:    StatusNotConnected,
			settings:  settings.Default(),
		},
	}
}

func (r *Router) update(fn func(*model)) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.state)
	snap := r.snapshotLocked()
	r.hub.publish(snap)
	return snap
}

func (r *Router) snapshotLocked() State {
	s := r.state
	return State{
		Connected:    s.connected,
		Status:       s.status,
		Target:       s.target,
		Settings:     s.settings,
		Selection:    s.selection,
		Opacity:      s.opacity,
		Sending:      s.inflight > 0,
		LastMessage:  s.lastMessage,
		Error:        s.err,
		SentMessages: r.log.Entries(),
	}
}

func (r *Router) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Subscribe streams state snapshots, starting with the current one. A slow
// reader loses intermediate snapshots rather than stalling the router. The
// returned func unsubscribes and closes the channel.
func (r *Router) Subscribe(buffer int) (<-chan State, func()) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hub.subscribe(buffer, r.snapshotLocked())
}

func (r *Router) Selection() Selection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.selection
}

func (r *Router) Settings() settings.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.settings
}

func (r *Router) SendLog() []string {
	return r.log.Entries()
}

// Close disconnects the transport and ends every subscription. Only the
// first call has an effect.
func (r *Router) Close() {
	r.closeOnce.Do(func() {
		r.tr.Disconnect()
		r.update(func(m *model) {
			m.closed = true
			m.connected = false
			m.target = transport.Target{}
			m.status = StatusNotConnected
		})
		r.hub.close()
		logging.Infof("router.Router.Close")
	})
}

func (r *Router) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.closed
}

// Layer selection.

func (r *Router) SelectLayer(n int) Selection {
	return r.update(func(m *model) { m.selection = m.selection.Select(n) }).Selection
}

func (r *Router) AddLayer() Selection {
	return r.update(func(m *model) { m.selection = m.selection.Add() }).Selection
}

func (r *Router) RemoveLayer() Selection {
	return r.update(func(m *model) { m.selection = m.selection.Remove() }).Selection
}

// LoadSettings refreshes the cached target from the provider.
func (r *Router) LoadSettings(ctx context.Context) (settings.Settings, error) {
	loaded, err := r.provider.Load(ctx)
	if err != nil {
		logging.Warnf("router.Router.LoadSettings err=%v", err)
		r.update(func(m *model) { m.err = err.Error() })
		return settings.Settings{}, err
	}
	r.update(func(m *model) { m.settings = loaded })
	return loaded, nil
}

// UseSettings replaces the cached target for this process only; nothing is
// persisted and no connection is made.
func (r *Router) UseSettings(s settings.Settings) {
	s = s.Normalized()
	r.update(func(m *model) { m.settings = s })
}

// SaveSettings persists host and port, then connects when they form a
// usable target.
func (r *Router) SaveSettings(ctx context.Context, host, port string) error {
	if r.isClosed() {
		return ErrClosed
	}
	next := settings.Settings{Host: host, Port: port}.Normalized()
	if err := r.provider.Save(ctx, next); err != nil {
		r.update(func(m *model) { m.status = "Error: " + err.Error() })
		return err
	}
	r.update(func(m *model) { m.settings = next })

	h, p, err := next.Target()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		r.update(func(m *model) { m.status = "Error: " + err.Error() })
		return err
	}
	err = r.tr.Connect(ctx, h, p)
	connected := r.tr.IsConnected()
	r.update(func(m *model) {
		m.connected = connected
		if err != nil {
			m.target = transport.Target{}
			m.status = "Error: " + err.Error()
			return
		}
		m.target = transport.Target{Host: h, Port: p}
		m.status = "Connected to " + next.Host + ":" + next.Port
	})
	return err
}

// ensureConnected opens the transport to the cached settings target when it
// is not already open.
func (r *Router) ensureConnected(ctx context.Context) error {
	if r.isClosed() {
		return ErrClosed
	}
	if r.tr.IsConnected() {
		return nil
	}
	current := r.Settings()
	host, port, err := current.Target()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	err = r.tr.Connect(ctx, host, port)
	r.update(func(m *model) {
		m.connected = err == nil
		if err != nil {
			m.target = transport.Target{}
			m.status = "Error: " + err.Error()
			return
		}
		m.target = transport.Target{Host: host, Port: port}
		m.status = "Connected to " + current.Host + ":" + current.Port
	})
	return err
}

func (r *Router) send(ctx context.Context, address protocol.Address, args []any) error {
	if err := r.ensureConnected(ctx); err != nil {
		return err
	}
	return r.tr.Send(ctx, address.String(), args...)
}

// resolve aims cmd at the selected layer. Commands without a layer slot are
// returned unchanged.
func (r *Router) resolve(cmd catalog.Command) protocol.Address {
	return cmd.Address.WithLayer(r.Selection().Layer)
}

// Dispatch sends cmd to the selected layer. Successful addresses enter the
// send log; failures land in Error and LastMessage.
func (r *Router) Dispatch(ctx context.Context, cmd catalog.Command) error {
	start := time.Now()
	addr := r.resolve(cmd)
	r.update(func(m *model) {
		m.inflight++
		m.err = ""
	})

	err := r.send(ctx, addr, cmd.Args())
	r.update(func(m *model) {
		m.inflight--
		if err != nil {
			m.err = err.Error()
			m.lastMessage = "Send error: " + err.Error()
			return
		}
		r.log.Push(addr.String())
		m.err = ""
	})
	observability.RecordDispatch("dispatch", time.Since(start), err == nil)
	if err != nil {
		logging.Warnf("router.Router.Dispatch label=%q address=%s err=%v", cmd.Label, addr, err)
		return err
	}
	logging.Debugf("router.Router.Dispatch label=%q address=%s", cmd.Label, addr)
	return nil
}

// DispatchForAssignment sends cmd so the receiver can learn its address.
// The outcome is reported in LastMessage and never enters the send log.
func (r *Router) DispatchForAssignment(ctx context.Context, cmd catalog.Command) error {
	start := time.Now()
	addr := r.resolve(cmd)
	r.update(func(m *model) { m.lastMessage = "Assigning: " + addr.String() })

	err := r.send(ctx, addr, cmd.Args())
	r.update(func(m *model) {
		if err != nil {
			m.lastMessage = "Assignment error: " + err.Error()
			m.err = err.Error()
			return
		}
		m.lastMessage = "Assignment sent: " + addr.String()
	})
	observability.RecordDispatch("assignment", time.Since(start), err == nil)
	if err != nil {
		logging.Warnf("router.Router.DispatchForAssignment address=%s err=%v", addr, err)
	} else {
		logging.Infof("router.Router.DispatchForAssignment address=%s", addr)
	}
	return err
}

func clampOpacity(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// UpdateOpacity stores v, clamped to [0, 1], without sending.
func (r *Router) UpdateOpacity(v float32) float32 {
	return r.update(func(m *model) { m.opacity = clampOpacity(v) }).Opacity
}

// CommitOpacity sends the stored opacity to the selected layer.
func (r *Router) CommitOpacity(ctx context.Context) error {
	r.mu.RLock()
	layer, v := r.state.selection.Layer, r.state.opacity
	r.mu.RUnlock()
	return r.SendOpacity(ctx, layer, v)
}

// SendOpacity writes v to both opacity paths of layer. It never touches
// LastMessage; only a failure is recorded, in Error.
func (r *Router) SendOpacity(ctx context.Context, layer int, v float32) error {
	if layer < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidLayer, layer)
	}
	start := time.Now()
	v = clampOpacity(v)
	primary, mixer := catalog.OpacityAddresses(layer)

	var errs []error
	for _, addr := range []protocol.Address{primary, mixer} {
		if err := r.send(ctx, addr, []any{v}); err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		r.update(func(m *model) { m.err = err.Error() })
		logging.Warnf("router.Router.SendOpacity layer=%d value=%.3f err=%v", layer, v, err)
	}
	observability.RecordDispatch("opacity", time.Since(start), err == nil)
	return err
}

// TriggerAllClipsInLayer fires every clip of layer in catalog order, one
// TriggerInterval apart, and returns how many sends succeeded. A cancelled
// ctx stops the sequence.
func (r *Router) TriggerAllClipsInLayer(ctx context.Context, layer int) (int, error) {
	if layer < 1 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidLayer, layer)
	}
	start := time.Now()
	if err := r.ensureConnected(ctx); err != nil {
		r.update(func(m *model) {
			m.err = err.Error()
			m.lastMessage = fmt.Sprintf("Error triggering layer %d: %v", layer, err)
		})
		observability.RecordDispatch("trigger_all", time.Since(start), false)
		return 0, err
	}

	r.update(func(m *model) { m.inflight++ })
	sent := 0
	var errs []error
	clips := catalog.ClipsForLayer(layer)
	for i, cmd := range clips {
		if i > 0 {
			if err := pause(ctx, r.cfg.TriggerInterval); err != nil {
				errs = append(errs, err)
				break
			}
		}
		addr := cmd.Address.String()
		if err := r.tr.Send(ctx, addr, cmd.Args()...); err != nil {
			errs = append(errs, err)
			continue
		}
		r.log.Push(addr)
		sent++
	}

	err := errors.Join(errs...)
	r.update(func(m *model) {
		m.inflight--
		m.lastMessage = fmt.Sprintf("Sent %d OSC to layer %d", sent, layer)
		if err != nil {
			m.err = err.Error()
		}
	})
	observability.RecordDispatch("trigger_all", time.Since(start), err == nil)
	logging.Infof("router.Router.TriggerAllClipsInLayer layer=%d sent=%d/%d err=%v", layer, sent, len(clips), err)
	return sent, err
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SendDiagnostic sends the reception probe and reports progress in Status.
func (r *Router) SendDiagnostic(ctx context.Context) error {
	start := time.Now()
	if _, _, err := r.Settings().Target(); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		r.update(func(m *model) { m.status = "Error: " + err.Error() })
		return err
	}
	r.update(func(m *model) { m.status = "Sending OSC test..." })

	probe := catalog.Diagnostic()
	err := r.send(ctx, probe.Address, probe.Args())
	r.update(func(m *model) {
		if err != nil {
			m.status = "Error sending test: " + err.Error()
			return
		}
		m.status = "Test sent"
	})
	observability.RecordDispatch("diagnostic", time.Since(start), err == nil)
	if err != nil {
		logging.Warnf("router.Router.SendDiagnostic err=%v", err)
	}
	return err
}

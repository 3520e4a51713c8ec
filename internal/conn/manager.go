package conn

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geovannymcode/chatflow-client/internal/bus"
	"github.com/geovannymcode/chatflow-client/internal/status"
)

// TokenSource supplies the access credential attached to the connection.
// An empty token means "not logged in"; Connect fails silently then.
type TokenSource interface {
	AccessToken() (string, error)
}

// Handler receives the raw payload of an inbound frame of a subscribed type.
type Handler func(payload json.RawMessage)

// ServerError is the bus payload for protocol-level error frames.
type ServerError struct {
	Message string
}

// ReconnectInfo is the bus payload announcing a scheduled reconnect attempt.
type ReconnectInfo struct {
	Attempt int
	Delay   time.Duration
}

// Options tunes the connection manager.
type Options struct {
	URL                  string
	ReconnectBase        time.Duration
	ReconnectMax         time.Duration
	ReconnectMultiplier  float64
	ReconnectMaxAttempts int
	Heartbeat            time.Duration
}

// Manager owns the transport socket and its lifecycle: the authentication
// handshake, reconnection with backoff, the heartbeat, and a type-keyed
// subscriber registry. It is constructed, never a package singleton; the
// transport factory and credential source are injected.
//
// Nothing on the public contract returns an error for connectivity problems:
// failures are logged, surfaced via the state machine and bus, and retried
// by the backoff schedule. Reliability for messages specifically is layered
// on top by the synchronization engine, not here.
type Manager struct {
	opts    Options
	dial    DialFunc
	tokens  TokenSource
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger

	mu             sync.Mutex
	transport      Transport
	stop           chan struct{}
	closing        bool
	dialing        bool
	reconnectTimer *time.Timer
	recon          *reconnector

	subMu    sync.RWMutex
	subs     map[string][]*subscription // eventType -> handlers in registration order
	subTypes map[string]string          // subscription id -> eventType
	onConn   []func()
	onDisc   []func()
}

type subscription struct {
	id      string
	handler Handler
}

// NewManager creates a connection manager. The dial func and token source
// are injected; pass DialWebsocket for production use.
func NewManager(opts Options, dial DialFunc, tokens TokenSource, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		opts:     opts,
		dial:     dial,
		tokens:   tokens,
		machine:  machine,
		bus:      b,
		logger:   logger,
		recon:    newReconnector(opts.ReconnectBase, opts.ReconnectMax, opts.ReconnectMultiplier, opts.ReconnectMaxAttempts),
		subs:     make(map[string][]*subscription),
		subTypes: make(map[string]string),
	}
}

// IsConnected reports whether the socket is currently established.
func (m *Manager) IsConnected() bool {
	return m.machine.Is(status.Connected)
}

// Connect establishes the connection. It is a no-op while already connected
// or connecting. Without a stored credential it logs and returns; callers
// re-invoke Connect on auth state changes rather than handling an error.
// An explicit Connect re-arms a backoff schedule that previously gave up.
func (m *Manager) Connect() {
	if !m.machine.Is(status.Disconnected) {
		return
	}
	m.mu.Lock()
	m.closing = false
	m.recon.reset()
	m.cancelReconnectLocked()
	m.mu.Unlock()

	m.attempt()
}

// attempt performs one dial. On failure it schedules the next attempt per
// the backoff schedule. At most one dial runs at a time: an overlapping
// Connect while a dial is in flight, or while a transport is already
// established, returns without dialing.
func (m *Manager) attempt() {
	m.mu.Lock()
	if m.closing || m.dialing || m.transport != nil {
		m.mu.Unlock()
		return
	}
	m.dialing = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.dialing = false
		m.mu.Unlock()
	}()

	token, err := m.tokens.AccessToken()
	if err != nil || token == "" {
		if err != nil {
			m.logger.Warn("credential lookup failed", zap.Error(err))
		} else {
			m.logger.Warn("no access token available for connection")
		}
		return
	}

	if err := m.machine.Transition(status.Connecting); err != nil {
		return
	}

	header := http.Header{"Authorization": {"Bearer " + token}}
	t, err := m.dial(context.Background(), m.opts.URL+"?token="+token, header)
	if err != nil {
		m.logger.Warn("connection dial failed", zap.Error(err))
		_ = m.machine.Transition(status.Disconnected)
		m.mu.Lock()
		if !m.closing {
			m.scheduleReconnectLocked()
		}
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		_ = t.Close()
		return
	}
	m.transport = t
	m.recon.reset()
	m.cancelReconnectLocked()
	stop := make(chan struct{})
	m.stop = stop
	m.mu.Unlock()

	_ = m.machine.Transition(status.Connected)
	m.logger.Info("connected", zap.String("url", m.opts.URL))
	m.bus.Publish(bus.Event{Kind: bus.KindConnConnected, Timestamp: time.Now()})
	for _, h := range m.connectHandlers() {
		h()
	}

	go m.readLoop(t, stop)
	go m.heartbeatLoop(t, stop)
}

// Disconnect is idempotent: it cancels any pending reconnect, closes the
// transport if open, and fires disconnect observers once per transition.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.closing = true
	m.cancelReconnectLocked()
	t := m.transport
	m.transport = nil
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	m.mu.Unlock()

	if t != nil {
		_ = t.Close()
	}
	m.transitionDisconnected()
}

// Subscribe registers a handler for a logical event type. Registration is
// independent of connection state; handlers attach to future connections too.
func (m *Manager) Subscribe(eventType string, h Handler) string {
	id := uuid.NewString()
	m.subMu.Lock()
	m.subs[eventType] = append(m.subs[eventType], &subscription{id: id, handler: h})
	m.subTypes[id] = eventType
	m.subMu.Unlock()
	return id
}

// Unsubscribe removes a registration; removing an unknown id is a no-op.
func (m *Manager) Unsubscribe(id string) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	eventType, ok := m.subTypes[id]
	if !ok {
		return
	}
	delete(m.subTypes, id)
	list := m.subs[eventType]
	for i, sub := range list {
		if sub.id == id {
			m.subs[eventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(m.subs[eventType]) == 0 {
		delete(m.subs, eventType)
	}
}

// Send publishes an outbound frame. When not connected the send is dropped
// with a warning: at-most-once, never queued, never retried here.
func (m *Manager) Send(eventType string, payload any) {
	m.mu.Lock()
	t := m.transport
	m.mu.Unlock()

	if t == nil || !m.IsConnected() {
		m.logger.Warn("not connected, dropping send", zap.String("type", eventType))
		return
	}

	data, err := encodeFrame(eventType, payload)
	if err != nil {
		m.logger.Error("encode frame", zap.Error(err), zap.String("type", eventType))
		return
	}
	if err := t.Write(data); err != nil {
		m.logger.Warn("write failed", zap.Error(err), zap.String("type", eventType))
	}
}

// OnConnect registers an observer fired after every successful connection.
func (m *Manager) OnConnect(h func()) {
	m.subMu.Lock()
	m.onConn = append(m.onConn, h)
	m.subMu.Unlock()
}

// OnDisconnect registers an observer fired once per connected→disconnected transition.
func (m *Manager) OnDisconnect(h func()) {
	m.subMu.Lock()
	m.onDisc = append(m.onDisc, h)
	m.subMu.Unlock()
}

func (m *Manager) readLoop(t Transport, stop chan struct{}) {
	for {
		data, err := t.Read()
		if err != nil {
			select {
			case <-stop:
				// Intentional close; Disconnect already handled state.
			default:
				m.handleClose(err)
			}
			return
		}
		m.dispatch(data)
	}
}

// dispatch parses one inbound frame and invokes every handler registered
// for its type, in registration order. Malformed frames are logged and
// dropped; they never crash the connection.
func (m *Manager) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		m.logger.Warn("malformed frame dropped", zap.ByteString("frame", data))
		return
	}

	if env.Type == "ERROR" {
		var p struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(env.Payload, &p)
		m.logger.Warn("server error frame", zap.String("message", p.Message))
		m.bus.Publish(bus.Event{
			Kind:      bus.KindConnServerError,
			Timestamp: time.Now(),
			Payload:   ServerError{Message: p.Message},
		})
	}

	m.subMu.RLock()
	list := m.subs[env.Type]
	handlers := make([]Handler, len(list))
	for i, sub := range list {
		handlers[i] = sub.handler
	}
	m.subMu.RUnlock()

	for _, h := range handlers {
		h(env.Payload)
	}
}

func (m *Manager) heartbeatLoop(t Transport, stop chan struct{}) {
	if m.opts.Heartbeat <= 0 {
		return
	}
	ticker := time.NewTicker(m.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := t.Ping(); err != nil {
				m.logger.Warn("heartbeat failed", zap.Error(err))
				_ = t.Close()
				return
			}
		case <-stop:
			return
		}
	}
}

// handleClose reacts to an unexpected transport close: transition to
// disconnected, notify observers, and schedule a reconnect.
func (m *Manager) handleClose(err error) {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return
	}
	m.transport = nil
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	m.mu.Unlock()

	m.logger.Warn("connection lost", zap.Error(err))
	m.transitionDisconnected()

	m.mu.Lock()
	if !m.closing {
		m.scheduleReconnectLocked()
	}
	m.mu.Unlock()
}

func (m *Manager) transitionDisconnected() {
	if m.machine.Is(status.Disconnected) {
		return
	}
	_ = m.machine.Transition(status.Disconnected)
	m.bus.Publish(bus.Event{Kind: bus.KindConnDisconnected, Timestamp: time.Now()})
	for _, h := range m.disconnectHandlers() {
		h()
	}
}

// scheduleReconnectLocked arms the single reconnect timer. Gives up silently
// once the attempt budget is spent; a later explicit Connect re-arms it.
func (m *Manager) scheduleReconnectLocked() {
	if m.reconnectTimer != nil {
		return
	}
	if m.recon.exhausted() {
		m.logger.Warn("reconnect attempts exhausted, giving up")
		return
	}
	delay := m.recon.nextDelay()
	attempt := m.recon.attempt
	m.logger.Info("scheduling reconnect", zap.Int("attempt", attempt), zap.Duration("delay", delay))
	m.bus.Publish(bus.Event{
		Kind:      bus.KindConnReconnecting,
		Timestamp: time.Now(),
		Payload:   ReconnectInfo{Attempt: attempt, Delay: delay},
	})
	m.reconnectTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		m.reconnectTimer = nil
		closing := m.closing
		m.mu.Unlock()
		if closing {
			return
		}
		m.attempt()
	})
}

func (m *Manager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

func (m *Manager) connectHandlers() []func() {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	return append([]func(){}, m.onConn...)
}

func (m *Manager) disconnectHandlers() []func() {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	return append([]func(){}, m.onDisc...)
}

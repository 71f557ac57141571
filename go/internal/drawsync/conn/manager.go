package conn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
	"github.com/mcdev12/drawsync/go/internal/drawsync/transport"
)

// State is the lifecycle position of the manager's channel.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Open reports whether frames can be written immediately.
func (s State) Open() bool {
	return s == StateConnected || s == StateAuthenticated
}

// EventPublisher receives every decoded inbound message and the local
// connectivity events. *bus.Bus[protocol.Message] satisfies it.
type EventPublisher interface {
	Publish(name string, msg protocol.Message)
}

// Config holds reconnect and write settings.
type Config struct {
	MaxRetries   int
	BaseDelay    time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns five retries with a linearly growing one second delay.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   5,
		BaseDelay:    time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Option customizes a Manager.
type Option func(*Manager)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithMetrics(metrics MetricsCollector) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// Manager owns the single channel to the game server. It reconnects with
// linear backoff, queues outbound frames while closed and republishes every
// inbound record on the event publisher.
type Manager struct {
	id      string
	config  Config
	dialer  transport.Dialer
	events  EventPublisher
	clock   clockwork.Clock
	metrics MetricsCollector

	// writeMu serializes channel writes so queued frames leave before
	// anything sent after the channel opened.
	writeMu sync.Mutex

	mu         sync.Mutex
	state      State
	token      string
	retryCount int
	pending    [][]byte
	channel    transport.Channel
	generation uint64
	explicit   bool
	dialCancel context.CancelFunc
	retryStop  chan struct{}

	framesSent     uint64
	framesReceived uint64
	framesDropped  uint64
}

// NewManager creates a disconnected manager.
func NewManager(config Config, dialer transport.Dialer, events EventPublisher, opts ...Option) *Manager {
	m := &Manager{
		id:      uuid.New().String(),
		config:  config,
		dialer:  dialer,
		events:  events,
		clock:   clockwork.NewRealClock(),
		metrics: &NoOpMetricsCollector{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) ID() string {
	return m.id
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the channel is open, authenticated or not.
func (m *Manager) Connected() bool {
	return m.State().Open()
}

// Connect starts opening the channel and returns immediately. It is a no-op
// unless the manager is disconnected. An empty token skips authentication.
func (m *Manager) Connect(token string) {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return
	}

	m.token = token
	m.explicit = false
	m.stopRetryLocked()
	m.generation++
	gen := m.generation
	m.setStateLocked(StateConnecting)

	ctx, cancel := context.WithCancel(context.Background())
	m.dialCancel = cancel
	m.mu.Unlock()

	log.Debug().Str("connection_id", m.id).Uint64("generation", gen).Msg("connecting")
	go m.dial(ctx, cancel, gen)
}

// Send writes msg now when the channel is open, otherwise appends it to the
// pending queue. Only encoding failures are returned; a failed write puts the
// frame back on the queue and drops the channel so the next open delivers it.
func (m *Manager) Send(msg protocol.Message) error {
	frame, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	if !m.state.Open() {
		m.pending = append(m.pending, frame)
		m.mu.Unlock()
		m.metrics.RecordFrameQueued(len(frame))
		log.Debug().Str("connection_id", m.id).Str("type", string(msg.Kind())).Msg("queued outbound message")
		return nil
	}
	ch := m.channel
	m.mu.Unlock()

	if err := m.write(ch, frame); err != nil {
		log.Warn().Err(err).Str("connection_id", m.id).Str("type", string(msg.Kind())).Msg("write failed, requeueing")
		m.mu.Lock()
		m.pending = append(m.pending, frame)
		m.mu.Unlock()
		ch.Close()
	}
	return nil
}

// Disconnect closes the channel and cancels any scheduled reconnect. Pending
// frames are kept for the next Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.explicit = true
	m.stopRetryLocked()
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	ch := m.channel
	m.channel = nil
	changed := m.state != StateDisconnected
	m.setStateLocked(StateDisconnected)
	m.retryCount = 0
	m.generation++
	m.mu.Unlock()

	if ch != nil {
		ch.Close()
	}

	log.Info().Str("connection_id", m.id).Msg("disconnected")
	if changed {
		m.events.Publish(string(protocol.KindSocketConnected), protocol.ConnectivityChanged{Connected: false})
	}
}

// Stats describes the manager for status displays.
type Stats struct {
	ID             string `json:"id"`
	State          string `json:"state"`
	Connected      bool   `json:"connected"`
	RetryCount     int    `json:"attempts"`
	MaxRetries     int    `json:"max_attempts"`
	Pending        int    `json:"pending"`
	FramesSent     uint64 `json:"frames_sent"`
	FramesReceived uint64 `json:"frames_received"`
	FramesDropped  uint64 `json:"frames_dropped"`
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		ID:             m.id,
		State:          m.state.String(),
		Connected:      m.state.Open(),
		RetryCount:     m.retryCount,
		MaxRetries:     m.config.MaxRetries,
		Pending:        len(m.pending),
		FramesSent:     m.framesSent,
		FramesReceived: m.framesReceived,
		FramesDropped:  m.framesDropped,
	}
}

func (m *Manager) dial(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	ch, err := m.dialer.Dial(ctx)
	if err != nil {
		log.Warn().Err(err).Str("connection_id", m.id).Msg("dial failed")
		m.handleClosed(gen)
		return
	}

	m.writeMu.Lock()
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		m.writeMu.Unlock()
		ch.Close()
		return
	}
	m.channel = ch
	m.dialCancel = nil
	m.retryCount = 0
	m.setStateLocked(StateConnected)
	pending := m.pending
	m.pending = nil
	token := m.token
	m.mu.Unlock()

	ok := m.flush(ch, pending, token)
	m.writeMu.Unlock()

	log.Info().
		Str("connection_id", m.id).
		Int("flushed", len(pending)).
		Msg("connected")

	if ok {
		m.events.Publish(string(protocol.KindSocketConnected), protocol.ConnectivityChanged{Connected: true})
	}

	go m.readLoop(ch, gen)
}

// flush writes the queued frames in order, then the authentication frame.
// On failure the unsent frames go back to the head of the queue.
func (m *Manager) flush(ch transport.Channel, pending [][]byte, token string) bool {
	for i, frame := range pending {
		if err := m.write(ch, frame); err != nil {
			log.Warn().Err(err).Str("connection_id", m.id).Msg("flush failed")
			m.requeue(pending[i:])
			ch.Close()
			return false
		}
	}

	if token == "" {
		return true
	}
	frame, err := protocol.Encode(protocol.Authenticate{Token: token})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode authenticate")
		return true
	}
	if err := m.write(ch, frame); err != nil {
		log.Warn().Err(err).Str("connection_id", m.id).Msg("failed to send authenticate")
		ch.Close()
		return false
	}
	return true
}

func (m *Manager) write(ch transport.Channel, frame []byte) error {
	ctx := context.Background()
	if m.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.WriteTimeout)
		defer cancel()
	}

	if err := ch.Write(ctx, frame); err != nil {
		return err
	}

	m.mu.Lock()
	m.framesSent++
	m.mu.Unlock()
	m.metrics.RecordFrameSent(len(frame))
	return nil
}

// requeue puts frames back at the head of the pending queue.
func (m *Manager) requeue(frames [][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make([][]byte, 0, len(frames)+len(m.pending))
	next = append(next, frames...)
	next = append(next, m.pending...)
	m.pending = next
}

func (m *Manager) readLoop(ch transport.Channel, gen uint64) {
	for {
		data, err := ch.Read(context.Background())
		if err != nil {
			log.Debug().Err(err).Str("connection_id", m.id).Msg("read loop ended")
			m.handleClosed(gen)
			return
		}
		m.dispatch(data, gen)
	}
}

func (m *Manager) dispatch(data []byte, gen uint64) {
	for _, record := range protocol.Split(data) {
		msg, err := protocol.Decode(record)
		if err != nil {
			log.Warn().Err(err).Str("connection_id", m.id).Msg("dropping malformed record")
			m.dropped("malformed")
			continue
		}
		if unknown, ok := msg.(protocol.Unknown); ok {
			log.Debug().Str("type", string(unknown.Type)).Msg("dropping record of unknown type")
			m.dropped("unknown")
			continue
		}

		m.mu.Lock()
		if gen != m.generation {
			m.mu.Unlock()
			return
		}
		authPending := m.state == StateConnected && m.token != ""
		if _, ok := msg.(protocol.Authenticated); ok && m.state == StateConnected {
			m.setStateLocked(StateAuthenticated)
		}
		m.framesReceived++
		m.mu.Unlock()

		m.metrics.RecordFrameReceived(msg.Kind())
		m.events.Publish(string(msg.Kind()), msg)

		if e, ok := msg.(protocol.Error); ok && authPending {
			log.Warn().Str("reason", e.Message).Msg("authentication rejected")
			m.events.Publish(string(protocol.KindAuthFailed), protocol.AuthFailed{Reason: e.Message})
		}
	}
}

func (m *Manager) dropped(reason string) {
	m.mu.Lock()
	m.framesDropped++
	m.mu.Unlock()
	m.metrics.RecordFrameDropped(reason)
}

// handleClosed runs once per dial attempt when the channel fails to open or
// goes away. Stale generations are ignored.
func (m *Manager) handleClosed(gen uint64) {
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.generation++
	ch := m.channel
	m.channel = nil
	m.setStateLocked(StateDisconnected)

	attempt, delay := 0, time.Duration(0)
	if !m.explicit && m.retryCount < m.config.MaxRetries {
		m.retryCount++
		attempt = m.retryCount
		delay = m.config.BaseDelay * time.Duration(attempt)
		m.scheduleRetryLocked(delay)
	}
	m.mu.Unlock()

	if ch != nil {
		ch.Close()
	}

	if attempt > 0 {
		m.metrics.RecordReconnectScheduled(attempt, delay)
		log.Info().
			Str("connection_id", m.id).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("connection closed, reconnect scheduled")
	} else {
		log.Warn().Str("connection_id", m.id).Msg("connection closed, not reconnecting")
	}

	m.events.Publish(string(protocol.KindSocketConnected), protocol.ConnectivityChanged{Connected: false})
}

func (m *Manager) scheduleRetryLocked(delay time.Duration) {
	m.stopRetryLocked()

	timer := m.clock.NewTimer(delay)
	stop := make(chan struct{})
	m.retryStop = stop

	go func(t clockwork.Timer) {
		select {
		case <-t.Chan():
			m.mu.Lock()
			if m.retryStop != stop {
				m.mu.Unlock()
				return
			}
			m.retryStop = nil
			token := m.token
			m.mu.Unlock()

			m.Connect(token)
		case <-stop:
			stopAndDrainTimer(t)
		}
	}(timer)
}

func (m *Manager) stopRetryLocked() {
	if m.retryStop != nil {
		close(m.retryStop)
		m.retryStop = nil
	}
}

func (m *Manager) setStateLocked(to State) {
	if m.state == to {
		return
	}
	from := m.state
	m.state = to
	m.metrics.RecordStateChange(from, to)
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// Package session ties one room visit together: the event bus, the
// connection manager, the game reducer and the replay engine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/drawsync/go/clients/rooms"
	"github.com/mcdev12/drawsync/go/internal/drawsync/bus"
	"github.com/mcdev12/drawsync/go/internal/drawsync/canvas"
	"github.com/mcdev12/drawsync/go/internal/drawsync/conn"
	"github.com/mcdev12/drawsync/go/internal/drawsync/credentials"
	"github.com/mcdev12/drawsync/go/internal/drawsync/game"
	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
	"github.com/mcdev12/drawsync/go/internal/drawsync/transport"
)

var ErrNoRoom = errors.New("room id or room code is required")

// RoomLookup resolves room codes. *rooms.Client satisfies it.
type RoomLookup interface {
	JoinByCode(ctx context.Context, code, password string) (*rooms.Session, error)
	GetRoomByCode(ctx context.Context, code string) (*rooms.Room, error)
}

// Config describes which room to enter and how to behave while in it.
type Config struct {
	RoomID       int64
	RoomCode     string
	RoomPassword string
	Conn         conn.Config
	Game         game.Config
}

func DefaultConfig() Config {
	return Config{
		Conn: conn.DefaultConfig(),
		Game: game.DefaultConfig(),
	}
}

// Option customizes a Session.
type Option func(*options)

type options struct {
	clock   clockwork.Clock
	metrics conn.MetricsCollector
	surface canvas.Surface
	rooms   RoomLookup
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func WithMetrics(metrics conn.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithSurface sets where render plans are delivered.
func WithSurface(surface canvas.Surface) Option {
	return func(o *options) {
		o.surface = surface
	}
}

// WithRoomLookup enables joining by room code.
func WithRoomLookup(lookup RoomLookup) Option {
	return func(o *options) {
		o.rooms = lookup
	}
}

// Session is a live visit to one room. It joins the room every time the
// server confirms authentication, so reconnects rejoin automatically until
// the room is deleted.
type Session struct {
	Events  *bus.Bus[protocol.Message]
	Manager *conn.Manager
	Reducer *game.Reducer
	Engine  *canvas.Engine

	identity credentials.Identity

	mu          sync.Mutex
	roomID      int64
	roomDeleted bool

	detach    func()
	subs      []bus.Subscription
	engineSub bus.Subscription
	closeOnce sync.Once
}

// Open resolves the room and token, wires every component and starts
// connecting. A missing token connects without authenticating.
func Open(ctx context.Context, config Config, dialer transport.Dialer, store credentials.Store, opts ...Option) (*Session, error) {
	o := options{
		clock:   clockwork.NewRealClock(),
		metrics: &conn.NoOpMetricsCollector{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	token, identity, err := loadToken(ctx, store, o.clock)
	if err != nil {
		return nil, err
	}

	roomID, err := resolveRoom(ctx, &config, o.rooms)
	if err != nil {
		return nil, err
	}

	events := bus.New[protocol.Message]()
	manager := conn.NewManager(config.Conn, dialer, events,
		conn.WithClock(o.clock),
		conn.WithMetrics(o.metrics),
	)
	reducer := game.NewReducer(config.Game, manager, game.WithClock(o.clock))
	engine := canvas.NewEngine(o.surface)

	s := &Session{
		Events:   events,
		Manager:  manager,
		Reducer:  reducer,
		Engine:   engine,
		roomID:   roomID,
		identity: identity,
	}

	s.detach = reducer.Attach(events)
	s.subs = append(s.subs,
		events.Subscribe(string(protocol.KindAuthenticated), s.onAuthenticated),
		events.Subscribe(string(protocol.KindAuthFailed), s.onAuthFailed),
		events.Subscribe(string(protocol.KindRoomDeleted), s.onRoomDeleted),
	)

	engineSub, err := engine.Attach(reducer)
	s.engineSub = engineSub
	if err != nil {
		s.teardown()
		return nil, fmt.Errorf("failed to render initial drawing: %w", err)
	}

	log.Info().
		Str("session", manager.ID()).
		Int64("room_id", roomID).
		Str("user", identity.Username).
		Msg("opening game session")

	manager.Connect(token)
	return s, nil
}

// RoomID is the room this session enters.
func (s *Session) RoomID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// RoomDeleted reports whether the server closed the room during this visit.
func (s *Session) RoomDeleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomDeleted
}

// Identity is what the token claims about the local user, if anything.
func (s *Session) Identity() credentials.Identity {
	return s.identity
}

// Close leaves the room when possible, disconnects and releases every
// subscription. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.Manager.Connected() && s.Reducer.Snapshot().IsInRoom {
			if err := s.Reducer.LeaveRoom(); err != nil {
				log.Warn().Err(err).Int64("room_id", s.RoomID()).Msg("failed to leave room")
			}
		}
		s.Manager.Disconnect()
		s.teardown()
		log.Info().Str("session", s.Manager.ID()).Msg("game session closed")
	})
	return nil
}

func (s *Session) teardown() {
	s.Reducer.Unwatch(s.engineSub)
	for _, sub := range s.subs {
		s.Events.Unsubscribe(sub)
	}
	s.subs = nil
	if s.detach != nil {
		s.detach()
	}
}

func (s *Session) onAuthenticated(protocol.Message) error {
	s.mu.Lock()
	roomID, deleted := s.roomID, s.roomDeleted
	s.mu.Unlock()

	if roomID == 0 || deleted {
		return nil
	}
	return s.Reducer.JoinRoom(roomID)
}

func (s *Session) onRoomDeleted(protocol.Message) error {
	s.mu.Lock()
	s.roomDeleted = true
	roomID := s.roomID
	s.mu.Unlock()

	log.Info().Int64("room_id", roomID).Msg("room deleted, no longer rejoining")
	return nil
}

func (s *Session) onAuthFailed(msg protocol.Message) error {
	failed, ok := msg.(protocol.AuthFailed)
	if !ok {
		return nil
	}
	log.Error().Str("reason", failed.Reason).Int64("room_id", s.RoomID()).Msg("authentication rejected")
	return nil
}

func loadToken(ctx context.Context, store credentials.Store, clock clockwork.Clock) (string, credentials.Identity, error) {
	if store == nil {
		return "", credentials.Identity{}, nil
	}

	token, err := store.Token(ctx)
	if errors.Is(err, credentials.ErrNoToken) {
		log.Warn().Msg("no access token available, connecting unauthenticated")
		return "", credentials.Identity{}, nil
	}
	if err != nil {
		return "", credentials.Identity{}, fmt.Errorf("failed to load access token: %w", err)
	}

	identity, err := credentials.ParseIdentity(token)
	if err != nil {
		log.Warn().Err(err).Msg("access token is not a readable JWT")
		return token, credentials.Identity{}, nil
	}
	if identity.Expired(clock.Now()) {
		log.Warn().Time("expires_at", identity.ExpiresAt).Msg("access token has expired")
	}
	return token, identity, nil
}

// resolveRoom returns the room id to join. A room code is exchanged for an
// id through the lookup, and the room's round count replaces the default.
func resolveRoom(ctx context.Context, config *Config, lookup RoomLookup) (int64, error) {
	if config.RoomCode == "" {
		if config.RoomID == 0 {
			return 0, ErrNoRoom
		}
		return config.RoomID, nil
	}
	if lookup == nil {
		if config.RoomID == 0 {
			return 0, fmt.Errorf("cannot resolve room code %s: %w", config.RoomCode, ErrNoRoom)
		}
		return config.RoomID, nil
	}

	room, err := lookup.GetRoomByCode(ctx, config.RoomCode)
	if err != nil {
		return 0, err
	}
	if room.MaxRounds > 0 {
		config.Game.TotalRounds = room.MaxRounds
	}

	membership, err := lookup.JoinByCode(ctx, config.RoomCode, config.RoomPassword)
	if err != nil {
		return 0, err
	}

	log.Info().
		Str("room_code", config.RoomCode).
		Int64("room_id", membership.RoomID).
		Int("total_rounds", config.Game.TotalRounds).
		Msg("resolved room code")
	return membership.RoomID, nil
}

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/drawsync/go/clients/rooms"
	"github.com/mcdev12/drawsync/go/internal/drawsync/canvas"
	"github.com/mcdev12/drawsync/go/internal/drawsync/credentials"
	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
	"github.com/mcdev12/drawsync/go/internal/drawsync/transport/transporttest"
)

const waitTimeout = 2 * time.Second

func awaitChannel(t *testing.T, d *transporttest.Dialer) *transporttest.Channel {
	t.Helper()
	select {
	case a := <-d.Attempts:
		require.NoError(t, a.Err)
		return a.Channel
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for dial")
		return nil
	}
}

func writtenKinds(ch *transporttest.Channel) []string {
	var kinds []string
	for _, frame := range ch.Written() {
		msg, err := protocol.Decode([]byte(strings.TrimSpace(frame)))
		if err != nil {
			continue
		}
		kinds = append(kinds, string(msg.Kind()))
	}
	return kinds
}

type plans struct {
	mu  sync.Mutex
	all []canvas.Plan
}

func (p *plans) Render(plan canvas.Plan) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.all = append(p.all, plan)
	return nil
}

func (p *plans) last() canvas.Plan {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.all) == 0 {
		return canvas.Plan{}
	}
	return p.all[len(p.all)-1]
}

type fakeLookup struct {
	room    rooms.Room
	joinErr error
	joined  []string
}

func (f *fakeLookup) JoinByCode(ctx context.Context, code, password string) (*rooms.Session, error) {
	f.joined = append(f.joined, code)
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	return &rooms.Session{RoomID: f.room.ID}, nil
}

func (f *fakeLookup) GetRoomByCode(ctx context.Context, code string) (*rooms.Room, error) {
	if code != f.room.RoomCode {
		return nil, rooms.ErrRoomNotFound
	}
	room := f.room
	return &room, nil
}

func TestSessionJoinsAfterAuthentication(t *testing.T) {
	dialer := transporttest.NewDialer()
	surface := &plans{}

	config := DefaultConfig()
	config.RoomID = 10
	s, err := Open(context.Background(), config, dialer, credentials.StaticStore("tok"),
		WithClock(clockwork.NewFakeClock()),
		WithSurface(surface),
	)
	require.NoError(t, err)
	defer s.Close()

	ch := awaitChannel(t, dialer)
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"authenticate"}, writtenKinds(ch))
	}, waitTimeout, 5*time.Millisecond)

	ch.Deliver(`{"type":"authenticated","user_id":1,"username":"ann"}`)
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"authenticate", "join_room"}, writtenKinds(ch))
	}, waitTimeout, 5*time.Millisecond)

	ch.Deliver(`{"type":"room_joined","room_id":10,"players":[{"id":1,"username":"ann"},{"id":2,"username":"bo"}]}`)
	ch.Deliver(`{"type":"draw_data","data":{"user_id":2,"x":1,"y":1,"is_drawing":true,"is_first_point":true,"timestamp":1}}`)
	ch.Deliver(`{"type":"draw_data","data":{"user_id":2,"x":5,"y":5,"is_drawing":true,"timestamp":2}}`)

	require.Eventually(t, func() bool {
		return len(surface.last().Segments) == 1
	}, waitTimeout, 5*time.Millisecond)

	state := s.Reducer.Snapshot()
	assert.True(t, state.Authenticated)
	assert.True(t, state.IsInRoom)
	assert.Equal(t, int64(10), state.RoomID)
	assert.Len(t, state.Players, 2)
	assert.Equal(t, "ann", state.Self.Username)

	segment := surface.last().Segments[0]
	assert.Equal(t, int64(2), segment.UserID)
	assert.Len(t, segment.Points, 2)
}

func TestSessionStopsRejoiningDeletedRoom(t *testing.T) {
	dialer := transporttest.NewDialer()
	clock := clockwork.NewFakeClock()

	config := DefaultConfig()
	config.RoomID = 10
	s, err := Open(context.Background(), config, dialer, credentials.StaticStore("tok"), WithClock(clock))
	require.NoError(t, err)
	defer s.Close()

	authenticated := make(chan struct{}, 4)
	s.Events.Subscribe(string(protocol.KindAuthenticated), func(protocol.Message) error {
		authenticated <- struct{}{}
		return nil
	})
	awaitAuthenticated := func() {
		t.Helper()
		select {
		case <-authenticated:
		case <-time.After(waitTimeout):
			t.Fatal("timed out waiting for authenticated")
		}
	}

	first := awaitChannel(t, dialer)
	first.Deliver(`{"type":"authenticated","user_id":1,"username":"ann"}`)
	awaitAuthenticated()
	assert.Equal(t, []string{"authenticate", "join_room"}, writtenKinds(first))

	first.Deliver(`{"type":"room_deleted","message":"Room was deleted"}`)
	require.Eventually(t, s.RoomDeleted, waitTimeout, 5*time.Millisecond)
	first.Close()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(config.Conn.BaseDelay)

	second := awaitChannel(t, dialer)
	second.Deliver(`{"type":"authenticated","user_id":1,"username":"ann"}`)
	awaitAuthenticated()
	assert.Equal(t, []string{"authenticate"}, writtenKinds(second))
	assert.False(t, s.Reducer.Snapshot().IsInRoom)
}

func TestSessionCloseLeavesAndReleases(t *testing.T) {
	dialer := transporttest.NewDialer()

	config := DefaultConfig()
	config.RoomID = 10
	s, err := Open(context.Background(), config, dialer, nil, WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)

	ch := awaitChannel(t, dialer)
	ch.Deliver(`{"type":"room_joined","room_id":10,"players":[{"id":1,"username":"ann"}]}`)
	require.Eventually(t, func() bool {
		return s.Reducer.Snapshot().IsInRoom
	}, waitTimeout, 5*time.Millisecond)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, []string{"leave_room"}, writtenKinds(ch))
	assert.True(t, ch.IsClosed())
	assert.False(t, s.Manager.Connected())
	assert.Zero(t, s.Events.HandlerCount(string(protocol.KindAuthenticated)))
	assert.Zero(t, s.Events.HandlerCount(string(protocol.KindDrawData)))
}

func TestSessionWithoutTokenSkipsAuthentication(t *testing.T) {
	dialer := transporttest.NewDialer()

	config := DefaultConfig()
	config.RoomID = 3
	s, err := Open(context.Background(), config, dialer, credentials.StaticStore(""), WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)
	defer s.Close()

	ch := awaitChannel(t, dialer)
	require.Eventually(t, s.Manager.Connected, waitTimeout, 5*time.Millisecond)
	assert.Empty(t, writtenKinds(ch))
	assert.Equal(t, credentials.Identity{}, s.Identity())
}

func TestSessionResolvesRoomCode(t *testing.T) {
	lookup := &fakeLookup{room: rooms.Room{ID: 42, RoomCode: "ABC123", MaxRounds: 6}}

	config := DefaultConfig()
	config.RoomCode = "ABC123"
	s, err := Open(context.Background(), config, transporttest.NewDialer(), nil,
		WithClock(clockwork.NewFakeClock()),
		WithRoomLookup(lookup),
	)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, int64(42), s.RoomID())
	assert.Equal(t, []string{"ABC123"}, lookup.joined)
}

func TestSessionOpenErrors(t *testing.T) {
	clock := WithClock(clockwork.NewFakeClock())

	t.Run("no room", func(t *testing.T) {
		_, err := Open(context.Background(), DefaultConfig(), transporttest.NewDialer(), nil, clock)
		assert.ErrorIs(t, err, ErrNoRoom)
	})

	t.Run("unknown code", func(t *testing.T) {
		config := DefaultConfig()
		config.RoomCode = "NOPE"
		lookup := &fakeLookup{room: rooms.Room{ID: 1, RoomCode: "ABC123"}}
		_, err := Open(context.Background(), config, transporttest.NewDialer(), nil, clock, WithRoomLookup(lookup))
		assert.ErrorIs(t, err, rooms.ErrRoomNotFound)
		assert.Empty(t, lookup.joined)
	})

	t.Run("store failure", func(t *testing.T) {
		config := DefaultConfig()
		config.RoomID = 1
		dialer := transporttest.NewDialer()
		_, err := Open(context.Background(), config, dialer, brokenStore{}, clock)
		assert.ErrorContains(t, err, "keychain locked")
		assert.Zero(t, dialer.Dials())
	})
}

type brokenStore struct{}

func (brokenStore) Token(context.Context) (string, error) {
	return "", errors.New("keychain locked")
}

package game

import (
	"sort"
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/drawsync/go/internal/drawsync/bus"
	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
)

const (
	stateTopic        = "state"
	presentationTopic = "presentation"
)

// Sender is the slice of the connection manager the reducer needs.
type Sender interface {
	Send(msg protocol.Message) error
	Connected() bool
}

// Config tunes the reducer.
type Config struct {
	// TotalRounds is assumed until the server reports a round count.
	TotalRounds int
}

func DefaultConfig() Config {
	return Config{TotalRounds: 4}
}

// Option customizes a Reducer.
type Option func(*Reducer)

func WithClock(clock clockwork.Clock) Option {
	return func(r *Reducer) {
		r.clock = clock
	}
}

// Reducer owns the local mirror of room, round, player, chat and drawing
// state. Inbound events go through Handle; user intents go through the
// action methods. Watchers see a fresh snapshot after every mutation.
type Reducer struct {
	sender Sender
	clock  clockwork.Clock
	config Config

	mu         sync.Mutex
	state      State
	players    map[int64]*Player
	order      []int64
	guessed    map[int64]bool
	seenPoints map[string]struct{}

	watchers      *bus.Bus[State]
	presentations *bus.Bus[Presentation]
}

// NewReducer creates an empty reducer that sends intents through sender.
func NewReducer(config Config, sender Sender, opts ...Option) *Reducer {
	r := &Reducer{
		sender:        sender,
		clock:         clockwork.NewRealClock(),
		config:        config,
		players:       make(map[int64]*Player),
		guessed:       make(map[int64]bool),
		seenPoints:    make(map[string]struct{}),
		watchers:      bus.New[State](),
		presentations: bus.New[Presentation](),
	}
	r.state.Round.TotalRounds = config.TotalRounds
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns the current state.
func (r *Reducer) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// WatchState registers fn to receive a snapshot after every mutation.
func (r *Reducer) WatchState(fn func(State) error) bus.Subscription {
	return r.watchers.Subscribe(stateTopic, fn)
}

// WatchPresentations registers fn to receive summary requests.
func (r *Reducer) WatchPresentations(fn func(Presentation) error) bus.Subscription {
	return r.presentations.Subscribe(presentationTopic, fn)
}

// Unwatch removes a state or presentation watcher.
func (r *Reducer) Unwatch(sub bus.Subscription) {
	switch sub.Name {
	case stateTopic:
		r.watchers.Unsubscribe(sub)
	case presentationTopic:
		r.presentations.Unsubscribe(sub)
	}
}

// HandledKinds lists every event kind the reducer reacts to.
func HandledKinds() []protocol.Kind {
	return []protocol.Kind{
		protocol.KindSocketConnected,
		protocol.KindAuthenticated,
		protocol.KindAuthFailed,
		protocol.KindError,
		protocol.KindRoomJoined,
		protocol.KindPlayerJoined,
		protocol.KindPlayerLeft,
		protocol.KindPlayerDisconnected,
		protocol.KindPlayersUpdate,
		protocol.KindPlayerReady,
		protocol.KindGameStarted,
		protocol.KindGameState,
		protocol.KindRoundStarted,
		protocol.KindWordAssigned,
		protocol.KindChatMessage,
		protocol.KindCorrectGuess,
		protocol.KindRoundEnded,
		protocol.KindGameEnded,
		protocol.KindTimeUpdate,
		protocol.KindCanvasCleared,
		protocol.KindDrawData,
		protocol.KindRoomDeleted,
	}
}

// Attach subscribes the reducer to every kind it handles and returns a
// function that removes those subscriptions.
func (r *Reducer) Attach(events *bus.Bus[protocol.Message]) func() {
	kinds := HandledKinds()
	subs := make([]bus.Subscription, 0, len(kinds))
	for _, kind := range kinds {
		subs = append(subs, events.Subscribe(string(kind), r.Handle))
	}

	return func() {
		for _, sub := range subs {
			events.Unsubscribe(sub)
		}
	}
}

// Handle applies one inbound or local event.
func (r *Reducer) Handle(msg protocol.Message) error {
	r.mu.Lock()
	changed, pres := r.apply(msg)
	var snap State
	if changed {
		snap = r.snapshotLocked()
	}
	r.mu.Unlock()

	if !changed {
		return nil
	}

	log.Debug().Str("event", string(msg.Kind())).Msg("game state updated")
	r.watchers.Publish(stateTopic, snap)
	if pres != nil {
		r.presentations.Publish(presentationTopic, *pres)
	}
	return nil
}

// mutate runs fn under the lock and notifies watchers afterwards.
func (r *Reducer) mutate(fn func()) {
	r.mu.Lock()
	fn()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.watchers.Publish(stateTopic, snap)
}

func (r *Reducer) snapshotLocked() State {
	s := r.state

	s.Players = make([]Player, 0, len(r.order))
	for _, id := range r.order {
		s.Players = append(s.Players, *r.players[id])
	}
	// append-only slices are shared with a capped length so later appends
	// stay invisible to this snapshot
	s.Chat = r.state.Chat[:len(r.state.Chat):len(r.state.Chat)]
	s.Drawing = r.state.Drawing[:len(r.state.Drawing):len(r.state.Drawing)]

	return s
}

func (r *Reducer) upsertPlayerLocked(p Player) {
	if existing, ok := r.players[p.ID]; ok {
		*existing = p
		return
	}
	cp := p
	r.players[p.ID] = &cp
	r.order = append(r.order, p.ID)
}

func (r *Reducer) removePlayerLocked(id int64) bool {
	if _, ok := r.players[id]; !ok {
		return false
	}
	delete(r.players, id)
	for i, pid := range r.order {
		if pid == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Reducer) replacePlayersLocked(list []protocol.PlayerInfo) {
	r.players = make(map[int64]*Player, len(list))
	r.order = r.order[:0:0]
	for _, info := range list {
		r.upsertPlayerLocked(Player{ID: info.ID, Username: info.Username, Score: info.Score, Ready: info.Ready})
	}
}

func (r *Reducer) findByUsernameLocked(name string) (int64, bool) {
	if name == "" {
		return 0, false
	}
	for _, id := range r.order {
		if r.players[id].Username == name {
			return id, true
		}
	}
	return 0, false
}

// labelLocked names a user for display, falling back to the id when the user
// is not a known player.
func (r *Reducer) labelLocked(id int64, username string) string {
	if username != "" {
		return username
	}
	if p, ok := r.players[id]; ok && p.Username != "" {
		return p.Username
	}
	if id == r.state.Self.UserID && r.state.Self.Username != "" {
		return r.state.Self.Username
	}
	return strconv.FormatInt(id, 10)
}

func (r *Reducer) nonDrawerCountLocked(drawerID int64) int {
	total := len(r.order)
	if _, ok := r.players[drawerID]; ok {
		total--
	}
	if total < 0 {
		return 0
	}
	return total
}

func (r *Reducer) clearDrawingLocked() {
	r.state.Drawing = nil
	r.seenPoints = make(map[string]struct{})
	r.state.DrawingRevision++
}

// appendPointLocked adds p unless an identical point is already logged.
func (r *Reducer) appendPointLocked(p protocol.DrawPoint) bool {
	key := p.Key()
	if _, dup := r.seenPoints[key]; dup {
		return false
	}
	r.seenPoints[key] = struct{}{}
	r.state.Drawing = append(r.state.Drawing, p)
	r.state.DrawingRevision++
	return true
}

// resetRoomLocked drops everything tied to the current room.
func (r *Reducer) resetRoomLocked() {
	r.state.RoomID = 0
	r.state.IsInRoom = false
	r.state.GameActive = false
	r.players = make(map[int64]*Player)
	r.order = nil
	r.state.Round = Round{TotalRounds: r.config.TotalRounds}
	r.state.Progress = GuessProgress{}
	r.state.Chat = nil
	r.guessed = make(map[int64]bool)
	r.clearDrawingLocked()
}

// standingsLocked ranks players by score, highest first. Tied scores share
// a rank.
func (r *Reducer) standingsLocked(scores map[int64]int) []Standing {
	standings := make([]Standing, 0, len(scores))
	position := make(map[int64]int, len(r.order))
	for i, id := range r.order {
		position[id] = i
	}

	for id, score := range scores {
		standings = append(standings, Standing{UserID: id, Username: r.labelLocked(id, ""), Score: score})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		pa, okA := position[a.UserID]
		pb, okB := position[b.UserID]
		if okA != okB {
			return okA
		}
		if okA && pa != pb {
			return pa < pb
		}
		return a.UserID < b.UserID
	})

	for i := range standings {
		if i > 0 && standings[i].Score == standings[i-1].Score {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
	return standings
}

func (r *Reducer) currentScoresLocked() map[int64]int {
	scores := make(map[int64]int, len(r.order))
	for _, id := range r.order {
		scores[id] = r.players[id].Score
	}
	return scores
}

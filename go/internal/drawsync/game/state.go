package game

import (
	"strings"

	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
)

// Identity is the authenticated local user.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Player is one room member as last reported by the server.
type Player struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Ready    bool   `json:"ready"`
}

// Round describes the round in progress. Word is only set for the drawer;
// guessers see the masked Hint.
type Round struct {
	Number               int    `json:"number"`
	TotalRounds          int    `json:"total_rounds"`
	DrawerID             int64  `json:"drawer_id"`
	DrawerName           string `json:"drawer_name"`
	Word                 string `json:"word,omitempty"`
	Hint                 string `json:"hint,omitempty"`
	TimeRemainingSeconds int    `json:"time_remaining"`
	IsActive             bool   `json:"is_active"`
}

// GuessProgress counts correct guessers in the current round. Total excludes
// the drawer.
type GuessProgress struct {
	Guessed int `json:"guessed"`
	Total   int `json:"total"`
}

// ChatEntry is one line of the room chat, including system notices.
type ChatEntry struct {
	UserID          int64  `json:"user_id,omitempty"`
	Username        string `json:"username"`
	Text            string `json:"text"`
	TimestampMillis int64  `json:"timestamp"`
	IsCorrectGuess  bool   `json:"is_correct_guess,omitempty"`
	IsSystem        bool   `json:"is_system,omitempty"`
}

// State is an immutable snapshot of the local game mirror.
type State struct {
	Connected     bool     `json:"connected"`
	Authenticated bool     `json:"authenticated"`
	AuthFailed    bool     `json:"auth_failed"`
	LastError     string   `json:"last_error,omitempty"`
	Self          Identity `json:"self"`

	RoomID     int64 `json:"room_id"`
	IsInRoom   bool  `json:"is_in_room"`
	GameActive bool  `json:"game_active"`

	Players  []Player      `json:"players"`
	Round    Round         `json:"round"`
	Progress GuessProgress `json:"progress"`
	Chat     []ChatEntry   `json:"chat"`

	Drawing         []protocol.DrawPoint `json:"drawing"`
	DrawingRevision uint64               `json:"drawing_revision"`
}

// IsDrawer reports whether the local user draws this round.
func (s State) IsDrawer() bool {
	return s.Self.UserID != 0 && s.Round.DrawerID == s.Self.UserID
}

// Player looks up a member by id.
func (s State) Player(id int64) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// PresentationKind names a summary the UI layer is asked to show.
type PresentationKind string

const (
	PresentRoundSummary PresentationKind = "round_summary"
	PresentGameSummary  PresentationKind = "game_summary"
)

// Standing is one row of a final or round-end leaderboard.
type Standing struct {
	Rank     int    `json:"rank"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Presentation is a request to surface a summary.
type Presentation struct {
	Kind      PresentationKind `json:"kind"`
	Round     int              `json:"round,omitempty"`
	Word      string           `json:"word,omitempty"`
	Message   string           `json:"message,omitempty"`
	Standings []Standing       `json:"standings"`
}

// isMasked reports whether word is an underscore hint rather than the answer.
func isMasked(word string) bool {
	if strings.TrimSpace(word) == "" {
		return false
	}
	return strings.Trim(word, "_ ") == ""
}

package game

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
)

// apply mutates state for msg. It reports whether anything observable may
// have changed and, optionally, a summary to surface.
func (r *Reducer) apply(msg protocol.Message) (bool, *Presentation) {
	switch m := msg.(type) {
	case protocol.ConnectivityChanged:
		r.state.Connected = m.Connected
		if !m.Connected {
			r.state.Authenticated = false
		}

	case protocol.Authenticated:
		r.state.Self = Identity{UserID: m.UserID, Username: m.Username}
		r.state.Authenticated = true
		r.state.AuthFailed = false
		r.state.LastError = ""

	case protocol.AuthFailed:
		r.state.Authenticated = false
		r.state.AuthFailed = true
		r.state.LastError = m.Reason

	case protocol.Error:
		r.state.LastError = m.Message

	case protocol.RoomJoined:
		if r.state.RoomID != 0 && r.state.RoomID != m.RoomID {
			r.resetRoomLocked()
		}
		r.state.RoomID = m.RoomID
		r.state.IsInRoom = true
		r.replacePlayersLocked(m.Players)

	case protocol.PlayerJoined:
		if p, ok := r.players[m.UserID]; ok {
			if m.Username != "" {
				p.Username = m.Username
			}
			return true, nil
		}
		r.upsertPlayerLocked(Player{ID: m.UserID, Username: m.Username})

	case protocol.PlayerLeft:
		if r.state.Self.UserID != 0 && m.UserID == r.state.Self.UserID {
			log.Info().Int64("room_id", r.state.RoomID).Msg("left room")
			r.resetRoomLocked()
			return true, nil
		}
		return r.removePlayerLocked(m.UserID), nil

	case protocol.PlayerDisconnected:
		return r.removePlayerLocked(m.UserID), nil

	case protocol.PlayersUpdate:
		r.replacePlayersLocked(m.Players)

	case protocol.PlayerReady:
		p, ok := r.players[m.UserID]
		if !ok {
			return false, nil
		}
		p.Ready = m.Ready

	case protocol.GameStarted:
		if m.RoomID != 0 {
			r.state.RoomID = m.RoomID
		}
		r.state.GameActive = true
		r.state.Round = Round{TotalRounds: r.state.Round.TotalRounds}
		r.state.Progress = GuessProgress{}

	case protocol.GameState:
		r.applyGameStateLocked(m)

	case protocol.RoundStarted:
		r.applyRoundStartedLocked(m)

	case protocol.WordAssigned:
		r.assignWordLocked(m.Word)

	case protocol.ChatMessage:
		ts := int64(m.Timestamp * 1000)
		if ts == 0 {
			ts = r.clock.Now().UnixMilli()
		}
		r.state.Chat = append(r.state.Chat, ChatEntry{
			UserID:          m.UserID,
			Username:        r.labelLocked(m.UserID, m.Username),
			Text:            m.Message,
			TimestampMillis: ts,
		})

	case protocol.CorrectGuess:
		return r.applyCorrectGuessLocked(m), nil

	case protocol.RoundEnded:
		return true, r.applyRoundEndedLocked(m)

	case protocol.GameEnded:
		return true, r.applyGameEndedLocked(m)

	case protocol.TimeUpdate:
		remaining := m.TimeRemaining
		if remaining < 0 {
			remaining = 0
		}
		r.state.Round.TimeRemainingSeconds = remaining

	case protocol.CanvasCleared:
		r.clearDrawingLocked()

	case protocol.DrawData:
		return r.appendPointLocked(m.Data), nil

	case protocol.RoomDeleted:
		log.Info().Int64("room_id", r.state.RoomID).Msg("room deleted")
		r.resetRoomLocked()
		if m.Message != "" {
			r.state.LastError = m.Message
		}

	default:
		return false, nil
	}

	return true, nil
}

func (r *Reducer) applyRoundStartedLocked(m protocol.RoundStarted) {
	drawerID := m.DrawerID
	if drawerID == 0 {
		if id, ok := r.findByUsernameLocked(m.Drawer); ok {
			drawerID = id
		} else if m.Drawer != "" && m.Drawer == r.state.Self.Username {
			drawerID = r.state.Self.UserID
		}
	}

	totalRounds := r.state.Round.TotalRounds
	if m.TotalRounds > 0 {
		totalRounds = m.TotalRounds
	}

	r.state.GameActive = true
	r.state.Round = Round{
		Number:               m.Round,
		TotalRounds:          totalRounds,
		DrawerID:             drawerID,
		DrawerName:           r.drawerNameLocked(drawerID, m.Drawer),
		TimeRemainingSeconds: m.TimeRemaining,
		IsActive:             true,
	}
	r.state.Progress = GuessProgress{Guessed: 0, Total: r.nonDrawerCountLocked(drawerID)}
	r.guessed = make(map[int64]bool)
	r.clearDrawingLocked()
}

func (r *Reducer) drawerNameLocked(id int64, name string) string {
	if name != "" {
		return name
	}
	if id == 0 {
		return ""
	}
	return r.labelLocked(id, "")
}

func (r *Reducer) assignWordLocked(word string) {
	if isMasked(word) {
		r.state.Round.Hint = word
		r.state.Round.Word = ""
		return
	}
	r.state.Round.Word = word
	r.state.Round.Hint = ""
}

func (r *Reducer) applyGameStateLocked(m protocol.GameState) {
	r.state.GameActive = m.GameStarted
	if len(m.Players) > 0 {
		r.replacePlayersLocked(m.Players)
	}
	r.state.Round.Number = m.CurrentRound
	if m.MaxRounds > 0 {
		r.state.Round.TotalRounds = m.MaxRounds
	}
	r.state.Round.TimeRemainingSeconds = m.TimeRemaining
	r.state.Round.IsActive = m.GameStarted && m.CurrentRound > 0
	if m.IsDrawer && r.state.Self.UserID != 0 {
		r.state.Round.DrawerID = r.state.Self.UserID
		r.state.Round.DrawerName = r.state.Self.Username
	}
	if m.Word != "" {
		r.assignWordLocked(m.Word)
	}
	if r.state.Progress.Total == 0 && r.state.Round.IsActive {
		r.state.Progress.Total = r.nonDrawerCountLocked(r.state.Round.DrawerID)
	}
}

func (r *Reducer) applyCorrectGuessLocked(m protocol.CorrectGuess) bool {
	if r.guessed[m.UserID] {
		return false
	}
	r.guessed[m.UserID] = true

	if r.state.Progress.Guessed < r.state.Progress.Total {
		r.state.Progress.Guessed++
	}

	label := r.labelLocked(m.UserID, m.Username)
	r.state.Chat = append(r.state.Chat, ChatEntry{
		UserID:          m.UserID,
		Username:        label,
		Text:            fmt.Sprintf("%s guessed correctly!", label),
		TimestampMillis: r.clock.Now().UnixMilli(),
		IsCorrectGuess:  true,
		IsSystem:        true,
	})
	return true
}

func (r *Reducer) applyRoundEndedLocked(m protocol.RoundEnded) *Presentation {
	number := m.Round
	if number == 0 {
		number = r.state.Round.Number
	}

	r.state.Round.Word = ""
	r.state.Round.Hint = ""
	r.state.Round.IsActive = false
	r.clearDrawingLocked()

	total := r.state.Round.TotalRounds
	if total <= 0 || number < total {
		return nil
	}
	return &Presentation{
		Kind:      PresentRoundSummary,
		Round:     number,
		Word:      m.Word,
		Standings: r.standingsLocked(r.currentScoresLocked()),
	}
}

func (r *Reducer) applyGameEndedLocked(m protocol.GameEnded) *Presentation {
	scores := make(map[int64]int, len(m.FinalScores))
	for key, score := range m.FinalScores {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			log.Warn().Str("user_id", key).Msg("ignoring score for non-numeric user id")
			continue
		}
		scores[id] = score
		if p, ok := r.players[id]; ok {
			p.Score = score
		}
	}
	if len(scores) == 0 {
		scores = r.currentScoresLocked()
	}

	r.state.GameActive = false
	r.state.Round = Round{TotalRounds: r.state.Round.TotalRounds}
	r.state.Progress = GuessProgress{}
	r.guessed = make(map[int64]bool)
	r.clearDrawingLocked()

	return &Presentation{
		Kind:      PresentGameSummary,
		Message:   m.Message,
		Standings: r.standingsLocked(scores),
	}
}

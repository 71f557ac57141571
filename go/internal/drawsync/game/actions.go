package game

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
)

var (
	ErrNotConnected = errors.New("not connected to game server")
	ErrEmptyMessage = errors.New("message is empty")
)

func (r *Reducer) requireConnection() error {
	if !r.sender.Connected() {
		return ErrNotConnected
	}
	return nil
}

func (r *Reducer) send(msg protocol.Message) error {
	if err := r.sender.Send(msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Kind(), err)
	}
	return nil
}

// JoinRoom asks the server to add the local user to roomID and marks the
// room as entered. The player list arrives with room_joined.
func (r *Reducer) JoinRoom(roomID int64) error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	if err := r.send(protocol.JoinRoom{RoomID: roomID}); err != nil {
		return err
	}

	r.mutate(func() {
		if r.state.RoomID != roomID {
			r.resetRoomLocked()
		}
		r.state.RoomID = roomID
		r.state.IsInRoom = true
	})
	return nil
}

// LeaveRoom requests removal. Local cleanup waits for the server's
// player_left for the local user.
func (r *Reducer) LeaveRoom() error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.send(protocol.LeaveRoom{})
}

// DeleteRoom requests the room be closed for everyone.
func (r *Reducer) DeleteRoom() error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.send(protocol.DeleteRoom{})
}

func (r *Reducer) SetReady(ready bool) error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.send(protocol.Ready{Ready: ready})
}

func (r *Reducer) StartGame() error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.send(protocol.StartGame{})
}

func (r *Reducer) SkipTurn() error {
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.send(protocol.SkipTurn{})
}

// SendChatMessage posts text to the room chat.
func (r *Reducer) SendChatMessage(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.send(protocol.ChatMessage{Message: text})
}

// SendGuess submits a guess for the current word.
func (r *Reducer) SendGuess(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if err := r.requireConnection(); err != nil {
		return err
	}
	return r.send(protocol.GuessWord{Guess: text})
}

// SendDrawPoint records a locally drawn point and forwards it. Missing
// identity, timestamp, color and brush size are filled in. Nothing is
// recorded while the channel is closed.
func (r *Reducer) SendDrawPoint(p protocol.DrawPoint) error {
	if err := r.requireConnection(); err != nil {
		return err
	}

	r.mu.Lock()
	if p.UserID == 0 {
		p.UserID = r.state.Self.UserID
	}
	if p.Username == "" {
		p.Username = r.state.Self.Username
	}
	r.mu.Unlock()

	if p.Timestamp == 0 {
		p.Timestamp = r.clock.Now().UnixMilli()
	}
	p.Color = p.ColorOrDefault()
	p.BrushSize = p.BrushSizeOrDefault()

	r.mutate(func() {
		r.appendPointLocked(p)
	})
	return r.send(p.ToDraw())
}

// ClearCanvas empties the drawing. The drawer also tells the server, which
// requires a connection; anyone else only clears the local view.
func (r *Reducer) ClearCanvas() error {
	if r.Snapshot().IsDrawer() {
		if err := r.requireConnection(); err != nil {
			return err
		}
		if err := r.send(protocol.ClearCanvas{}); err != nil {
			return err
		}
	}

	r.mutate(r.clearDrawingLocked)
	return nil
}

package rooms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/drawsync/go/clients"
)

var ErrRoomNotFound = errors.New("room not found")

// Room is the lobby service's description of a game room.
type Room struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	RoomCode       string    `json:"room_code"`
	IsPrivate      bool      `json:"is_private"`
	MaxPlayers     int       `json:"max_players"`
	TimeLimit      int       `json:"time_limit"`
	MaxRounds      int       `json:"max_rounds"`
	CurrentPlayers int       `json:"current_players"`
	IsActive       bool      `json:"is_active"`
	GameStarted    bool      `json:"game_started"`
	RoundNumber    int       `json:"round_number"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

// Session is the membership record returned when joining by code.
type Session struct {
	ID           int64     `json:"id"`
	RoomID       int64     `json:"room_id"`
	UserID       int64     `json:"user_id"`
	SessionToken string    `json:"session_token"`
	IsReady      bool      `json:"is_ready"`
	Score        int       `json:"score"`
	JoinedAt     time.Time `json:"joined_at"`
}

// Member is one entry of a room's player list.
type Member struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsReady  bool   `json:"is_ready"`
	Score    int    `json:"score"`
}

type joinRequest struct {
	RoomCode string `json:"room_code"`
	Password string `json:"password,omitempty"`
}

type playersResponse struct {
	Players []Member `json:"players"`
}

// Client talks to the room lookup service that resolves room codes to the
// room id used on the real-time channel.
type Client struct {
	*clients.BaseClient
}

func NewClient(baseURL, token string) *Client {
	base := clients.NewBaseClient(baseURL)
	if token != "" {
		base.SetBearerToken(token)
	}
	return &Client{BaseClient: base}
}

// JoinByCode registers the caller as a member of the room with code.
func (c *Client) JoinByCode(ctx context.Context, code, password string) (*Session, error) {
	var session Session
	if err := c.PostJSON(ctx, "/rooms/join", joinRequest{RoomCode: code, Password: password}, &session); err != nil {
		return nil, wrapNotFound(fmt.Errorf("failed to join room %s: %w", code, err))
	}

	log.Debug().Str("room_code", code).Int64("room_id", session.RoomID).Msg("joined room by code")
	return &session, nil
}

// GetRoomByCode looks up a room without joining it.
func (c *Client) GetRoomByCode(ctx context.Context, code string) (*Room, error) {
	var room Room
	if err := c.GetJSON(ctx, "/rooms/"+url.PathEscape(code), &room); err != nil {
		return nil, wrapNotFound(fmt.Errorf("failed to get room %s: %w", code, err))
	}
	return &room, nil
}

// GetRoomPlayers lists the current members of roomID.
func (c *Client) GetRoomPlayers(ctx context.Context, roomID int64) ([]Member, error) {
	var resp playersResponse
	endpoint := "/rooms/" + strconv.FormatInt(roomID, 10) + "/players"
	if err := c.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, wrapNotFound(fmt.Errorf("failed to get players for room %d: %w", roomID, err))
	}
	return resp.Players, nil
}

func wrapNotFound(err error) error {
	var statusErr *clients.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrRoomNotFound, err)
	}
	return err
}

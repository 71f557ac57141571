package protocol

// Kind is the wire discriminator carried in every record's "type" field.
type Kind string

// Outbound kinds.
const (
	KindAuthenticate Kind = "authenticate"
	KindJoinRoom     Kind = "join_room"
	KindLeaveRoom    Kind = "leave_room"
	KindDeleteRoom   Kind = "delete_room"
	KindStartGame    Kind = "start_game"
	KindReady        Kind = "ready"
	KindSkipTurn     Kind = "skip_turn"
	KindDraw         Kind = "draw"
	KindClearCanvas  Kind = "clear_canvas"
	KindGuessWord    Kind = "guess_word"
)

// KindChatMessage travels in both directions.
const KindChatMessage Kind = "chat_message"

// Inbound kinds.
const (
	KindAuthenticated      Kind = "authenticated"
	KindError              Kind = "error"
	KindRoomJoined         Kind = "room_joined"
	KindPlayerJoined       Kind = "player_joined"
	KindPlayerLeft         Kind = "player_left"
	KindPlayerDisconnected Kind = "player_disconnected"
	KindPlayersUpdate      Kind = "players_update"
	KindPlayerReady        Kind = "player_ready"
	KindGameStarted        Kind = "game_started"
	KindGameState          Kind = "game_state"
	KindRoundStarted       Kind = "round_started"
	KindWordAssigned       Kind = "word_assigned"
	KindCorrectGuess       Kind = "correct_guess"
	KindRoundEnded         Kind = "round_ended"
	KindGameEnded          Kind = "game_ended"
	KindTimeUpdate         Kind = "time_update"
	KindCanvasCleared      Kind = "canvas_cleared"
	KindDrawData           Kind = "draw_data"
	KindRoomDeleted        Kind = "room_deleted"
)

// Local kinds are raised by the connection manager and never sent over the wire.
const (
	KindSocketConnected Kind = "socket_connected"
	KindAuthFailed      Kind = "auth_failed"
)

// Message is implemented by every record type.
type Message interface {
	Kind() Kind
}

// Authenticate presents the session token after the channel opens.
type Authenticate struct {
	Token string `json:"token"`
}

func (Authenticate) Kind() Kind { return KindAuthenticate }

type JoinRoom struct {
	RoomID int64 `json:"room_id"`
}

func (JoinRoom) Kind() Kind { return KindJoinRoom }

type LeaveRoom struct{}

func (LeaveRoom) Kind() Kind { return KindLeaveRoom }

type DeleteRoom struct{}

func (DeleteRoom) Kind() Kind { return KindDeleteRoom }

type StartGame struct{}

func (StartGame) Kind() Kind { return KindStartGame }

type Ready struct {
	Ready bool `json:"ready"`
}

func (Ready) Kind() Kind { return KindReady }

type SkipTurn struct{}

func (SkipTurn) Kind() Kind { return KindSkipTurn }

// Draw carries one locally produced point. The server stamps user identity
// and rebroadcasts it as draw_data.
type Draw struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	IsDrawing    bool    `json:"is_drawing"`
	IsFirstPoint bool    `json:"is_first_point"`
	Color        string  `json:"color"`
	BrushSize    float64 `json:"brush_size"`
	Timestamp    int64   `json:"timestamp"`
}

func (Draw) Kind() Kind { return KindDraw }

type ClearCanvas struct{}

func (ClearCanvas) Kind() Kind { return KindClearCanvas }

type GuessWord struct {
	Guess string `json:"guess"`
}

func (GuessWord) Kind() Kind { return KindGuessWord }

// ChatMessage is sent with only Message set. Inbound copies carry the
// author and a server timestamp in seconds.
type ChatMessage struct {
	UserID    int64   `json:"user_id,omitempty"`
	Username  string  `json:"username,omitempty"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

func (ChatMessage) Kind() Kind { return KindChatMessage }

type Authenticated struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func (Authenticated) Kind() Kind { return KindAuthenticated }

type Error struct {
	Message string `json:"message"`
}

func (Error) Kind() Kind { return KindError }

// PlayerInfo is the server's view of one room member.
type PlayerInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Ready    bool   `json:"ready"`
}

type RoomJoined struct {
	RoomID  int64        `json:"room_id"`
	Players []PlayerInfo `json:"players"`
}

func (RoomJoined) Kind() Kind { return KindRoomJoined }

type PlayerJoined struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func (PlayerJoined) Kind() Kind { return KindPlayerJoined }

type PlayerLeft struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func (PlayerLeft) Kind() Kind { return KindPlayerLeft }

type PlayerDisconnected struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func (PlayerDisconnected) Kind() Kind { return KindPlayerDisconnected }

type PlayersUpdate struct {
	Players []PlayerInfo `json:"players"`
}

func (PlayersUpdate) Kind() Kind { return KindPlayersUpdate }

type PlayerReady struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Ready    bool   `json:"ready"`
}

func (PlayerReady) Kind() Kind { return KindPlayerReady }

type GameStarted struct {
	RoomID int64 `json:"room_id"`
}

func (GameStarted) Kind() Kind { return KindGameStarted }

// GameState is the snapshot sent to late joiners.
type GameState struct {
	CurrentRound  int          `json:"current_round"`
	MaxRounds     int          `json:"max_rounds"`
	TimeRemaining int          `json:"time_remaining"`
	GameStarted   bool         `json:"game_started"`
	Players       []PlayerInfo `json:"players"`
	Word          string       `json:"word"`
	IsDrawer      bool         `json:"is_drawer"`
}

func (GameState) Kind() Kind { return KindGameState }

// RoundStarted names the drawer by username, by id, or both.
type RoundStarted struct {
	Round         int    `json:"round"`
	TotalRounds   int    `json:"total_rounds,omitempty"`
	Drawer        string `json:"drawer"`
	DrawerID      int64  `json:"drawer_id,omitempty"`
	TimeRemaining int    `json:"time_remaining"`
}

func (RoundStarted) Kind() Kind { return KindRoundStarted }

// WordAssigned holds the plain word for the drawer and an underscore mask
// for everyone else.
type WordAssigned struct {
	Word    string `json:"word"`
	Message string `json:"message,omitempty"`
}

func (WordAssigned) Kind() Kind { return KindWordAssigned }

type CorrectGuess struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Word     string `json:"word,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (CorrectGuess) Kind() Kind { return KindCorrectGuess }

type RoundEnded struct {
	Round int    `json:"round"`
	Word  string `json:"word"`
}

func (RoundEnded) Kind() Kind { return KindRoundEnded }

// GameEnded carries final scores keyed by the decimal user id.
type GameEnded struct {
	FinalScores map[string]int `json:"final_scores"`
	Message     string         `json:"message,omitempty"`
}

func (GameEnded) Kind() Kind { return KindGameEnded }

type TimeUpdate struct {
	TimeRemaining int `json:"time_remaining"`
}

func (TimeUpdate) Kind() Kind { return KindTimeUpdate }

type CanvasCleared struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

func (CanvasCleared) Kind() Kind { return KindCanvasCleared }

type DrawData struct {
	Data DrawPoint `json:"data"`
}

func (DrawData) Kind() Kind { return KindDrawData }

type RoomDeleted struct {
	Message string `json:"message,omitempty"`
}

func (RoomDeleted) Kind() Kind { return KindRoomDeleted }

// ConnectivityChanged is raised on every open and close of the channel.
type ConnectivityChanged struct {
	Connected bool `json:"connected"`
}

func (ConnectivityChanged) Kind() Kind { return KindSocketConnected }

// AuthFailed is raised when the server rejects the token.
type AuthFailed struct {
	Reason string `json:"reason"`
}

func (AuthFailed) Kind() Kind { return KindAuthFailed }

// Unknown preserves a record whose discriminator is not recognized.
type Unknown struct {
	Type Kind
	Raw  []byte
}

func (u Unknown) Kind() Kind { return u.Type }

package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Delimiter terminates every record on stream transports.
const Delimiter = '\n'

var (
	ErrMissingType  = errors.New("record has no type")
	ErrNotAnObject  = errors.New("record is not a JSON object")
	ErrLocalMessage = errors.New("local message cannot be encoded")
)

type envelope struct {
	Type Kind `json:"type"`
}

// Encode renders msg as a single newline-terminated JSON record with its
// kind in the "type" field.
func Encode(msg Message) ([]byte, error) {
	switch msg.(type) {
	case ConnectivityChanged, AuthFailed, Unknown:
		return nil, fmt.Errorf("%s: %w", msg.Kind(), ErrLocalMessage)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", msg.Kind(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("%s: %w", msg.Kind(), ErrNotAnObject)
	}

	kind, err := json.Marshal(msg.Kind())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal kind: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(kind) + 10)
	buf.WriteString(`{"type":`)
	buf.Write(kind)
	if inner := body[1 : len(body)-1]; len(bytes.TrimSpace(inner)) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	buf.WriteByte(Delimiter)

	return buf.Bytes(), nil
}

// Split breaks a frame into its records. A frame may hold several records
// separated by newlines; blank lines are skipped.
func Split(frame []byte) [][]byte {
	var records [][]byte
	for _, line := range bytes.Split(frame, []byte{Delimiter}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		records = append(records, line)
	}
	return records
}

// Decode parses one record. Records with an unrecognized type decode to
// Unknown rather than failing.
func Decode(record []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(record, &env); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}

	switch env.Type {
	case KindAuthenticated:
		return decodeAs[Authenticated](record)
	case KindError:
		return decodeAs[Error](record)
	case KindRoomJoined:
		return decodeAs[RoomJoined](record)
	case KindPlayerJoined:
		return decodeAs[PlayerJoined](record)
	case KindPlayerLeft:
		return decodeAs[PlayerLeft](record)
	case KindPlayerDisconnected:
		return decodeAs[PlayerDisconnected](record)
	case KindPlayersUpdate:
		return decodeAs[PlayersUpdate](record)
	case KindPlayerReady:
		return decodeAs[PlayerReady](record)
	case KindGameStarted:
		return decodeAs[GameStarted](record)
	case KindGameState:
		return decodeAs[GameState](record)
	case KindRoundStarted:
		return decodeAs[RoundStarted](record)
	case KindWordAssigned:
		return decodeAs[WordAssigned](record)
	case KindChatMessage:
		return decodeAs[ChatMessage](record)
	case KindCorrectGuess:
		return decodeAs[CorrectGuess](record)
	case KindRoundEnded:
		return decodeAs[RoundEnded](record)
	case KindGameEnded:
		return decodeAs[GameEnded](record)
	case KindTimeUpdate:
		return decodeAs[TimeUpdate](record)
	case KindCanvasCleared:
		return decodeAs[CanvasCleared](record)
	case KindDrawData:
		return decodeAs[DrawData](record)
	case KindRoomDeleted:
		return decodeAs[RoomDeleted](record)
	default:
		raw := make([]byte, len(record))
		copy(raw, record)
		return Unknown{Type: env.Type, Raw: raw}, nil
	}
}

func decodeAs[T Message](record []byte) (Message, error) {
	var msg T
	if err := json.Unmarshal(record, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", msg.Kind(), err)
	}
	return msg, nil
}

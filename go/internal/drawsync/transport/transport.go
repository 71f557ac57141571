package transport

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrClosed is returned by Read and Write once the channel is closed.
var ErrClosed = errors.New("channel closed")

// Channel is one open, bidirectional, message-oriented connection to the
// game server. A Read error means the channel is gone.
type Channel interface {
	Write(ctx context.Context, frame []byte) error
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens new channels. Each call yields an independent channel.
type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Channel, error)

func (f DialerFunc) Dial(ctx context.Context) (Channel, error) {
	return f(ctx)
}

// Config selects and tunes a transport. The URL scheme picks the
// implementation: ws/wss, tcp or nats.
type Config struct {
	URL            string
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64

	// NATS only
	CommandSubject string
	EventSubject   string
}

// DefaultConfig returns transport defaults suitable for a local server.
func DefaultConfig() Config {
	return Config{
		URL:            "ws://localhost:8000/ws",
		DialTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 64 * 1024,
		CommandSubject: "drawsync.commands",
		EventSubject:   "drawsync.events",
	}
}

// NewDialer builds the dialer matching the configured URL scheme.
func NewDialer(config Config) (Dialer, error) {
	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid transport url: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return NewWebSocketDialer(config), nil
	case "tcp":
		return NewTCPDialer(config), nil
	case "nats", "tls":
		return NewNATSDialer(config), nil
	default:
		return nil, fmt.Errorf("unsupported transport scheme %q", u.Scheme)
	}
}

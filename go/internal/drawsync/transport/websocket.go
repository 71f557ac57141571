package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketDialer opens gorilla websocket channels.
type WebSocketDialer struct {
	config Config
	header http.Header
	dialer websocket.Dialer
}

// NewWebSocketDialer creates a dialer for ws:// and wss:// urls.
func NewWebSocketDialer(config Config) *WebSocketDialer {
	return &WebSocketDialer{
		config: config,
		header: make(http.Header),
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: config.DialTimeout,
		},
	}
}

// SetHeader adds a header sent with the upgrade request.
func (d *WebSocketDialer) SetHeader(key, value string) {
	d.header.Set(key, value)
}

func (d *WebSocketDialer) Dial(ctx context.Context) (Channel, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.config.URL, d.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial websocket (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial websocket: %w", err)
	}

	ch := &wsChannel{
		conn:   conn,
		config: d.config,
		done:   make(chan struct{}),
	}
	ch.configureRead()
	if d.config.PingInterval > 0 {
		go ch.pingLoop()
	}

	log.Debug().Str("url", d.config.URL).Msg("websocket channel opened")
	return ch, nil
}

type wsChannel struct {
	conn   *websocket.Conn
	config Config

	// gorilla allows one concurrent writer
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsChannel) configureRead() {
	if c.config.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.config.MaxMessageSize)
	}
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})
}

func (c *wsChannel) extendReadDeadline() {
	if c.config.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}

func (c *wsChannel) Write(ctx context.Context, frame []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(c.writeDeadline(ctx))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to write websocket frame: %w", err)
	}
	return nil
}

func (c *wsChannel) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		select {
		case <-c.done:
			return nil, ErrClosed
		default:
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			log.Warn().Err(err).Msg("unexpected websocket close")
		}
		return nil, fmt.Errorf("failed to read websocket frame: %w", err)
	}
	c.extendReadDeadline()
	return data, nil
}

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()

		err = c.conn.Close()
	})
	return err
}

func (c *wsChannel) pingLoop() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(c.writeDeadline(context.Background()))
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				log.Debug().Err(err).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *wsChannel) writeDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.config.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && (c.config.WriteTimeout <= 0 || d.Before(deadline)) {
		return d
	}
	if c.config.WriteTimeout <= 0 {
		return time.Time{}
	}
	return deadline
}

package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// TCPDialer opens raw stream channels carrying newline-terminated records.
type TCPDialer struct {
	config Config
}

func NewTCPDialer(config Config) *TCPDialer {
	return &TCPDialer{config: config}
}

func (d *TCPDialer) Dial(ctx context.Context) (Channel, error) {
	u, err := url.Parse(d.config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid tcp url: %w", err)
	}

	dialer := net.Dialer{Timeout: d.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to dial tcp: %w", err)
	}

	log.Debug().Str("addr", u.Host).Msg("tcp channel opened")
	return newTCPChannel(conn, d.config), nil
}

type tcpChannel struct {
	conn    net.Conn
	reader  *bufio.Reader
	config  Config
	writeMu sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once
}

func newTCPChannel(conn net.Conn, config Config) *tcpChannel {
	size := 4096
	if config.MaxMessageSize > int64(size) {
		size = int(config.MaxMessageSize)
	}
	return &tcpChannel{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, size),
		config: config,
		closed: make(chan struct{}),
	}
}

func (c *tcpChannel) Write(ctx context.Context, frame []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if d, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(d)
	} else if c.config.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}

	if len(frame) == 0 || frame[len(frame)-1] != '\n' {
		frame = append(frame[:len(frame):len(frame)], '\n')
	}
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("failed to write tcp record: %w", err)
	}
	return nil
}

// Read returns the next record. The server does not ping on raw streams, so
// no read deadline is applied.
func (c *tcpChannel) Read(ctx context.Context) ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		select {
		case <-c.closed:
			return nil, ErrClosed
		default:
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("failed to read tcp record: %w", err)
	}
	return line, nil
}

func (c *tcpChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

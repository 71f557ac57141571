package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// ClientIDHeader tags every command so the server can route replies to
// <EventSubject>.<client id>.
const ClientIDHeader = "Drawsync-Client-Id"

// NATSDialer opens channels over a NATS connection. Commands are published on
// CommandSubject; events arrive on EventSubject and on a per-client subject.
type NATSDialer struct {
	config   Config
	clientID string
}

func NewNATSDialer(config Config) *NATSDialer {
	return &NATSDialer{
		config:   config,
		clientID: uuid.New().String(),
	}
}

// ClientID returns the id announced in ClientIDHeader.
func (d *NATSDialer) ClientID() string {
	return d.clientID
}

func (d *NATSDialer) Dial(ctx context.Context) (Channel, error) {
	ch := &natsChannel{
		config:   d.config,
		clientID: d.clientID,
		inbox:    make(chan *nats.Msg, 256),
		closed:   make(chan struct{}),
	}

	// reconnects are owned by the connection manager
	opts := []nats.Option{
		nats.Name("drawsync-" + d.clientID),
		nats.NoReconnect(),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
			ch.markClosed()
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			ch.markClosed()
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	if d.config.DialTimeout > 0 {
		opts = append(opts, nats.Timeout(d.config.DialTimeout))
	}

	nc, err := nats.Connect(d.config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	ch.nc = nc

	for _, subject := range []string{d.config.EventSubject, d.config.EventSubject + "." + d.clientID} {
		sub, err := nc.ChanSubscribe(subject, ch.inbox)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
		}
		ch.subs = append(ch.subs, sub)
	}

	if err := flush(ctx, nc, d.config); err != nil {
		nc.Close()
		return nil, fmt.Errorf("flush NATS subscriptions: %w", err)
	}

	log.Debug().
		Str("url", nc.ConnectedUrl()).
		Str("client_id", d.clientID).
		Msg("NATS channel opened")
	return ch, nil
}

type natsChannel struct {
	nc       *nats.Conn
	subs     []*nats.Subscription
	config   Config
	clientID string

	inbox     chan *nats.Msg
	closed    chan struct{}
	closeOnce sync.Once
}

func (c *natsChannel) markClosed() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *natsChannel) Write(ctx context.Context, frame []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	msg := nats.NewMsg(c.config.CommandSubject)
	msg.Header.Set(ClientIDHeader, c.clientID)
	msg.Data = frame

	if err := c.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish command: %w", err)
	}
	return nil
}

func (c *natsChannel) Read(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-c.inbox:
		return msg.Data, nil
	case <-c.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *natsChannel) Close() error {
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.nc.Close()
	c.markClosed()
	return nil
}

// flush waits for the server to acknowledge the subscriptions.
// FlushWithContext requires a deadline.
func flush(ctx context.Context, nc *nats.Conn, config Config) error {
	if _, ok := ctx.Deadline(); ok {
		return nc.FlushWithContext(ctx)
	}
	if config.DialTimeout <= 0 {
		return nc.Flush()
	}
	fctx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()
	return nc.FlushWithContext(fctx)
}

// Package transporttest provides in-memory transport fakes for tests.
package transporttest

import (
	"context"
	"errors"
	"sync"

	"github.com/mcdev12/drawsync/go/internal/drawsync/transport"
)

var ErrWriteFailed = errors.New("fake write failure")

// Channel is an in-memory transport.Channel. Deliver feeds inbound frames and
// Written reports what the client sent.
type Channel struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu         sync.Mutex
	writes     []string
	failWrites bool
}

func NewChannel() *Channel {
	return &Channel{
		inbound: make(chan []byte, 256),
		closed:  make(chan struct{}),
	}
}

func (c *Channel) Write(ctx context.Context, frame []byte) error {
	select {
	case <-c.closed:
		return transport.ErrClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return ErrWriteFailed
	}
	c.writes = append(c.writes, string(frame))
	return nil
}

func (c *Channel) Read(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Channel) Close() error {
	c.once.Do(func() {
		close(c.closed)
	})
	return nil
}

// Deliver queues a frame for the client to read.
func (c *Channel) Deliver(frame string) {
	c.inbound <- []byte(frame)
}

// FailWrites makes every subsequent Write fail.
func (c *Channel) FailWrites(fail bool) {
	c.mu.Lock()
	c.failWrites = fail
	c.mu.Unlock()
}

// Written returns a copy of every frame written so far.
func (c *Channel) Written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

func (c *Channel) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Attempt is the outcome of one Dial call.
type Attempt struct {
	Channel *Channel
	Err     error
}

type script struct {
	err   error
	block bool
}

// Dialer hands out fake channels. Outcomes can be scripted with FailNext and
// BlockNext; unscripted dials succeed.
type Dialer struct {
	mu      sync.Mutex
	scripts []script
	dials   int

	// Attempts receives every completed dial.
	Attempts chan Attempt
}

var _ transport.Dialer = (*Dialer)(nil)

func NewDialer() *Dialer {
	return &Dialer{Attempts: make(chan Attempt, 64)}
}

// FailNext makes the next n dials fail with err.
func (d *Dialer) FailNext(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < n; i++ {
		d.scripts = append(d.scripts, script{err: err})
	}
}

// BlockNext makes the next dial wait until its context is cancelled.
func (d *Dialer) BlockNext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts = append(d.scripts, script{block: true})
}

// Dials returns how many times Dial has been called.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *Dialer) Dial(ctx context.Context) (transport.Channel, error) {
	d.mu.Lock()
	d.dials++
	var s script
	if len(d.scripts) > 0 {
		s = d.scripts[0]
		d.scripts = d.scripts[1:]
	}
	d.mu.Unlock()

	if s.block {
		<-ctx.Done()
		d.Attempts <- Attempt{Err: ctx.Err()}
		return nil, ctx.Err()
	}
	if s.err != nil {
		d.Attempts <- Attempt{Err: s.err}
		return nil, s.err
	}

	ch := NewChannel()
	d.Attempts <- Attempt{Channel: ch}
	return ch, nil
}

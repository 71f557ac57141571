package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsHandlersInRegistrationOrder(t *testing.T) {
	b := New[int]()
	var calls []string

	b.Subscribe("tick", func(v int) error {
		calls = append(calls, "first")
		return nil
	})
	b.Subscribe("tick", func(v int) error {
		calls = append(calls, "second")
		return nil
	})
	b.Subscribe("other", func(v int) error {
		calls = append(calls, "other")
		return nil
	})

	b.Publish("tick", 1)

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublishIsolatesFailingHandlers(t *testing.T) {
	var reported []error
	b := New[string](WithErrorReporter[string](func(name string, err error) {
		assert.Equal(t, "evt", name)
		reported = append(reported, err)
	}))

	var got []string
	b.Subscribe("evt", func(s string) error { return errors.New("boom") })
	b.Subscribe("evt", func(s string) error { panic("kaboom") })
	b.Subscribe("evt", func(s string) error {
		got = append(got, s)
		return nil
	})

	require.NotPanics(t, func() { b.Publish("evt", "payload") })

	assert.Equal(t, []string{"payload"}, got)
	require.Len(t, reported, 2)
	assert.EqualError(t, reported[0], "boom")
	assert.Contains(t, reported[1].Error(), "kaboom")
}

func TestUnsubscribe(t *testing.T) {
	b := New[int]()
	count := 0

	sub := b.Subscribe("evt", func(int) error {
		count++
		return nil
	})
	b.Publish("evt", 0)
	b.Unsubscribe(sub)
	b.Publish("evt", 0)

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, b.HandlerCount("evt"))

	// unknown subscription is ignored
	b.Unsubscribe(Subscription{Name: "evt", id: 99})
	b.Unsubscribe(sub)
}

func TestPublishUsesSnapshot(t *testing.T) {
	b := New[int]()
	lateCalls := 0
	var selfSub Subscription

	selfSub = b.Subscribe("evt", func(int) error {
		b.Unsubscribe(selfSub)
		b.Subscribe("evt", func(int) error {
			lateCalls++
			return nil
		})
		return nil
	})
	secondCalls := 0
	b.Subscribe("evt", func(int) error {
		secondCalls++
		return nil
	})

	b.Publish("evt", 1)

	assert.Equal(t, 1, secondCalls, "handler removed mid-dispatch must not skip later handlers")
	assert.Equal(t, 0, lateCalls, "handler added mid-dispatch must not run in the same publish")

	b.Publish("evt", 2)
	assert.Equal(t, 2, secondCalls)
	assert.Equal(t, 1, lateCalls)
}

func TestPublishWithoutHandlers(t *testing.T) {
	b := New[int]()
	assert.NotPanics(t, func() { b.Publish("nobody", 1) })
}

func TestFIFOWithinName(t *testing.T) {
	b := New[int]()
	var seen []int
	b.Subscribe("n", func(v int) error {
		seen = append(seen, v)
		return nil
	})

	for i := 0; i < 5; i++ {
		b.Publish("n", i)
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
}

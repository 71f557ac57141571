package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/drawsync/go/internal/drawsync/game"
	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
)

type offlineSender struct{}

func (offlineSender) Send(protocol.Message) error { return nil }
func (offlineSender) Connected() bool             { return false }

func TestEngineReplaysOnEveryRevision(t *testing.T) {
	r := game.NewReducer(game.DefaultConfig(), offlineSender{})

	var renders []Plan
	engine := NewEngine(SurfaceFunc(func(p Plan) error {
		renders = append(renders, p)
		return nil
	}))

	sub, err := engine.Attach(r)
	require.NoError(t, err)
	require.Len(t, renders, 1)
	assert.True(t, renders[0].Empty())

	require.NoError(t, r.Handle(protocol.DrawData{Data: pt(1, 1, 0, 0, true, true)}))
	require.NoError(t, r.Handle(protocol.DrawData{Data: pt(1, 2, 1, 1, true, false)}))
	require.Len(t, renders, 3)
	assert.Len(t, engine.Plan().Segments[0].Points, 2)

	// state changes that leave the log alone do not re-render
	require.NoError(t, r.Handle(protocol.TimeUpdate{TimeRemaining: 10}))
	assert.Len(t, renders, 3)

	r.Unwatch(sub)
	require.NoError(t, r.Handle(protocol.DrawData{Data: pt(1, 3, 2, 2, true, false)}))
	assert.Len(t, renders, 3)
}

func TestEngineIgnoresOlderRevisions(t *testing.T) {
	r := game.NewReducer(game.DefaultConfig(), offlineSender{})
	engine := NewEngine(nil)
	_, err := engine.Attach(r)
	require.NoError(t, err)

	require.NoError(t, r.Handle(protocol.DrawData{Data: pt(1, 1, 0, 0, true, true)}))
	older := r.Snapshot()
	require.NoError(t, r.Handle(protocol.DrawData{Data: pt(1, 2, 1, 1, true, false)}))
	require.Len(t, engine.Plan().Segments[0].Points, 2)

	require.NoError(t, engine.Observe(older))
	require.Len(t, engine.Plan().Segments, 1)
	assert.Len(t, engine.Plan().Segments[0].Points, 2)
}

func TestEngineClearWinsOverEarlierAppends(t *testing.T) {
	r := game.NewReducer(game.DefaultConfig(), offlineSender{})
	engine := NewEngine(nil)
	_, err := engine.Attach(r)
	require.NoError(t, err)

	for _, msg := range []protocol.Message{
		protocol.DrawData{Data: pt(2, 1, 0, 0, true, true)},
		protocol.DrawData{Data: pt(2, 2, 1, 1, true, false)},
		protocol.CanvasCleared{UserID: 2},
	} {
		require.NoError(t, r.Handle(msg))
	}

	assert.True(t, engine.Plan().Empty())
}

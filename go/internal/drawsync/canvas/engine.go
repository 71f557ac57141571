package canvas

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/drawsync/go/internal/drawsync/bus"
	"github.com/mcdev12/drawsync/go/internal/drawsync/game"
)

// Surface is the drawing layer that consumes render plans.
type Surface interface {
	Render(plan Plan) error
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(plan Plan) error

func (f SurfaceFunc) Render(plan Plan) error {
	return f(plan)
}

// Engine keeps a render plan in step with the reducer's drawing log. Every
// log revision triggers a full replay.
type Engine struct {
	surface Surface

	mu       sync.Mutex
	revision uint64
	primed   bool
	plan     Plan
}

func NewEngine(surface Surface) *Engine {
	return &Engine{surface: surface}
}

// Attach starts following r and renders its current drawing immediately.
func (e *Engine) Attach(r *game.Reducer) (bus.Subscription, error) {
	sub := r.WatchState(e.Observe)
	return sub, e.Observe(r.Snapshot())
}

// Observe replays the log when its revision moved forward. Snapshots can
// arrive out of order across goroutines, so older revisions are ignored.
func (e *Engine) Observe(s game.State) error {
	e.mu.Lock()
	if e.primed && s.DrawingRevision <= e.revision {
		e.mu.Unlock()
		return nil
	}
	plan := Replay(s.Drawing)
	e.revision = s.DrawingRevision
	e.primed = true
	e.plan = plan
	e.mu.Unlock()

	log.Debug().
		Uint64("revision", s.DrawingRevision).
		Int("points", len(s.Drawing)).
		Int("segments", len(plan.Segments)).
		Msg("drawing replayed")

	if e.surface == nil {
		return nil
	}
	return e.surface.Render(plan)
}

// Plan returns the most recent render plan.
func (e *Engine) Plan() Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plan
}

package canvas

import (
	"sort"

	"github.com/mcdev12/drawsync/go/internal/drawsync/protocol"
)

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OpKind distinguishes path operations.
type OpKind string

const (
	OpMoveTo OpKind = "move_to"
	OpLineTo OpKind = "line_to"
)

// Op is one path-draw operation.
type Op struct {
	Kind OpKind  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Segment is one continuous pen-down path of a single user.
type Segment struct {
	UserID    int64   `json:"user_id"`
	Color     string  `json:"color"`
	BrushSize float64 `json:"brush_size"`
	Points    []Point `json:"points"`
}

// Ops renders the segment as a move-to followed by line-tos.
func (s Segment) Ops() []Op {
	ops := make([]Op, 0, len(s.Points))
	for i, p := range s.Points {
		kind := OpLineTo
		if i == 0 {
			kind = OpMoveTo
		}
		ops = append(ops, Op{Kind: kind, X: p.X, Y: p.Y})
	}
	return ops
}

// Plan is everything needed to redraw the surface from blank.
type Plan struct {
	Segments []Segment `json:"segments"`
}

// Empty reports whether the plan draws nothing.
func (p Plan) Empty() bool {
	return len(p.Segments) == 0
}

// Replay rebuilds the render plan from a drawing log. Points are grouped per
// user in order of first appearance and sorted by timestamp within each user,
// so interleaved arrival across users never splits or merges strokes.
func Replay(log []protocol.DrawPoint) Plan {
	var order []int64
	byUser := make(map[int64][]protocol.DrawPoint)
	for _, p := range log {
		if _, seen := byUser[p.UserID]; !seen {
			order = append(order, p.UserID)
		}
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}

	plan := Plan{}
	for _, user := range order {
		points := byUser[user]
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Timestamp < points[j].Timestamp
		})
		plan.Segments = append(plan.Segments, segmentsFor(user, points)...)
	}
	return plan
}

func segmentsFor(user int64, points []protocol.DrawPoint) []Segment {
	var (
		segments []Segment
		open     *Segment
		afterUp  bool
	)

	closeOpen := func() {
		if open != nil && len(open.Points) > 0 {
			segments = append(segments, *open)
		}
		open = nil
	}

	for i, p := range points {
		if !p.IsDrawing {
			closeOpen()
			afterUp = true
			continue
		}

		if open == nil || i == 0 || p.IsFirstPoint || afterUp {
			closeOpen()
			open = &Segment{
				UserID:    user,
				Color:     p.ColorOrDefault(),
				BrushSize: p.BrushSizeOrDefault(),
			}
		}
		open.Points = append(open.Points, Point{X: p.X, Y: p.Y})
		afterUp = false
	}
	closeOpen()

	return segments
}

package protocol

import "fmt"

const (
	DefaultColor     = "#000000"
	DefaultBrushSize = 2.0
)

// DrawPoint is one sample of a stroke as relayed by the server.
type DrawPoint struct {
	UserID       int64   `json:"user_id"`
	Username     string  `json:"username,omitempty"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	IsDrawing    bool    `json:"is_drawing"`
	IsFirstPoint bool    `json:"is_first_point"`
	Color        string  `json:"color,omitempty"`
	BrushSize    float64 `json:"brush_size,omitempty"`
	Timestamp    int64   `json:"timestamp"`
}

// Key identifies a point for duplicate suppression.
func (p DrawPoint) Key() string {
	return fmt.Sprintf("%d:%d:%g:%g:%t:%t", p.UserID, p.Timestamp, p.X, p.Y, p.IsDrawing, p.IsFirstPoint)
}

// ColorOrDefault returns the point's color, falling back to black.
func (p DrawPoint) ColorOrDefault() string {
	if p.Color == "" {
		return DefaultColor
	}
	return p.Color
}

// BrushSizeOrDefault returns the point's brush size, falling back to 2.
func (p DrawPoint) BrushSizeOrDefault() float64 {
	if p.BrushSize <= 0 {
		return DefaultBrushSize
	}
	return p.BrushSize
}

// ToDraw converts the point into its outbound form.
func (p DrawPoint) ToDraw() Draw {
	return Draw{
		X:            p.X,
		Y:            p.Y,
		IsDrawing:    p.IsDrawing,
		IsFirstPoint: p.IsFirstPoint,
		Color:        p.ColorOrDefault(),
		BrushSize:    p.BrushSizeOrDefault(),
		Timestamp:    p.Timestamp,
	}
}

package mousepca

import (
	"math"
)

// Frame is a single depth image flattened row-major to Height*Width values.
// A nil Frame marks a missing or corrupted recording slot, the Session
// validity mask is the authoritative marker.
type Frame []float32

// Session is an ordered sequence of depth frames for one recording plus a
// parallel validity mask.  All frames share the session's dimensions.
type Session struct {
	// Key is the stable session identifier used in reports and containers
	Key string
	// Height of each frame in pixels
	Height int
	// Width of each frame in pixels
	Width int
	// Frames in recording order, each of length Height*Width
	Frames []Frame
	// Valid marks which frames hold usable data
	Valid []bool
}

// Dim returns the flattened frame dimension
func (s *Session) Dim() int {
	return s.Height * s.Width
}

// Len returns the number of frames including invalid slots
func (s *Session) Len() int {
	return len(s.Frames)
}

// ValidCount returns the number of valid frames
func (s *Session) ValidCount() int {

	n := 0

	for _, v := range s.Valid {
		if v {
			n++
		}
	}

	return n
}

// ValidFrames returns the valid frames in recording order
func (s *Session) ValidFrames() []Frame {

	frames := make([]Frame, 0, s.ValidCount())

	for i, f := range s.Frames {
		if s.Valid[i] {
			frames = append(frames, f)
		}
	}

	return frames
}

// ScoreMatrix holds per-frame PCA scores for one session.  Rows align with
// the source recording, invalid frames carry an all-NaN sentinel row so
// frame indices stay aligned with the original footage.
type ScoreMatrix struct {
	// Key of the session the scores were computed from
	Key string
	// K is the number of components per row
	K int
	// Scores has one row per source frame
	Scores [][]float64
}

// SentinelRow returns an all-NaN row of width k used for invalid frames
func SentinelRow(k int) []float64 {

	row := make([]float64, k)

	for i := range row {
		row[i] = math.NaN()
	}

	return row
}

// IsSentinel reports whether a score row is the invalid-frame sentinel
func IsSentinel(row []float64) bool {

	for _, v := range row {
		if !math.IsNaN(v) {
			return false
		}
	}

	return len(row) > 0
}

// Rotate180 returns a copy of the frame rotated 180 degrees in-plane.  For a
// row-major frame this is a reversal of the flattened pixel order.
func Rotate180(f Frame) Frame {

	out := make(Frame, len(f))

	for i, v := range f {
		out[len(f)-1-i] = v
	}

	return out
}

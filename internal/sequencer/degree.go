package sequencer

import (
	"math"

	"github.com/cbegin/sonify-go/internal/voices"
)

// Degrees holds each voice's cursor into the active scale.
// Every entry stays in [0, scale length).
type Degrees [voices.Count]int

// NewDegrees wraps the starting cursors into range for a scale of scaleLen.
func NewDegrees(initial [voices.Count]int, scaleLen int) Degrees {
	var d Degrees
	if scaleLen <= 0 {
		return d
	}
	for i, v := range initial {
		d[i] = int(math.Mod(math.Abs(float64(v)), float64(scaleLen)))
	}
	return d
}

// Advance moves a voice's cursor by round(val*12) scale steps, folding
// negative positions by absolute value, and returns the new degree.
func (d *Degrees) Advance(id voices.ID, val float64, scaleLen int) int {
	if scaleLen <= 0 || math.IsNaN(val) || math.IsInf(val, 0) {
		return d[id]
	}
	jump := math.Floor(val*12 + 0.5)
	next := math.Mod(math.Abs(float64(d[id])+jump), float64(scaleLen))
	d[id] = int(next)
	return d[id]
}

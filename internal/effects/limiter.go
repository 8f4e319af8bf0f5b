package effects

import (
	"math"
	"time"
)

// Limiter is a stereo-linked peak compressor for the master bus. It keeps
// a dense chord of samples from clipping the output.
type Limiter struct {
	threshold float32
	ratio     float32
	attack    float32
	release   float32
	env       float32
}

// NewLimiter creates a limiter. ratio 20 or more behaves as a brickwall.
func NewLimiter(sampleRate int, thresholdDB, ratio float64, attack, release time.Duration) *Limiter {
	if ratio < 1 {
		ratio = 1
	}
	return &Limiter{
		threshold: float32(DBToAmp(thresholdDB)),
		ratio:     float32(ratio),
		attack:    coefficient(sampleRate, attack),
		release:   coefficient(sampleRate, release),
	}
}

func coefficient(sampleRate int, t time.Duration) float32 {
	frames := t.Seconds() * float64(sampleRate)
	if frames <= 0 {
		return 1
	}
	return float32(1 - math.Exp(-1/frames))
}

func (c *Limiter) Process(l, r float32) (float32, float32) {
	peak := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	if peak > c.env {
		c.env += c.attack * (peak - c.env)
	} else {
		c.env += c.release * (peak - c.env)
	}
	g := c.gain()
	return l * g, r * g
}

func (c *Limiter) gain() float32 {
	if c.env <= c.threshold || c.threshold <= 0 {
		return 1
	}
	over := c.env / c.threshold
	return float32(math.Pow(float64(over), float64(1/c.ratio-1)))
}

func (c *Limiter) Reset() { c.env = 0 }

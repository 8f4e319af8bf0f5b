// Package effects holds the stereo processors of the sampler's buses.
package effects

import "math"

// Effector processes one stereo frame.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain runs effects in series.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	c := &Chain{}
	for _, e := range effects {
		c.Add(e)
	}
	return c
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	if e != nil {
		c.effects = append(c.effects, e)
	}
}

func (c *Chain) Len() int { return len(c.effects) }

// Gain scales both channels by a fixed factor.
type Gain float32

// GainDB returns the Gain for a level in decibels.
func GainDB(db float64) Gain { return Gain(DBToAmp(db)) }

func (g Gain) Process(l, r float32) (float32, float32) {
	return l * float32(g), r * float32(g)
}

func (Gain) Reset() {}

// DBToAmp converts decibels to a linear amplitude factor.
func DBToAmp(db float64) float64 { return math.Pow(10, db/20) }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

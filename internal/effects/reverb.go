package effects

import (
	"math"
	"time"
)

// Reverb is a Schroeder reverb: four parallel combs into two allpasses.
// Comb feedback is derived from the requested decay so the tail falls by
// 60 dB over that time.
type Reverb struct {
	combs   [4]feedbackLine
	diffuse [2]feedbackLine
	wet     float32
}

// feedbackLine is a fixed-length circular buffer that recirculates gain
// times its output.
type feedbackLine struct {
	buf  []float32
	head int
	gain float32
}

// Comb and allpass lengths in seconds, mutually prime at common rates.
var (
	combTimes    = [4]float64{0.0297, 0.0371, 0.0411, 0.0437}
	allpassTimes = [2]float64{0.005, 0.0017}
)

const allpassGain = 0.5

// NewReverb creates a reverb with the given decay and wet mix (0..1).
func NewReverb(sampleRate int, decay time.Duration, wet float32) *Reverb {
	r := &Reverb{wet: clamp(wet, 0, 1)}
	for i, t := range combTimes {
		r.combs[i].buf = make([]float32, framesFor(sampleRate, seconds(t)))
	}
	for i, t := range allpassTimes {
		r.diffuse[i] = feedbackLine{
			buf:  make([]float32, framesFor(sampleRate, seconds(t))),
			gain: allpassGain,
		}
	}
	r.SetDecay(decay)
	return r
}

// SetDecay retunes the comb feedback for a new RT60.
func (r *Reverb) SetDecay(decay time.Duration) {
	for i, t := range combTimes {
		r.combs[i].gain = combFeedback(t, decay.Seconds())
	}
}

func combFeedback(delay, decay float64) float32 {
	if decay <= 0 {
		return 0
	}
	return clamp(float32(math.Pow(10, -3*delay/decay)), 0, 0.98)
}

func seconds(s float64) time.Duration { return time.Duration(s * float64(time.Second)) }

// Process sums the input to mono for the tail and mixes it back into both
// channels.
func (r *Reverb) Process(left, right float32) (float32, float32) {
	in := 0.5 * (left + right)
	var tail float32
	for i := range r.combs {
		tail += r.combs[i].comb(in)
	}
	tail /= float32(len(r.combs))
	for i := range r.diffuse {
		tail = r.diffuse[i].allpass(tail)
	}
	dry := 1 - r.wet
	return dry*left + r.wet*tail, dry*right + r.wet*tail
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		r.combs[i].reset()
	}
	for i := range r.diffuse {
		r.diffuse[i].reset()
	}
}

func (f *feedbackLine) comb(in float32) float32 {
	y := f.buf[f.head]
	f.push(in + f.gain*y)
	return y
}

func (f *feedbackLine) allpass(in float32) float32 {
	y := f.buf[f.head]
	f.push(in + f.gain*y)
	return y - in
}

func (f *feedbackLine) push(v float32) {
	f.buf[f.head] = v
	if f.head++; f.head == len(f.buf) {
		f.head = 0
	}
}

func (f *feedbackLine) reset() {
	clear(f.buf)
	f.head = 0
}

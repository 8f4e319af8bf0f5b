package effects

import "time"

// Delay is a stereo feedback delay whose time can change while running.
// The buffer is sized once for the longest time it will be asked for.
type Delay struct {
	sampleRate int
	bufL, bufR []float32
	length     int
	pos        int
	feedback   float32
	wet        float32
}

// NewDelay creates a delay holding at most maxTime of audio, initially set
// to delayTime. feedback and wet are 0..1.
func NewDelay(sampleRate int, maxTime, delayTime time.Duration, feedback, wet float32) *Delay {
	size := framesFor(sampleRate, maxTime)
	d := &Delay{
		sampleRate: sampleRate,
		bufL:       make([]float32, size),
		bufR:       make([]float32, size),
		feedback:   clamp(feedback, 0, 0.95),
		wet:        clamp(wet, 0, 1),
	}
	d.SetTime(delayTime)
	return d
}

// SetTime changes the delay time, clamped to the buffer. Echoes already in
// the line keep their samples.
func (d *Delay) SetTime(t time.Duration) {
	n := framesFor(d.sampleRate, t)
	if n > len(d.bufL) {
		n = len(d.bufL)
	}
	d.length = n
	if d.pos >= n {
		d.pos = 0
	}
}

// Time returns the current delay time.
func (d *Delay) Time() time.Duration {
	return time.Duration(float64(d.length) / float64(d.sampleRate) * float64(time.Second))
}

func (d *Delay) Process(l, r float32) (float32, float32) {
	delL := d.bufL[d.pos]
	delR := d.bufR[d.pos]
	d.bufL[d.pos] = l + delL*d.feedback
	d.bufR[d.pos] = r + delR*d.feedback
	d.pos++
	if d.pos >= d.length {
		d.pos = 0
	}
	return l*(1-d.wet) + delL*d.wet, r*(1-d.wet) + delR*d.wet
}

func (d *Delay) Reset() {
	for i := range d.bufL {
		d.bufL[i] = 0
		d.bufR[i] = 0
	}
	d.pos = 0
}

func framesFor(sampleRate int, t time.Duration) int {
	n := int(t.Seconds() * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	return n
}

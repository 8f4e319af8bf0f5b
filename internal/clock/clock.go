// Package clock drives a performance one sixteenth note at a time.
//
// A Scheduler calls its tick function with the time elapsed since Start.
// Ticker runs on the wall clock, Frames follows an audio stream by counting
// rendered frames, and Manual only moves when told to.
package clock

import (
	"sync"
	"time"
)

// StepsPerBeat is the tick resolution: sixteenth notes.
const StepsPerBeat = 4

// Scheduler calls fn once per step at bpm until stopped. Start replaces any
// running schedule. Stop is idempotent and must not wait for a tick in
// progress, so that fn may itself call Stop.
type Scheduler interface {
	Start(bpm float64, fn func(at time.Duration))
	Stop()
}

// StepDuration is the wall time of one sixteenth note.
func StepDuration(bpm float64) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Duration(float64(time.Minute) / bpm / StepsPerBeat)
}

// Ticker schedules steps on a background goroutine. The first step fires
// immediately.
type Ticker struct {
	mu   sync.Mutex
	stop chan struct{}
	gen  uint64
}

func NewTicker() *Ticker { return &Ticker{} }

func (t *Ticker) Start(bpm float64, fn func(at time.Duration)) {
	step := StepDuration(bpm)
	if step <= 0 || fn == nil {
		t.Stop()
		return
	}
	t.mu.Lock()
	if t.stop != nil {
		close(t.stop)
	}
	stop := make(chan struct{})
	t.stop = stop
	t.gen++
	gen := t.gen
	t.mu.Unlock()

	go t.run(gen, stop, step, fn)
}

func (t *Ticker) run(gen uint64, stop chan struct{}, step time.Duration, fn func(time.Duration)) {
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	start := time.Now()
	if !t.current(gen) {
		return
	}
	fn(0)
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if !t.current(gen) {
				return
			}
			fn(now.Sub(start))
		}
	}
}

func (t *Ticker) current(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil && t.gen == gen
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// Running reports whether a schedule is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

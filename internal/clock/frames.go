package clock

import (
	"sync"
	"time"
)

// Frames schedules steps against rendered audio. The audio callback calls
// Advance with the number of frames it is about to produce; every step
// whose start falls inside that block fires, stamped with its exact frame
// time. The first step fires on the first Advance after Start.
type Frames struct {
	mu            sync.Mutex
	sampleRate    int
	framesPerStep float64
	nextStep      float64
	pos           int64
	fn            func(at time.Duration)
	gen           uint64
}

func NewFrames(sampleRate int) *Frames {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &Frames{sampleRate: sampleRate}
}

func (f *Frames) SampleRate() int { return f.sampleRate }

func (f *Frames) Start(bpm float64, fn func(at time.Duration)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	if bpm <= 0 || fn == nil {
		f.fn = nil
		return
	}
	f.framesPerStep = float64(f.sampleRate) * 60 / bpm / StepsPerBeat
	f.nextStep = 0
	f.pos = 0
	f.fn = fn
}

func (f *Frames) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.fn = nil
}

// Position returns the frame count since Start.
func (f *Frames) Position() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *Frames) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fn != nil
}

// Advance moves the clock forward by n frames and fires the steps that
// start inside the block. Ticks run without the clock's lock held.
func (f *Frames) Advance(n int) {
	if n <= 0 {
		return
	}
	f.mu.Lock()
	if f.fn == nil {
		f.mu.Unlock()
		return
	}
	fn, gen := f.fn, f.gen
	end := float64(f.pos + int64(n))
	var due []time.Duration
	for f.nextStep < end {
		due = append(due, f.frameTime(f.nextStep))
		f.nextStep += f.framesPerStep
	}
	f.pos += int64(n)
	f.mu.Unlock()

	for _, at := range due {
		if !f.current(gen) {
			return
		}
		fn(at)
	}
}

func (f *Frames) current(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen == gen && f.fn != nil
}

func (f *Frames) frameTime(frame float64) time.Duration {
	return time.Duration(frame / float64(f.sampleRate) * float64(time.Second))
}

// Manual fires steps only when Step is called. Offline rendering and tests
// use it to run a performance without waiting on real time.
type Manual struct {
	mu   sync.Mutex
	step time.Duration
	fn   func(at time.Duration)
	gen  uint64
	n    int
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) Start(bpm float64, fn func(at time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.step = StepDuration(bpm)
	m.fn = fn
	m.n = 0
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.fn = nil
}

func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}

// Step fires up to n steps and returns how many ran. A Stop from inside a
// tick ends the run.
func (m *Manual) Step(n int) int {
	ran := 0
	for i := 0; i < n; i++ {
		m.mu.Lock()
		fn, gen := m.fn, m.gen
		if fn == nil {
			m.mu.Unlock()
			return ran
		}
		at := time.Duration(m.n) * m.step
		m.n++
		m.mu.Unlock()

		fn(at)
		ran++

		m.mu.Lock()
		stale := m.gen != gen
		m.mu.Unlock()
		if stale {
			return ran
		}
	}
	return ran
}

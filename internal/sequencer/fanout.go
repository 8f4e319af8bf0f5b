package sequencer

import (
	"sync"
)

// Fanout routes triggers to outputs by channel. Channels with no route go
// to every default output. It implements Output.
type Fanout struct {
	mu       sync.Mutex
	defaults []Output
	routes   map[Channel][]Output
}

func NewFanout(outputs ...Output) *Fanout {
	f := &Fanout{routes: make(map[Channel][]Output)}
	for _, o := range outputs {
		f.Add(o)
	}
	return f
}

// Add registers an output for every unrouted channel.
func (f *Fanout) Add(o Output) {
	if o == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults = append(f.defaults, o)
}

// Route sends ch exclusively to o (and any other outputs routed to ch).
func (f *Fanout) Route(ch Channel, o Output) {
	if o == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[ch] = append(f.routes[ch], o)
}

func (f *Fanout) outputs(ch Channel) []Output {
	f.mu.Lock()
	defer f.mu.Unlock()
	if outs, ok := f.routes[ch]; ok {
		return append([]Output(nil), outs...)
	}
	return append([]Output(nil), f.defaults...)
}

// Len returns the number of distinct registrations.
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.defaults)
	for _, outs := range f.routes {
		n += len(outs)
	}
	return n
}

func (f *Fanout) Trigger(t Trigger) {
	for _, o := range f.outputs(t.Channel) {
		o.Trigger(t)
	}
}

// Recorder keeps every trigger it receives.
type Recorder struct {
	mu       sync.Mutex
	triggers []Trigger
}

func (r *Recorder) Trigger(t Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = append(r.triggers, t)
}

// Triggers returns a copy of what was recorded, in arrival order.
func (r *Recorder) Triggers() []Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Trigger(nil), r.triggers...)
}

// Count returns how many triggers were recorded on ch.
func (r *Recorder) Count(ch Channel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.triggers {
		if t.Channel == ch {
			n++
		}
	}
	return n
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.triggers)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers = nil
}

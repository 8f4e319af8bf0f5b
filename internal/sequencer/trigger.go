package sequencer

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cbegin/sonify-go/internal/theory"
	"github.com/cbegin/sonify-go/internal/voices"
)

// Channel identifies an instrument: one per melodic voice plus percussion.
type Channel int

// ChannelPercussion follows the melodic voices.
const ChannelPercussion Channel = voices.Count

// NumChannels counts the melodic voices and percussion.
const NumChannels = voices.Count + 1

// VoiceChannel returns the channel a voice plays on.
func VoiceChannel(id voices.ID) Channel { return Channel(id) }

// Voice reports which voice owns the channel; ok is false for percussion.
func (c Channel) Voice() (id voices.ID, ok bool) {
	if c < 0 || int(c) >= voices.Count {
		return 0, false
	}
	return voices.ID(c), true
}

func (c Channel) String() string {
	if c == ChannelPercussion {
		return "perc"
	}
	if id, ok := c.Voice(); ok {
		return id.String()
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "perc" || s == "percussion" {
		return ChannelPercussion, nil
	}
	id, err := voices.ParseID(s)
	if err != nil {
		return 0, fmt.Errorf("unknown channel %q", s)
	}
	return VoiceChannel(id), nil
}

// Drum is a percussion hit. Each maps to a fixed key in the percussion kit.
type Drum int

const (
	DrumNone Drum = iota
	// Kick marks downbeats (tom).
	Kick
	// Snare marks backbeats (woodblock).
	Snare
	// Hat marks vector spikes (triangle).
	Hat
	// Impact opens a performance (tam-tam).
	Impact
)

var drumNotes = [...]theory.Note{DrumNone: -1, Kick: 36, Snare: 38, Hat: 40, Impact: 41}

var drumNames = [...]string{"none", "kick", "snare", "hat", "impact"}

// Note returns the kit key the drum is mapped to (C2, D2, E2, F2).
func (d Drum) Note() theory.Note {
	if d <= DrumNone || int(d) >= len(drumNotes) {
		return -1
	}
	return drumNotes[d]
}

func (d Drum) String() string {
	if d < 0 || int(d) >= len(drumNames) {
		return fmt.Sprintf("drum(%d)", int(d))
	}
	return drumNames[d]
}

func ParseDrum(s string) (Drum, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := Kick; int(d) < len(drumNames); d++ {
		if drumNames[d] == s {
			return d, nil
		}
	}
	return DrumNone, fmt.Errorf("unknown drum %q", s)
}

// Trigger is one decision: play Note on Channel at Time for Duration.
// Percussion hits carry a Drum and an empty Duration (one-shot).
type Trigger struct {
	Step     int
	Channel  Channel
	Drum     Drum
	Note     theory.Note
	Duration theory.NoteValue
	Time     time.Duration
	Velocity float64
}

// Output receives triggers as the sequencer emits them.
type Output interface {
	Trigger(Trigger)
}

// OutputFunc adapts a function to Output.
type OutputFunc func(Trigger)

func (f OutputFunc) Trigger(t Trigger) { f(t) }

// Readiness reports whether a channel's samples have finished loading.
type Readiness interface {
	Loaded(Channel) bool
}

// LoadedState is a set-once flag per channel. Flags are safe to set from
// loader goroutines while a performance reads them.
type LoadedState struct {
	flags [NumChannels]atomic.Bool
}

// AllLoaded returns a state with every channel ready.
func AllLoaded() *LoadedState {
	ls := &LoadedState{}
	for ch := Channel(0); ch < NumChannels; ch++ {
		ls.MarkLoaded(ch)
	}
	return ls
}

func (ls *LoadedState) MarkLoaded(ch Channel) {
	if ch < 0 || int(ch) >= NumChannels {
		return
	}
	ls.flags[ch].Store(true)
}

func (ls *LoadedState) Loaded(ch Channel) bool {
	if ls == nil || ch < 0 || int(ch) >= NumChannels {
		return false
	}
	return ls.flags[ch].Load()
}

// Snapshot returns the flags keyed by channel name.
func (ls *LoadedState) Snapshot() map[string]bool {
	out := make(map[string]bool, NumChannels)
	for ch := Channel(0); ch < NumChannels; ch++ {
		out[ch.String()] = ls.Loaded(ch)
	}
	return out
}

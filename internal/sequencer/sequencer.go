// Package sequencer turns a feature vector into a stream of note triggers,
// one step at a time. It owns no clock: callers invoke Tick once per
// sixteenth note from whatever scheduler drives the performance.
package sequencer

import (
	"math"
	"time"

	"github.com/cbegin/sonify-go/internal/features"
	"github.com/cbegin/sonify-go/internal/theory"
	"github.com/cbegin/sonify-go/internal/voices"
)

// Percussion velocities.
const (
	KickVelocity   = 0.5
	SnareVelocity  = 0.3
	HatVelocity    = 0.2
	ImpactVelocity = 0.6
)

type Options struct {
	Params   features.Params
	Rules    features.Rules
	Registry voices.Registry
	// Ready gates channels whose samples are still loading. Nil means all ready.
	Ready Readiness
	// OnStep is called after each tick with the step just played and the
	// number of triggers it produced.
	OnStep func(step, triggers int)
}

// State is the mutable part of a performance.
type State struct {
	Step    int
	Degrees Degrees
}

type Sequencer struct {
	vector   []float32
	params   features.Params
	rules    features.Rules
	registry voices.Registry
	out      Output
	ready    Readiness
	onStep   func(step, triggers int)
	state    State
}

// New prepares a performance of vector. The vector is copied and the voice
// slices are clamped to its length.
func New(vector []float32, out Output, opts Options) *Sequencer {
	v := make([]float32, len(vector))
	copy(v, vector)
	stepsPerBar := opts.Params.StepsPerBar
	if stepsPerBar <= 0 {
		opts.Params.StepsPerBar = 16
		opts.Params.BeatsPerBar = 4
	}
	if len(opts.Params.Scale) == 0 {
		opts.Params.Scale = theory.ModeScale(opts.Params.Palette, opts.Params.ModeIndex)
	}
	return &Sequencer{
		vector:   v,
		params:   opts.Params,
		rules:    opts.Rules,
		registry: opts.Registry.Clamp(len(v)),
		out:      out,
		ready:    opts.Ready,
		onStep:   opts.OnStep,
		state: State{
			Degrees: NewDegrees(opts.Rules.InitialDegrees, len(opts.Params.Scale)),
		},
	}
}

func (s *Sequencer) Params() features.Params { return s.params }

func (s *Sequencer) State() State { return s.state }

// Step is the index of the next step to play.
func (s *Sequencer) Step() int { return s.state.Step }

// StepDuration is the length of one sixteenth at the performance tempo.
func (s *Sequencer) StepDuration() time.Duration {
	return theory.Sixteenth.Duration(s.params.BPM)
}

func (s *Sequencer) loaded(ch Channel) bool {
	return s.ready == nil || s.ready.Loaded(ch)
}

// Cue emits the tam-tam hit that opens a performance. It reports whether
// the percussion kit was ready.
func (s *Sequencer) Cue(at time.Duration) bool {
	if !s.loaded(ChannelPercussion) {
		return false
	}
	s.out.Trigger(Trigger{
		Step:     s.state.Step,
		Channel:  ChannelPercussion,
		Drum:     Impact,
		Note:     Impact.Note(),
		Time:     at,
		Velocity: ImpactVelocity,
	})
	return true
}

// Tick plays the current step at time at and advances. It returns the
// number of triggers emitted.
func (s *Sequencer) Tick(at time.Duration) int {
	step := s.state.Step
	inBar := step % s.params.StepsPerBar
	downbeat := inBar == 0
	quarter := step%4 == 0
	n := 0

	emit := func(t Trigger) {
		t.Step = step
		t.Time = at
		s.out.Trigger(t)
		n++
	}

	if s.rules.Percussion && s.loaded(ChannelPercussion) {
		if downbeat {
			emit(drum(Kick, KickVelocity))
		}
		if quarter && backbeat(s.params.BeatsPerBar, inBar/4) {
			emit(drum(Snare, SnareVelocity))
		}
		if math.Abs(features.At(s.vector, step)) > s.rules.TextureThreshold {
			emit(drum(Hat, HatVelocity))
		}
	}

	scale := s.params.Scale
	transpose := theory.Transposition(s.params.Root)
	for i := range s.registry {
		cfg := s.registry[i]
		id := voices.ID(i)
		if !s.loaded(VoiceChannel(id)) {
			continue
		}
		offset := 0
		if s.params.Counterpoint {
			offset = i * s.rules.CounterpointStride
		}
		val := features.At(s.vector, cfg.SliceStart+step+offset)
		if !s.gate(id, cfg.Role, step, val, downbeat, quarter) {
			continue
		}
		deg := s.state.Degrees.Advance(id, val, len(scale))
		octave := cfg.Octave
		if val > s.rules.OctaveThreshold {
			octave++
		} else if val < -s.rules.OctaveThreshold {
			octave--
		}
		emit(Trigger{
			Channel:  VoiceChannel(id),
			Note:     theory.NoteAt(scale[deg], octave).Transpose(transpose),
			Duration: s.duration(cfg),
			Velocity: s.rules.Velocity(val),
		})
	}

	s.state.Step++
	if s.onStep != nil {
		s.onStep(step, n)
	}
	return n
}

func (s *Sequencer) gate(id voices.ID, role voices.Role, step int, val float64, downbeat, quarter bool) bool {
	r := s.rules
	if !r.RoleGating {
		if r.FallbackEvery > 0 && step%r.FallbackEvery == 0 {
			return true
		}
		return math.Abs(val) > r.GateBase+r.GateStep*float64(id)
	}
	switch role {
	case voices.Anchor:
		return downbeat
	case voices.SubAnchor:
		return quarter
	default:
		return math.Abs(val) > r.ResponsiveThreshold
	}
}

func (s *Sequencer) duration(cfg voices.Config) theory.NoteValue {
	if cfg.Spiccato {
		return theory.ThirtySecond
	}
	if s.rules.Articulated && s.params.Articulation < s.rules.StaccatoBelow {
		return theory.ThirtySecond
	}
	return cfg.Duration
}

func drum(d Drum, velocity float64) Trigger {
	return Trigger{Channel: ChannelPercussion, Drum: d, Note: d.Note(), Velocity: velocity}
}

// backbeat reports whether beat (0-based within the bar) takes the snare:
// beat 2 in 3/4, beats 2 and 4 in 4/4, beats 3 and 5 in 5/4.
func backbeat(beatsPerBar, beat int) bool {
	switch beatsPerBar {
	case 3:
		return beat == 1
	case 5:
		return beat == 2 || beat == 4
	default:
		return beat == 1 || beat == 3
	}
}

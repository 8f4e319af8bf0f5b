package sampler

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cbegin/sonify-go/internal/clock"
	"github.com/cbegin/sonify-go/internal/effects"
	"github.com/cbegin/sonify-go/internal/sequencer"
	"github.com/cbegin/sonify-go/internal/theory"
)

type Options struct {
	SampleRate       int
	VoiceGainDB      float64
	PercussionGainDB float64
	DelayNote        theory.NoteValue
	DelayFeedback    float64
	DelayWet         float64
	ReverbDecay      time.Duration
	ReverbWet        float64
	// Release is the fade applied when a note's duration ends or on ReleaseAll.
	Release   time.Duration
	MaxVoices int
}

func DefaultOptions() Options {
	return Options{
		SampleRate:       48000,
		VoiceGainDB:      -16,
		PercussionGainDB: -12,
		DelayNote:        theory.DottedEighth,
		DelayFeedback:    0.25,
		DelayWet:         1,
		ReverbDecay:      4 * time.Second,
		ReverbWet:        0.35,
		Release:          100 * time.Millisecond,
		MaxVoices:        64,
	}
}

// maxDelay covers a dotted eighth down to 30 bpm.
const maxDelay = 2 * time.Second

// Sampler mixes triggered notes into a stereo stream. Voices run through
// gain, delay and reverb; percussion through gain and reverb; both through
// a master limiter. It drives its Frames clock from the audio callback so
// steps start on exact frames.
type Sampler struct {
	mu     sync.Mutex
	opts   Options
	bank   *Bank
	clock  *clock.Frames
	log    *zap.Logger
	active []*voice
	bpm    float64

	voiceBus *effects.Chain
	percBus  *effects.Chain
	master   *effects.Chain
	delay    *effects.Delay
}

func New(bank *Bank, opts Options, log *zap.Logger) *Sampler {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.DelayNote == "" {
		opts.DelayNote = def.DelayNote
	}
	if opts.MaxVoices <= 0 {
		opts.MaxVoices = def.MaxVoices
	}
	sr := opts.SampleRate
	delay := effects.NewDelay(sr, maxDelay, opts.DelayNote.Duration(120), float32(opts.DelayFeedback), float32(opts.DelayWet))
	return &Sampler{
		opts:     opts,
		bank:     bank,
		clock:    clock.NewFrames(sr),
		log:      log,
		bpm:      120,
		voiceBus: effects.NewChain(effects.GainDB(opts.VoiceGainDB), delay),
		percBus:  effects.NewChain(effects.GainDB(opts.PercussionGainDB)),
		master: effects.NewChain(
			effects.NewReverb(sr, opts.ReverbDecay, float32(opts.ReverbWet)),
			effects.NewLimiter(sr, -1, 20, time.Millisecond, 200*time.Millisecond),
		),
		delay: delay,
	}
}

// Clock is the scheduler an engine should use to stay frame-locked to
// this sampler's output.
func (s *Sampler) Clock() *clock.Frames { return s.clock }

func (s *Sampler) SampleRate() int { return s.opts.SampleRate }

func (s *Sampler) Loaded(ch sequencer.Channel) bool { return s.bank.Loaded(ch) }

// SetTempo retimes the delay to the performance tempo.
func (s *Sampler) SetTempo(bpm float64) {
	if bpm <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bpm = bpm
	s.delay.SetTime(s.opts.DelayNote.Duration(bpm))
}

// Trigger schedules a note. Triggers for channels without an instrument
// are dropped.
func (s *Sampler) Trigger(t sequencer.Trigger) {
	zone, ok := s.bank.Instrument(t.Channel).Zone(t.Note)
	if !ok || zone.Sample == nil || zone.Sample.Frames() < 2 {
		return
	}
	v := &voice{
		ch:     t.Channel,
		sample: zone.Sample,
		rate:   math.Pow(2, float64(t.Note-zone.Root)/12),
		gain:   float32(t.Velocity),
		hold:   -1,
		relLen: s.frames(s.opts.Release),
	}
	if s.clock.Running() {
		v.start = s.frames(t.Time)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Duration != "" {
		v.hold = s.frames(t.Duration.Duration(s.bpm))
	}
	if len(s.active) >= s.opts.MaxVoices {
		s.log.Debug("voice stolen", zap.Stringer("channel", s.active[0].ch), zap.Int("max_voices", s.opts.MaxVoices))
		s.active[0].done = true
		s.active = s.active[1:]
	}
	s.active = append(s.active, v)
}

// ReleaseAll fades every sounding note and drops scheduled ones.
func (s *Sampler) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.active {
		if !v.started {
			v.done = true
			continue
		}
		v.releasing = true
	}
	s.reap()
}

// ActiveVoices counts notes that are scheduled or sounding.
func (s *Sampler) ActiveVoices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Process renders interleaved stereo frames into dst. Steps due inside the
// block fire first, outside the mixer lock, so their notes land in it.
func (s *Sampler) Process(dst []float32) {
	frames := len(dst) / 2
	blockStart := s.clock.Position()
	s.clock.Advance(frames)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < frames; i++ {
		now := blockStart + int64(i)
		var vl, vr, pl, pr float32
		for _, v := range s.active {
			l, r := v.next(now)
			if v.ch == sequencer.ChannelPercussion {
				pl += l
				pr += r
			} else {
				vl += l
				vr += r
			}
		}
		vl, vr = s.voiceBus.Process(vl, vr)
		pl, pr = s.percBus.Process(pl, pr)
		dst[2*i], dst[2*i+1] = s.master.Process(vl+pl, vr+pr)
	}
	s.reap()
}

// Reset silences the effect tails.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	s.voiceBus.Reset()
	s.percBus.Reset()
	s.master.Reset()
}

func (s *Sampler) reap() {
	kept := s.active[:0]
	for _, v := range s.active {
		if !v.done {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(s.active); i++ {
		s.active[i] = nil
	}
	s.active = kept
}

func (s *Sampler) frames(d time.Duration) int64 {
	return int64(d.Seconds() * float64(s.opts.SampleRate))
}

// voice is one sounding note.
type voice struct {
	ch        sequencer.Channel
	sample    *Sample
	pos       float64
	rate      float64
	gain      float32
	start     int64
	started   bool
	age       int64
	hold      int64 // frames before release; negative plays the sample out
	releasing bool
	relPos    int64
	relLen    int64
	done      bool
}

func (v *voice) next(now int64) (float32, float32) {
	if v.done {
		return 0, 0
	}
	if !v.started {
		if now < v.start {
			return 0, 0
		}
		v.started = true
	}
	idx := int(v.pos)
	if idx+1 >= v.sample.Frames() {
		v.done = true
		return 0, 0
	}
	frac := float32(v.pos - float64(idx))
	d := v.sample.Data
	l := d[2*idx] + (d[2*idx+2]-d[2*idx])*frac
	r := d[2*idx+1] + (d[2*idx+3]-d[2*idx+1])*frac

	if v.hold >= 0 && v.age >= v.hold {
		v.releasing = true
	}
	env := float32(1)
	if v.releasing {
		if v.relPos >= v.relLen {
			v.done = true
			return 0, 0
		}
		env = 1 - float32(v.relPos)/float32(v.relLen)
		v.relPos++
	}
	v.pos += v.rate
	v.age++
	g := v.gain * env
	return l * g, r * g
}

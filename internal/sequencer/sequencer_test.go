package sequencer

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/sonify-go/internal/features"
	"github.com/cbegin/sonify-go/internal/theory"
	"github.com/cbegin/sonify-go/internal/voices"
)

func fourFour(p theory.Palette) features.Params {
	return features.Params{
		BeatsPerBar: 4,
		StepsPerBar: 16,
		BPM:         120,
		Palette:     p,
		Scale:       theory.ModeScale(p, 0),
		Root:        theory.C,
	}
}

func run(seq *Sequencer, steps int) {
	for i := 0; i < steps; i++ {
		seq.Tick(time.Duration(i) * seq.StepDuration())
	}
}

func TestSilentVectorPlaysPulse(t *testing.T) {
	v := make([]float32, 400)
	pol := features.Dimensional{}
	rec := &Recorder{}
	seq := New(v, rec, Options{Params: pol.Extract(v), Rules: pol.Rules(), Registry: voices.Default()})
	run(seq, 16)

	assert.Equal(t, 3, rec.Count(ChannelPercussion), "one kick, two snares")
	assert.Equal(t, 1, rec.Count(VoiceChannel(voices.Bass)))
	assert.Equal(t, 4, rec.Count(VoiceChannel(voices.Tenor)))
	assert.Equal(t, 0, rec.Count(VoiceChannel(voices.Alto)))
	assert.Equal(t, 0, rec.Count(VoiceChannel(voices.Soprano)))

	first := rec.Triggers()[:3]
	assert.Equal(t, Kick, first[0].Drum)
	assert.Equal(t, theory.Note(36), first[0].Note)
	assert.Equal(t, VoiceChannel(voices.Bass), first[1].Channel)
	assert.Equal(t, theory.Note(24), first[1].Note, "C1")
	assert.Equal(t, theory.Half, first[1].Duration)
	assert.InDelta(t, 0.2, first[1].Velocity, 1e-12)
	assert.Equal(t, theory.Note(36), first[2].Note, "C2 on tenor")
	assert.Equal(t, 16, seq.Step())
}

func TestBackbeatFollowsMeter(t *testing.T) {
	cases := []struct {
		beats  int
		snares []int
		kicks  []int
	}{
		{3, []int{4, 16}, []int{0, 12}},
		{4, []int{4, 12}, []int{0, 16}},
		{5, []int{8, 16}, []int{0, 20}},
	}
	for _, tc := range cases {
		p := fourFour(theory.Dark)
		p.BeatsPerBar = tc.beats
		p.StepsPerBar = tc.beats * 4
		rec := &Recorder{}
		seq := New(make([]float32, 64), rec, Options{Params: p, Rules: features.Dimensional{}.Rules(), Registry: voices.Default()})
		run(seq, 24)

		var snares, kicks []int
		for _, tr := range rec.Triggers() {
			switch tr.Drum {
			case Snare:
				snares = append(snares, tr.Step)
			case Kick:
				kicks = append(kicks, tr.Step)
			}
		}
		assert.Equal(t, tc.kicks, kicks, "%d/4 kicks", tc.beats)
		assert.Equal(t, tc.snares, snares[:2], "%d/4 snares", tc.beats)
	}
}

func TestTextureHat(t *testing.T) {
	v := make([]float32, 400)
	v[3] = 0.75
	rec := &Recorder{}
	seq := New(v, rec, Options{Params: fourFour(theory.Dark), Rules: features.Dimensional{}.Rules(), Registry: voices.Default()})
	run(seq, 4)
	tr := rec.Triggers()
	require.Len(t, tr, 4, "kick, bass, tenor, then the hat")
	assert.Equal(t, Hat, tr[3].Drum)
	assert.Equal(t, 3, tr[3].Step)
	assert.Equal(t, theory.Note(40), tr[3].Note)
}

func TestCounterpointOffsetsResponsiveVoices(t *testing.T) {
	v := make([]float32, 400)
	v[242] = 0.5 // alto reads 192 + step + 2*25
	reg := voices.Default()

	p := fourFour(theory.Bright)
	rec := &Recorder{}
	run(New(v, rec, Options{Params: p, Rules: features.Dimensional{}.Rules(), Registry: reg}), 1)
	assert.Equal(t, 0, rec.Count(VoiceChannel(voices.Alto)))

	p.Counterpoint = true
	p.Root = theory.D
	rec = &Recorder{}
	run(New(v, rec, Options{Params: p, Rules: features.Dimensional{}.Rules(), Registry: reg}), 1)
	require.Equal(t, 1, rec.Count(VoiceChannel(voices.Alto)))
	var alto Trigger
	for _, tr := range rec.Triggers() {
		if tr.Channel == VoiceChannel(voices.Alto) {
			alto = tr
		}
	}
	// degree 0 + round(6) = 6 -> B in lydian, octave 3+1, up a whole tone for D.
	assert.Equal(t, theory.Note(73), alto.Note)
	assert.Equal(t, theory.ThirtySecond, alto.Duration)
	assert.InDelta(t, 0.55, alto.Velocity, 1e-6)
}

func TestOctaveFollowsSignAboveThreshold(t *testing.T) {
	cases := []struct {
		name   string
		policy features.Policy
		val    float32
		octave int
	}{
		{"dimensional above", features.Dimensional{}, 0.31, 2},
		{"dimensional just below", features.Dimensional{}, 0.29, 1},
		{"dimensional below negative", features.Dimensional{}, -0.31, 0},
		{"dimensional just above negative", features.Dimensional{}, -0.29, 1},
		{"dimensional ignores aggregate threshold", features.Dimensional{}, 0.08, 1},
		{"aggregate above", features.Aggregate{}, 0.08, 2},
		{"aggregate just below", features.Aggregate{}, 0.06, 1},
		{"aggregate below negative", features.Aggregate{}, -0.08, 0},
		{"aggregate just above negative", features.Aggregate{}, -0.06, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := make([]float32, 400)
			v[0] = tc.val // bass reads slice start 0 on the downbeat
			rec := &Recorder{}
			run(New(v, rec, Options{Params: fourFour(theory.Bright), Rules: tc.policy.Rules(), Registry: voices.Default()}), 1)

			var bass []Trigger
			for _, tr := range rec.Triggers() {
				if tr.Channel == VoiceChannel(voices.Bass) {
					bass = append(bass, tr)
				}
			}
			require.Len(t, bass, 1)
			assert.Equal(t, tc.octave, int(bass[0].Note)/12-1, "note %s", bass[0].Note)
		})
	}
}

func TestStaccatoForcesShortDurations(t *testing.T) {
	p := fourFour(theory.Dark)
	p.Articulation = -0.5
	rec := &Recorder{}
	run(New(make([]float32, 400), rec, Options{Params: p, Rules: features.Dimensional{}.Rules(), Registry: voices.Default()}), 1)
	for _, tr := range rec.Triggers() {
		if tr.Channel != ChannelPercussion {
			assert.Equal(t, theory.ThirtySecond, tr.Duration, tr.Channel.String())
		}
	}

	rec = &Recorder{}
	run(New(make([]float32, 400), rec, Options{Params: p, Rules: features.Aggregate{}.Rules(), Registry: voices.Default()}), 1)
	assert.Equal(t, theory.Half, rec.Triggers()[0].Duration, "aggregate ignores articulation")
}

func TestAggregateLadder(t *testing.T) {
	v := make([]float32, 400)
	v[1] = 0.25  // bass at step 1, above 0.2
	v[97] = 0.25 // tenor at step 1, below 0.3
	pol := features.Aggregate{}
	rec := &Recorder{}
	seq := New(v, rec, Options{Params: fourFour(theory.Bright), Rules: pol.Rules(), Registry: voices.Default()})
	run(seq, 17)

	steps := map[int]int{}
	for _, tr := range rec.Triggers() {
		steps[tr.Step]++
		assert.NotEqual(t, ChannelPercussion, tr.Channel)
	}
	assert.Equal(t, map[int]int{0: 4, 1: 1, 16: 4}, steps)

	// initial degrees 0..3 put the tenor on the second degree
	tenor := rec.Triggers()[1]
	assert.Equal(t, VoiceChannel(voices.Tenor), tenor.Channel)
	assert.Equal(t, theory.Note(38), tenor.Note, "D2")
}

func TestUnloadedChannelsStaySilent(t *testing.T) {
	ready := &LoadedState{}
	ready.MarkLoaded(VoiceChannel(voices.Bass))
	rec := &Recorder{}
	seq := New(make([]float32, 400), rec, Options{
		Params:   fourFour(theory.Dark),
		Rules:    features.Dimensional{}.Rules(),
		Registry: voices.Default(),
		Ready:    ready,
	})
	run(seq, 16)
	assert.Equal(t, 1, rec.Len())
	assert.False(t, seq.Cue(0))

	ready.MarkLoaded(ChannelPercussion)
	assert.True(t, seq.Cue(time.Second))
	last := rec.Triggers()[rec.Len()-1]
	assert.Equal(t, Impact, last.Drum)
	assert.Equal(t, theory.Note(41), last.Note)
	assert.Equal(t, ImpactVelocity, last.Velocity)
	assert.Equal(t, time.Second, last.Time)
}

func TestNotesStayInScale(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	v := make([]float32, 384)
	for i := range v {
		v[i] = float32(rng.NormFloat64() * 0.6)
	}
	for _, pol := range []features.Policy{features.Dimensional{}, features.Aggregate{}} {
		p := pol.Extract(v)
		rec := &Recorder{}
		seq := New(v, rec, Options{Params: p, Rules: pol.Rules(), Registry: voices.Default()})
		run(seq, 256)

		shift := theory.Transposition(p.Root)
		allowed := map[theory.PitchClass]bool{}
		for _, pc := range p.Scale {
			allowed[theory.PitchClass((int(pc)+shift)%12)] = true
		}
		for _, tr := range rec.Triggers() {
			if tr.Channel == ChannelPercussion {
				continue
			}
			assert.True(t, allowed[tr.Note.PitchClass()], "%s: %s outside %s", pol.Name(), tr.Note, p.Scale)
			assert.LessOrEqual(t, tr.Velocity, 0.8)
		}
		for _, d := range seq.State().Degrees {
			assert.True(t, d >= 0 && d < len(p.Scale))
		}
	}
}

func TestEmptyVectorDoesNotPanic(t *testing.T) {
	rec := &Recorder{}
	seq := New(nil, rec, Options{Params: features.Dimensional{}.Extract(nil), Rules: features.Dimensional{}.Rules(), Registry: voices.Default()})
	require.NotPanics(t, func() { run(seq, 32) })
	assert.Positive(t, rec.Len())
}

func TestOnStepAndTimes(t *testing.T) {
	var calls [][2]int
	rec := &Recorder{}
	seq := New(make([]float32, 400), rec, Options{
		Params:   fourFour(theory.Dark),
		Rules:    features.Dimensional{}.Rules(),
		Registry: voices.Default(),
		OnStep:   func(step, n int) { calls = append(calls, [2]int{step, n}) },
	})
	assert.Equal(t, 125*time.Millisecond, seq.StepDuration())
	run(seq, 2)
	assert.Equal(t, [][2]int{{0, 3}, {1, 0}}, calls)
	for _, tr := range rec.Triggers() {
		assert.Equal(t, time.Duration(0), tr.Time)
	}
}

func TestDegreesAdvance(t *testing.T) {
	d := NewDegrees([voices.Count]int{0, 8, -3, 2}, 7)
	assert.Equal(t, Degrees{0, 1, 3, 2}, d)

	assert.Equal(t, 6, d.Advance(voices.Bass, 0.5, 7))
	assert.Equal(t, 5, d.Advance(voices.Bass, -0.9, 7), "|6 - 11| mod 7")
	assert.Equal(t, 3, d.Advance(voices.Bass, 1.0, 7))
	assert.Equal(t, 3, d.Advance(voices.Bass, 0.04, 7), "round(0.48) = 0")
	assert.Equal(t, 2, d.Advance(voices.Bass, -0.125, 7), "round(-1.5) = -1")

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		got := d.Advance(voices.Soprano, rng.NormFloat64()*50, 7)
		require.True(t, got >= 0 && got < 7)
	}
}

func TestFanoutRoutes(t *testing.T) {
	perc, rest := &Recorder{}, &Recorder{}
	f := NewFanout(rest)
	f.Route(ChannelPercussion, perc)
	f.Trigger(Trigger{Channel: ChannelPercussion, Drum: Kick})
	f.Trigger(Trigger{Channel: VoiceChannel(voices.Alto)})
	assert.Equal(t, 1, perc.Len())
	assert.Equal(t, 1, rest.Len())
	assert.Equal(t, 2, f.Len())
}

func TestChannelAndDrumNames(t *testing.T) {
	ch, err := ParseChannel("Percussion")
	require.NoError(t, err)
	assert.Equal(t, "perc", ch.String())
	ch, err = ParseChannel("alto")
	require.NoError(t, err)
	assert.Equal(t, VoiceChannel(voices.Alto), ch)
	_, err = ParseChannel("kazoo")
	assert.Error(t, err)
	assert.Equal(t, "impact", Impact.String())
	assert.Equal(t, theory.Note(-1), DrumNone.Note())
	d, err := ParseDrum(" Snare")
	require.NoError(t, err)
	assert.Equal(t, Snare, d)
	_, err = ParseDrum("none")
	assert.Error(t, err)

	ls := AllLoaded()
	assert.Len(t, ls.Snapshot(), NumChannels)
	assert.True(t, ls.Loaded(ChannelPercussion))
	assert.False(t, (*LoadedState)(nil).Loaded(0))
}

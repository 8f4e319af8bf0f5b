package sonify

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/sonify-go/internal/features"
	"github.com/cbegin/sonify-go/internal/sampler"
	"github.com/cbegin/sonify-go/internal/sequencer"
	"github.com/cbegin/sonify-go/internal/theory"
	"github.com/cbegin/sonify-go/internal/voices"
)

func randomVector(seed int64, n int) []float32 {
	rng := rand.New(rand.NewSource(seed))
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(rng.NormFloat64() * 0.3)
	}
	return v
}

func TestRenderIsDeterministic(t *testing.T) {
	v := randomVector(11, 384)
	a, pa, err := Render(v, 64)
	require.NoError(t, err)
	b, pb, err := Render(v, 64)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, pa, pb)
	assert.Equal(t, features.Dimensional{}.Extract(v), pa)

	require.NotEmpty(t, a)
	assert.Equal(t, sequencer.Impact, a[0].Drum)
	last := 0
	for _, tr := range a[1:] {
		assert.GreaterOrEqual(t, tr.Step, last)
		assert.Less(t, tr.Step, 64)
		last = tr.Step
	}
}

func TestRenderNotesStayInScale(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		v := randomVector(seed, 384)
		for _, policy := range []features.Policy{features.Dimensional{}, features.Aggregate{}} {
			triggers, params, err := Render(v, 96, WithPolicy(policy))
			require.NoError(t, err)
			shift := theory.Transposition(params.Root)
			allowed := map[theory.PitchClass]bool{}
			for _, pc := range params.Scale {
				allowed[theory.Note(int(pc)+shift).PitchClass()] = true
			}
			for _, tr := range triggers {
				if _, ok := tr.Channel.Voice(); !ok {
					continue
				}
				assert.True(t, allowed[tr.Note.PitchClass()], "seed %d %s: %s not in scale", seed, policy.Name(), tr.Note)
				assert.LessOrEqual(t, tr.Velocity, 0.8)
			}
		}
	}
}

func TestRenderRootIsTonic(t *testing.T) {
	v := make([]float32, 384)
	v[3] = 0.025 // floor(3) -> Eb
	triggers, params, err := Render(v, 1, WithImpactCue(false, 0))
	require.NoError(t, err)
	require.Equal(t, theory.Eb, params.Root)
	for _, tr := range triggers {
		if tr.Channel == sequencer.VoiceChannel(voices.Bass) {
			assert.Equal(t, theory.Eb, tr.Note.PitchClass(), "degree 0 sounds the root")
			return
		}
	}
	t.Fatal("bass did not play on the downbeat")
}

func TestRenderAudioDrivesSampler(t *testing.T) {
	bank := sampler.NewBank(1000, sampler.DirLoader(t.TempDir()), nil)
	tone := make([]float32, 2*2000)
	for i := range tone {
		tone[i] = 0.5
	}
	bank.Set(sequencer.VoiceChannel(voices.Bass), &sampler.Instrument{
		Zones: []sampler.Zone{{Root: 34, Sample: &sampler.Sample{Data: tone}}},
	})
	opts := sampler.DefaultOptions()
	opts.SampleRate = 1000
	opts.VoiceGainDB = 0
	opts.DelayWet = 0
	opts.ReverbWet = 0
	smp := sampler.New(bank, opts, nil)

	out, err := RenderAudio(make([]float32, 384), smp, time.Second)
	require.NoError(t, err)
	require.Len(t, out, 2000)
	assert.NotZero(t, out[0], "bass sounds on the first frame")
	assert.False(t, smp.Clock().Running(), "render stops the performance")
}

func TestEncodeWAVFloat32LE(t *testing.T) {
	wav := EncodeWAVFloat32LE([]float32{0.25, -0.5}, 48000, 2)
	require.Len(t, wav, 44+8)
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(wav[20:]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(wav[24:]))
	assert.Equal(t, float32(-0.5), math.Float32frombits(binary.LittleEndian.Uint32(wav[48:])))
}

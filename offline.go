package sonify

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/cbegin/sonify-go/internal/clock"
	"github.com/cbegin/sonify-go/internal/features"
	"github.com/cbegin/sonify-go/internal/sampler"
	"github.com/cbegin/sonify-go/internal/sequencer"
)

// renderBlock is the frame count per Process call when rendering audio.
const renderBlock = 512

// recordingBackend treats every channel as loaded and keeps what it hears.
type recordingBackend struct {
	sequencer.Recorder
	ready *sequencer.LoadedState
}

func (b *recordingBackend) Loaded(ch sequencer.Channel) bool { return b.ready.Loaded(ch) }
func (b *recordingBackend) ReleaseAll()                      {}
func (b *recordingBackend) SetTempo(float64)                 {}

// Render plays steps sixteenth notes of vector without waiting on real time
// and returns the decision stream, impact cue included. The result depends
// only on the vector and options.
func Render(vector []float32, steps int, opts ...EngineOption) ([]sequencer.Trigger, features.Params, error) {
	backend := &recordingBackend{ready: sequencer.AllLoaded()}
	manual := clock.NewManual()
	e, err := NewEngine(backend, withScheduler(opts, manual)...)
	if err != nil {
		return nil, features.Params{}, err
	}
	e.Play(vector, PhaseTraversal)
	params, _ := e.Params()
	manual.Step(steps)
	e.Stop()
	return backend.Triggers(), params, nil
}

// RenderAudio performs vector through smp for length and returns the
// interleaved stereo mix, starting from silent effect tails. The engine is driven by the sampler's clock so
// notes start on exact frames.
func RenderAudio(vector []float32, smp *sampler.Sampler, length time.Duration, opts ...EngineOption) ([]float32, error) {
	e, err := NewEngine(smp, withScheduler(opts, smp.Clock())...)
	if err != nil {
		return nil, err
	}
	smp.Reset()
	e.Play(vector, PhaseTraversal)
	defer e.Stop()

	frames := int(length.Seconds() * float64(smp.SampleRate()))
	out := make([]float32, frames*2)
	for pos := 0; pos < frames; pos += renderBlock {
		end := min(pos+renderBlock, frames)
		smp.Process(out[2*pos : 2*end])
	}
	return out, nil
}

// withScheduler appends a scheduler option without touching the caller's slice.
func withScheduler(opts []EngineOption, s clock.Scheduler) []EngineOption {
	out := make([]EngineOption, 0, len(opts)+1)
	return append(append(out, opts...), WithScheduler(s))
}

// EncodeWAVFloat32LE wraps interleaved float samples in a WAVE file
// (format 3, IEEE float).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], "RIFF")
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], "data")
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

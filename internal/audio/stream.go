// Package audio streams a rendered sample source to the system output.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

// SampleSource fills interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can report its end. The stream
// returns io.EOF after the block in which Finished turns true.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// BytesPerFrame is the size of one interleaved stereo float32 frame.
const BytesPerFrame = 8

// StreamReader adapts a SampleSource to the little-endian float32 byte
// stream an ebiten F32 player pulls from.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
	frames int64
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

// Read fills whole frames of p. A FinishingSource that reports done ends
// the stream with io.EOF after the final block.
func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(p) - len(p)%BytesPerFrame
	if n == 0 {
		return 0, nil
	}
	r.buf = slices.Grow(r.buf[:0], n/4)[:n/4]
	clear(r.buf)
	r.source.Process(r.buf)
	out := p[:0]
	for _, s := range r.buf {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(s))
	}
	r.frames += int64(n / BytesPerFrame)
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

// Frames returns how many frames have been pulled so far.
func (r *StreamReader) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *StreamReader) Close() error { return nil }

// Player plays one source on the shared audio context.
type Player struct {
	player *ebitaudio.Player
	reader *StreamReader
}

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// Context returns the process-wide audio context. ebiten allows only one,
// so every caller must agree on the sample rate.
func Context(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		if ctx := ebitaudio.CurrentContext(); ctx != nil {
			audioContext = ctx
			audioSampleRate = ctx.SampleRate()
			return
		}
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// NewPlayer opens a stream for source. bufferSize bounds output latency;
// zero keeps ebiten's default.
func NewPlayer(sampleRate int, source SampleSource, bufferSize time.Duration) (*Player, error) {
	ctx, err := Context(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, err
	}
	if bufferSize > 0 {
		pl.SetBufferSize(bufferSize)
	}
	return &Player{player: pl, reader: reader}, nil
}

func (p *Player) Play() { p.player.Play() }

// Position returns what the listener has actually heard.
func (p *Player) Position() time.Duration {
	return p.player.Position()
}

func (p *Player) Close() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}

// Package sampler plays the ensemble from recorded samples.
//
// A Bank loads one Instrument per channel, each a set of zones keyed by the
// note their sample was recorded at. The Sampler mixes triggered notes,
// repitched from the nearest zone, through the voice and percussion buses
// and streams the result to an audio.Player.
package sampler

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"

	"github.com/cbegin/sonify-go/internal/theory"
)

// Sample is decoded audio: interleaved stereo frames at the bank's rate.
type Sample struct {
	Data []float32
}

// Frames returns the sample's length in frames.
func (s *Sample) Frames() int { return len(s.Data) / 2 }

// Decode reads a WAV or MP3 file and resamples it to sampleRate. The
// format comes from the name's extension, falling back to the RIFF header.
func Decode(name string, data []byte, sampleRate int) (*Sample, error) {
	var (
		stream io.Reader
		err    error
	)
	switch format(name, data) {
	case "wav":
		stream, err = wav.DecodeWithSampleRate(sampleRate, bytes.NewReader(data))
	case "mp3":
		stream, err = mp3.DecodeWithSampleRate(sampleRate, bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("decode %s: unsupported format", name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return fromPCM16(pcm), nil
}

func format(name string, data []byte) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".wav", ".wave":
		return "wav"
	case ".mp3":
		return "mp3"
	}
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return "wav"
	}
	if len(data) >= 3 && (string(data[0:3]) == "ID3" || (data[0] == 0xFF && data[1]&0xE0 == 0xE0)) {
		return "mp3"
	}
	return ""
}

// fromPCM16 converts the decoders' 16-bit little-endian stereo output.
func fromPCM16(pcm []byte) *Sample {
	n := len(pcm) / 2
	out := make([]float32, n&^1)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
	}
	return &Sample{Data: out}
}

// Zone is a sample and the note it sounds at unshifted.
type Zone struct {
	Root   theory.Note
	Sample *Sample
}

// Instrument is the set of zones for one channel.
type Instrument struct {
	Zones []Zone
}

// Zone returns the zone closest to note, preferring the lower on a tie.
func (in *Instrument) Zone(note theory.Note) (Zone, bool) {
	if in == nil || len(in.Zones) == 0 {
		return Zone{}, false
	}
	best := in.Zones[0]
	for _, z := range in.Zones[1:] {
		d, bd := distance(z.Root, note), distance(best.Root, note)
		if d < bd || (d == bd && z.Root < best.Root) {
			best = z
		}
	}
	return best, true
}

func distance(a, b theory.Note) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

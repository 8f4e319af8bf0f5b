package theory

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Scale is an ordered set of pitch classes written relative to C. The
// sounded tonic comes from transposing by the active root.
type Scale []PitchClass

func (s Scale) String() string {
	parts := make([]string, len(s))
	for i, pc := range s {
		parts[i] = pc.String()
	}
	return strings.Join(parts, " ")
}

// Palette is a mood category of scales.
type Palette string

const (
	Bright Palette = "bright"
	Dark   Palette = "dark"
)

// Modes is the mode table. Within a palette scales are ordered from mildest
// to most colored.
var Modes = map[Palette][]Scale{
	Bright: {
		{C, D, E, Gb, G, A, B}, // lydian
		{C, D, E, F, G, A, B},  // ionian
	},
	Dark: {
		{C, D, Eb, F, G, Ab, Bb},  // aeolian
		{C, Db, Eb, F, G, Ab, Bb}, // phrygian
	},
}

// ModeScale returns scale idx of the palette, clamped to the palette's range.
func ModeScale(p Palette, idx int) Scale {
	scales := Modes[p]
	if len(scales) == 0 {
		scales = Modes[Bright]
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(scales) {
		idx = len(scales) - 1
	}
	return scales[idx]
}

// NoteValue is a musical duration in transport notation: "4n" is a quarter
// note, "8n." a dotted eighth, "8t" an eighth-note triplet.
type NoteValue string

const (
	Whole        NoteValue = "1n"
	Half         NoteValue = "2n"
	Quarter      NoteValue = "4n"
	Eighth       NoteValue = "8n"
	DottedEighth NoteValue = "8n."
	Sixteenth    NoteValue = "16n"
	ThirtySecond NoteValue = "32n"
)

// ParseNoteValue validates s and returns it as a NoteValue.
func ParseNoteValue(s string) (NoteValue, error) {
	nv := NoteValue(strings.TrimSpace(s))
	if _, err := nv.beats(); err != nil {
		return "", err
	}
	return nv, nil
}

// Beats returns the length in quarter-note beats, or 0 for a malformed value.
func (nv NoteValue) Beats() float64 {
	b, err := nv.beats()
	if err != nil {
		return 0
	}
	return b
}

// Duration returns the wall-clock length at bpm.
func (nv NoteValue) Duration(bpm float64) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Duration(nv.Beats() * 60 / bpm * float64(time.Second))
}

func (nv NoteValue) beats() (float64, error) {
	s := string(nv)
	dotted := strings.HasSuffix(s, ".")
	s = strings.TrimSuffix(s, ".")
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid note value %q", string(nv))
	}
	kind := s[len(s)-1]
	div, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || div <= 0 {
		return 0, fmt.Errorf("invalid note value %q", string(nv))
	}
	beats := 4 / float64(div)
	switch kind {
	case 'n':
	case 't':
		beats *= 2.0 / 3.0
	default:
		return 0, fmt.Errorf("invalid note value %q", string(nv))
	}
	if dotted {
		beats *= 1.5
	}
	return beats, nil
}

package voices

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cbegin/sonify-go/internal/theory"
)

// ID names a melodic voice. Voices are ordered low to high and an ID doubles
// as the voice's index into per-voice arrays.
type ID int

const (
	Bass ID = iota
	Tenor
	Alto
	Soprano
)

// Count is the number of melodic voices.
const Count = 4

var idNames = [Count]string{"bass", "tenor", "alto", "soprano"}

func (id ID) String() string {
	if id < 0 || int(id) >= Count {
		return fmt.Sprintf("voice(%d)", int(id))
	}
	return idNames[id]
}

func ParseID(s string) (ID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range idNames {
		if name == s {
			return ID(i), nil
		}
	}
	return 0, fmt.Errorf("unknown voice %q", s)
}

// Role is a voice's rhythmic responsibility.
type Role int

const (
	// Anchor fires on downbeats only.
	Anchor Role = iota
	// SubAnchor fires on every quarter note.
	SubAnchor
	// Responsive fires when its vector sample spikes.
	Responsive
)

var roleNames = []string{"anchor", "sub_anchor", "responsive"}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

func ParseRole(s string) (Role, error) {
	s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for i, name := range roleNames {
		if name == s || strings.ReplaceAll(name, "_", "") == s {
			return Role(i), nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Config describes one voice. It is immutable once the engine is built.
type Config struct {
	ID ID
	// BaseNote is the pitch the voice's sample was recorded at.
	BaseNote   theory.Note
	Octave     int
	SliceStart int
	SliceEnd   int
	Role       Role
	Duration   theory.NoteValue
	// Spiccato voices always play the shortest duration, whatever the articulation.
	Spiccato bool
	// Sample is the asset path or URL the backend loads for this voice.
	Sample string
}

// SliceLen returns the number of vector entries assigned to the voice.
func (c Config) SliceLen() int { return c.SliceEnd - c.SliceStart }

// Registry holds one Config per voice, indexed by ID.
type Registry [Count]Config

var ErrInvalidRegistry = errors.New("invalid voice registry")

// Default returns the chamber ensemble: bassoon, french horn, spiccato violin, flute.
func Default() Registry {
	return Registry{
		{ID: Bass, BaseNote: 34, Octave: 1, SliceStart: 0, SliceEnd: 96, Role: Anchor, Duration: theory.Half,
			Sample: "bassoon_As1_1_mezzo-piano_normal.mp3"},
		{ID: Tenor, BaseNote: 57, Octave: 2, SliceStart: 96, SliceEnd: 192, Role: SubAnchor, Duration: theory.Quarter,
			Sample: "french-horn-A3.mp3"},
		{ID: Alto, BaseNote: 57, Octave: 3, SliceStart: 192, SliceEnd: 288, Role: Responsive, Duration: theory.ThirtySecond, Spiccato: true,
			Sample: "violin_A3_phrase_forte_arco-spiccato.mp3"},
		{ID: Soprano, BaseNote: 69, Octave: 4, SliceStart: 288, SliceEnd: 384, Role: Responsive, Duration: theory.Eighth,
			Sample: "flute_A4_1_mezzo-piano_normal.mp3"},
	}
}

// Validate checks ids, slices and durations.
func (r Registry) Validate() error {
	for i, c := range r {
		if c.ID != ID(i) {
			return fmt.Errorf("%w: slot %d holds voice %s", ErrInvalidRegistry, i, c.ID)
		}
		if c.SliceStart < 0 || c.SliceEnd <= c.SliceStart {
			return fmt.Errorf("%w: %s slice [%d, %d) is empty or negative", ErrInvalidRegistry, c.ID, c.SliceStart, c.SliceEnd)
		}
		if c.Role < Anchor || c.Role > Responsive {
			return fmt.Errorf("%w: %s has unknown role %d", ErrInvalidRegistry, c.ID, int(c.Role))
		}
		if _, err := theory.ParseNoteValue(string(c.Duration)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRegistry, c.ID, err)
		}
	}
	return nil
}

// Span returns the largest slice end, the vector length needed to give every
// voice distinct data.
func (r Registry) Span() int {
	span := 0
	for _, c := range r {
		if c.SliceEnd > span {
			span = c.SliceEnd
		}
	}
	return span
}

// Clamp fits every slice inside a vector of length n so that slice starts
// address real entries. Reads stay modulo n either way.
func (r Registry) Clamp(n int) Registry {
	if n <= 0 {
		return r
	}
	out := r
	for i := range out {
		c := &out[i]
		if c.SliceStart >= n {
			c.SliceStart %= n
		}
		if c.SliceEnd > n {
			c.SliceEnd = n
		}
		if c.SliceEnd <= c.SliceStart {
			c.SliceEnd = c.SliceStart + 1
		}
	}
	return out
}

package theory

import (
	"fmt"
	"strconv"
	"strings"
)

// PitchClass is a chromatic pitch class, C=0 through B=11.
type PitchClass int

const (
	C PitchClass = iota
	Db
	D
	Eb
	E
	F
	Gb
	G
	Ab
	A
	Bb
	B
)

var pitchNames = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

// Roots is the root table. Only the index distance from C is used, as a
// transposition offset.
var Roots = [12]PitchClass{C, Db, D, Eb, E, F, Gb, G, Ab, A, Bb, B}

func (p PitchClass) String() string {
	return pitchNames[wrap12(int(p))]
}

// ParsePitchClass accepts a letter with any number of trailing '#' or 'b'
// accidentals ("C", "F#", "Bb", "Cb").
func ParsePitchClass(name string) (PitchClass, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("empty pitch class")
	}
	var base int
	switch name[0] {
	case 'C', 'c':
		base = 0
	case 'D', 'd':
		base = 2
	case 'E', 'e':
		base = 4
	case 'F', 'f':
		base = 5
	case 'G', 'g':
		base = 7
	case 'A', 'a':
		base = 9
	case 'B', 'b':
		base = 11
	default:
		return 0, fmt.Errorf("invalid pitch class %q", name)
	}
	for _, r := range name[1:] {
		switch r {
		case '#':
			base++
		case 'b':
			base--
		default:
			return 0, fmt.Errorf("invalid accidental in %q", name)
		}
	}
	return PitchClass(wrap12(base)), nil
}

// Transposition returns the semitone distance of root above C in the root
// table. It is always in [0, 12).
func Transposition(root PitchClass) int {
	return rootIndex(root) - rootIndex(C)
}

func rootIndex(p PitchClass) int {
	for i, r := range Roots {
		if r == PitchClass(wrap12(int(p))) {
			return i
		}
	}
	return 0
}

// Note is a MIDI note number. C4 is 60.
type Note int

// NoteAt returns the note for a pitch class in the given octave.
func NoteAt(pc PitchClass, octave int) Note {
	return Note((octave+1)*12 + wrap12(int(pc)))
}

func (n Note) Transpose(semitones int) Note { return n + Note(semitones) }

func (n Note) PitchClass() PitchClass { return PitchClass(wrap12(int(n))) }

func (n Note) Octave() int {
	o := int(n) / 12
	if int(n) < 0 && int(n)%12 != 0 {
		o--
	}
	return o - 1
}

func (n Note) String() string {
	return n.PitchClass().String() + strconv.Itoa(n.Octave())
}

// ParseNote parses scientific pitch notation such as "A#1", "Bb3" or "C-1".
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	split := len(s)
	for i := 1; i < len(s); i++ {
		if s[i] == '-' || (s[i] >= '0' && s[i] <= '9') {
			split = i
			break
		}
	}
	if split == len(s) {
		return 0, fmt.Errorf("note %q has no octave", s)
	}
	pc, err := ParsePitchClass(s[:split])
	if err != nil {
		return 0, err
	}
	octave, err := strconv.Atoi(s[split:])
	if err != nil {
		return 0, fmt.Errorf("note %q: invalid octave: %w", s, err)
	}
	// Accidentals that cross the octave boundary (B#, Cb) stay in the written octave.
	letterPC, _ := ParsePitchClass(s[:1])
	shift := 0
	if d := int(pc) - int(letterPC); d > 6 {
		shift = -12
	} else if d < -6 {
		shift = 12
	}
	return NoteAt(pc, octave).Transpose(shift), nil
}

func wrap12(v int) int {
	v %= 12
	if v < 0 {
		v += 12
	}
	return v
}

package theory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNote(t *testing.T) {
	cases := map[string]Note{
		"A#1": 34,
		"Bb1": 34,
		"A3":  57,
		"A4":  69,
		"C4":  60,
		"C-1": 0,
		"Cb4": 59,
		"B#3": 60,
	}
	for in, want := range cases {
		got, err := ParseNote(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "H2", "A", "Ax3", "A#x"} {
		_, err := ParseNote(bad)
		assert.Error(t, err, bad)
	}
}

func TestNoteStringRoundTrip(t *testing.T) {
	for n := Note(0); n < 128; n++ {
		parsed, err := ParseNote(n.String())
		require.NoError(t, err)
		assert.Equal(t, n, parsed)
	}
}

func TestTranspositionPeriodicity(t *testing.T) {
	base := NoteAt(E, 3)
	for _, root := range Roots {
		shift := Transposition(root)
		assert.GreaterOrEqual(t, shift, 0)
		assert.Less(t, shift, 12)
		a := base.Transpose(shift)
		b := base.Transpose(shift + 12)
		assert.Equal(t, a.PitchClass(), b.PitchClass())
		assert.Equal(t, 12, int(b-a))
	}
	assert.Equal(t, 0, Transposition(C))
	assert.Equal(t, 9, Transposition(A))
}

func TestModeScaleClamps(t *testing.T) {
	assert.Equal(t, Modes[Dark][1], ModeScale(Dark, 10))
	assert.Equal(t, Modes[Bright][0], ModeScale(Bright, -3))
	for _, scales := range Modes {
		for _, s := range scales {
			assert.Len(t, s, 7)
			assert.Equal(t, C, s[0])
		}
	}
}

func TestNoteValueDurations(t *testing.T) {
	assert.Equal(t, 2.0, Half.Beats())
	assert.Equal(t, 0.125, ThirtySecond.Beats())
	assert.Equal(t, 0.75, DottedEighth.Beats())
	assert.InDelta(t, 1.0/3.0, NoteValue("8t").Beats(), 1e-9)
	assert.Equal(t, 500*time.Millisecond, Quarter.Duration(120))
	assert.Equal(t, time.Duration(0), Quarter.Duration(0))

	_, err := ParseNoteValue("3x")
	assert.Error(t, err)
	nv, err := ParseNoteValue(" 8n. ")
	require.NoError(t, err)
	assert.Equal(t, DottedEighth, nv)
}

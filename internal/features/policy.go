package features

import (
	"math"

	"github.com/cbegin/sonify-go/internal/theory"
)

// Dimensional maps individual dimensions: v0 meter, v1 articulation,
// v2 counterpoint, v3 root, v10 mood, and the vector norm to tempo.
type Dimensional struct{}

func (Dimensional) Name() string { return "dimensional" }

func (Dimensional) Extract(v []float32) Params {
	beats := 4
	switch v0 := At(v, 0); {
	case v0 < -0.2:
		beats = 3
	case v0 > 0.2:
		beats = 5
	}
	palette := theory.Dark
	if At(v, 10) > 0 {
		palette = theory.Bright
	}
	return Params{
		BeatsPerBar:  beats,
		StepsPerBar:  beats * 4,
		Articulation: At(v, 1),
		Counterpoint: At(v, 2) > 0.1,
		BPM:          60 + 35*Norm(v),
		Palette:      palette,
		ModeIndex:    0,
		Scale:        theory.ModeScale(palette, 0),
		Root:         theory.Roots[RootIndex(At(v, 3))],
	}
}

func (Dimensional) Rules() Rules {
	return Rules{
		CounterpointStride:  25,
		OctaveThreshold:     0.3,
		Percussion:          true,
		TextureThreshold:    0.6,
		RoleGating:          true,
		ResponsiveThreshold: 0.15,
		Articulated:         true,
		StaccatoBelow:       -0.1,
		VelocityBase:        0.2,
		VelocityGain:        0.7,
		VelocityCap:         0.8,
	}
}

// polarityWindow is how many leading entries Aggregate sums for polarity.
const polarityWindow = 50

// Aggregate maps whole-vector statistics: the signed sum of the leading
// entries picks palette and mode, mean magnitude sets tempo, v2 the root.
// Meter is fixed at 4/4.
type Aggregate struct{}

func (Aggregate) Name() string { return "aggregate" }

func (Aggregate) Extract(v []float32) Params {
	var net float64
	for i := 0; i < polarityWindow && i < len(v); i++ {
		net += At(v, i)
	}
	palette := theory.Bright
	if net < 0 {
		palette = theory.Dark
	}
	scales := theory.Modes[palette]
	mode := int(math.Min(float64(len(scales)-1), math.Floor(math.Abs(net)*5)))
	return Params{
		BeatsPerBar: 4,
		StepsPerBar: 16,
		BPM:         60 + 500*MeanAbs(v),
		Palette:     palette,
		ModeIndex:   mode,
		Scale:       theory.ModeScale(palette, mode),
		Root:        theory.Roots[RootIndex(At(v, 2))],
	}
}

func (Aggregate) Rules() Rules {
	return Rules{
		InitialDegrees:  [4]int{0, 1, 2, 3},
		OctaveThreshold: 0.07,
		GateBase:        0.2,
		GateStep:        0.1,
		FallbackEvery:   16,
		VelocityBase:    0.2,
		VelocityGain:    0.7,
		VelocityCap:     0.8,
	}
}

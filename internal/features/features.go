// Package features derives composition parameters from a feature vector.
//
// A Policy is a pure mapping from vector to Params plus the fixed Rules the
// step sequencer applies while a performance runs. Two policies ship:
// Dimensional reads individual dimensions, Aggregate reads sums and means.
package features

import (
	"fmt"
	"math"
	"strings"

	"github.com/cbegin/sonify-go/internal/theory"
	"github.com/cbegin/sonify-go/internal/voices"
)

// Params is the composition derived for one performance.
type Params struct {
	BeatsPerBar  int
	StepsPerBar  int
	Articulation float64
	Counterpoint bool
	BPM          float64
	Palette      theory.Palette
	ModeIndex    int
	Scale        theory.Scale
	Root         theory.PitchClass
}

// Rules are the per-policy constants of gating, degree movement and dynamics.
type Rules struct {
	InitialDegrees [voices.Count]int
	// CounterpointStride offsets voice i's reads by i*stride when Params.Counterpoint is set.
	CounterpointStride int
	OctaveThreshold    float64
	Percussion         bool
	TextureThreshold   float64

	// RoleGating gates by voice role; otherwise the threshold ladder applies:
	// |val| > GateBase + GateStep*i, or every FallbackEvery steps.
	RoleGating          bool
	ResponsiveThreshold float64
	GateBase            float64
	GateStep            float64
	FallbackEvery       int

	// Articulated policies force non-spiccato voices short when articulation < StaccatoBelow.
	Articulated   bool
	StaccatoBelow float64

	VelocityBase float64
	VelocityGain float64
	VelocityCap  float64
}

// Velocity maps a sample to a capped loudness.
func (r Rules) Velocity(val float64) float64 {
	return math.Min(r.VelocityCap, r.VelocityBase+math.Abs(val*r.VelocityGain))
}

// Policy turns a vector into Params. Extract must be deterministic and total.
type Policy interface {
	Name() string
	Extract(v []float32) Params
	Rules() Rules
}

// ByName returns the policy registered under name.
func ByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "dimensional", "a":
		return Dimensional{}, nil
	case "aggregate", "b":
		return Aggregate{}, nil
	default:
		return nil, fmt.Errorf("unknown policy %q (expected dimensional|aggregate)", name)
	}
}

// At reads v[i mod len(v)]. Empty vectors and non-finite entries read as 0.
func At(v []float32, i int) float64 {
	n := len(v)
	if n == 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return finite(float64(v[i]))
}

// Norm is the Euclidean norm over finite entries.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		f := finite(float64(x))
		sum += f * f
	}
	return math.Sqrt(sum)
}

// MeanAbs is the mean absolute value over finite entries.
func MeanAbs(v []float32) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += math.Abs(finite(float64(x)))
	}
	return sum / float64(len(v))
}

// RootIndex computes |floor(x*120)| mod 12 without integer overflow.
func RootIndex(x float64) int {
	return int(math.Mod(math.Abs(math.Floor(finite(x)*120)), 12))
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

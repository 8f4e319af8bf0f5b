package sonify

import (
	"fmt"
	"strings"

	"github.com/cbegin/sonify-go/internal/features"
)

// Phase tags a performance for observers. It never changes what is played.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStart
	PhaseTraversal
	PhaseEnd
)

var phaseNames = [...]string{"idle", "start", "traversal", "end"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

func ParsePhase(s string) (Phase, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return PhaseIdle, fmt.Errorf("unknown phase %q (expected idle|start|traversal|end)", s)
}

// PhaseEvent describes a transition. Params and Policy are empty for idle.
type PhaseEvent struct {
	Phase         Phase
	PerformanceID string
	Policy        string
	Params        features.Params
}

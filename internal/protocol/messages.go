// Package protocol defines the messages the engine broadcasts on the bus.
package protocol

import "time"

// PhaseMessage announces a phase transition of a performance.
type PhaseMessage struct {
	PerformanceID string    `json:"performance_id,omitempty"`
	Phase         string    `json:"phase"`
	Policy        string    `json:"policy,omitempty"`
	BPM           float64   `json:"bpm,omitempty"`
	BeatsPerBar   int       `json:"beats_per_bar,omitempty"`
	Palette       string    `json:"palette,omitempty"`
	Root          string    `json:"root,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// TriggerMessage carries one note decision.
type TriggerMessage struct {
	PerformanceID string  `json:"performance_id,omitempty"`
	Step          int     `json:"step"`
	Channel       string  `json:"channel"`
	Drum          string  `json:"drum,omitempty"`
	Note          string  `json:"note"`
	MIDI          int     `json:"midi"`
	Duration      string  `json:"duration,omitempty"`
	OffsetMS      float64 `json:"offset_ms"`
	Velocity      float64 `json:"velocity"`
}

const (
	SubjectPrefix = "sonify"

	SubjectPhase   = SubjectPrefix + ".phase"
	SubjectTrigger = SubjectPrefix + ".trigger"
)

// Subjects returns the phase and trigger subjects under prefix.
func Subjects(prefix string) (phase, trigger string) {
	if prefix == "" {
		prefix = SubjectPrefix
	}
	return prefix + ".phase", prefix + ".trigger"
}

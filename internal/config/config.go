// Package config loads sonify configuration from defaults, an optional YAML
// file and SONIFY_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cbegin/sonify-go/internal/bus"
	"github.com/cbegin/sonify-go/internal/embed"
	"github.com/cbegin/sonify-go/internal/features"
	"github.com/cbegin/sonify-go/internal/logging"
	"github.com/cbegin/sonify-go/internal/sampler"
	"github.com/cbegin/sonify-go/internal/sequencer"
	"github.com/cbegin/sonify-go/internal/theory"
	"github.com/cbegin/sonify-go/internal/voices"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Policy     string `koanf:"policy" yaml:"policy"`
	SampleRate int    `koanf:"sample_rate" yaml:"sample_rate"`
	// ImpactCue plays the tam-tam when a performance starts.
	ImpactCue bool `koanf:"impact_cue" yaml:"impact_cue"`

	Samples SamplesConfig  `koanf:"samples" yaml:"samples"`
	Voices  []VoiceConfig  `koanf:"voices" yaml:"voices"`
	Effects EffectsConfig  `koanf:"effects" yaml:"effects"`
	Embed   embed.Config   `koanf:"embed" yaml:"embed"`
	Logging logging.Config `koanf:"logging" yaml:"logging"`
	Bus     bus.Config     `koanf:"bus" yaml:"bus"`
	Metrics MetricsConfig  `koanf:"metrics" yaml:"metrics"`
}

// SamplesConfig locates instrument assets. BaseURL may be a directory or an
// http(s) URL.
type SamplesConfig struct {
	BaseURL string `koanf:"base_url" yaml:"base_url"`
	// Kit maps drum names (kick, snare, hat, impact) to sample files.
	Kit map[string]string `koanf:"kit" yaml:"kit"`
}

// VoiceConfig is the text form of voices.Config. File entries override the
// defaults by position; a list shorter than the ensemble fails validation.
type VoiceConfig struct {
	ID         string `koanf:"id" yaml:"id"`
	BaseNote   string `koanf:"base_note" yaml:"base_note"`
	Octave     int    `koanf:"octave" yaml:"octave"`
	SliceStart int    `koanf:"slice_start" yaml:"slice_start"`
	SliceEnd   int    `koanf:"slice_end" yaml:"slice_end"`
	Role       string `koanf:"role" yaml:"role"`
	Duration   string `koanf:"duration" yaml:"duration"`
	Spiccato   bool   `koanf:"spiccato" yaml:"spiccato"`
	Sample     string `koanf:"sample" yaml:"sample"`
}

type EffectsConfig struct {
	VoiceGainDB      float64       `koanf:"voice_gain_db" yaml:"voice_gain_db"`
	PercussionGainDB float64       `koanf:"percussion_gain_db" yaml:"percussion_gain_db"`
	DelayNote        string        `koanf:"delay_note" yaml:"delay_note"`
	DelayFeedback    float64       `koanf:"delay_feedback" yaml:"delay_feedback"`
	DelayWet         float64       `koanf:"delay_wet" yaml:"delay_wet"`
	ReverbDecay      time.Duration `koanf:"reverb_decay" yaml:"reverb_decay"`
	ReverbWet        float64       `koanf:"reverb_wet" yaml:"reverb_wet"`
	Release          time.Duration `koanf:"release" yaml:"release"`
	MaxVoices        int           `koanf:"max_voices" yaml:"max_voices"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9464".
	Addr string `koanf:"addr" yaml:"addr"`
}

func Default() Config {
	opts := sampler.DefaultOptions()
	kit := make(map[string]string)
	for d, name := range sampler.DefaultKit() {
		kit[d.String()] = name
	}
	reg := voices.Default()
	vs := make([]VoiceConfig, 0, len(reg))
	for _, v := range reg {
		vs = append(vs, VoiceConfig{
			ID:         v.ID.String(),
			BaseNote:   v.BaseNote.String(),
			Octave:     v.Octave,
			SliceStart: v.SliceStart,
			SliceEnd:   v.SliceEnd,
			Role:       v.Role.String(),
			Duration:   string(v.Duration),
			Spiccato:   v.Spiccato,
			Sample:     v.Sample,
		})
	}
	return Config{
		Policy:     features.Dimensional{}.Name(),
		SampleRate: opts.SampleRate,
		ImpactCue:  true,
		Samples:    SamplesConfig{BaseURL: "samples", Kit: kit},
		Voices:     vs,
		Effects: EffectsConfig{
			VoiceGainDB:      opts.VoiceGainDB,
			PercussionGainDB: opts.PercussionGainDB,
			DelayNote:        string(opts.DelayNote),
			DelayFeedback:    opts.DelayFeedback,
			DelayWet:         opts.DelayWet,
			ReverbDecay:      opts.ReverbDecay,
			ReverbWet:        opts.ReverbWet,
			Release:          opts.Release,
			MaxVoices:        opts.MaxVoices,
		},
		Embed:   embed.DefaultConfig(),
		Logging: logging.DefaultConfig(),
		Bus:     bus.DefaultConfig(),
	}
}

// Validate checks every section and returns the first problem found.
func (c Config) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("%w: sample_rate %d out of range [8000, 192000]", ErrInvalidConfig, c.SampleRate)
	}
	if _, err := features.ByName(c.Policy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if _, err := c.Kit(); err != nil {
		return err
	}
	if err := c.Effects.validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Bus.Enabled && len(c.Bus.Servers) == 0 {
		return fmt.Errorf("%w: bus enabled without servers", ErrInvalidConfig)
	}
	if c.Embed.MaxLength < 0 {
		return fmt.Errorf("%w: embed.max_length must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (e EffectsConfig) validate() error {
	if _, err := theory.ParseNoteValue(e.DelayNote); err != nil {
		return fmt.Errorf("%w: effects.delay_note: %v", ErrInvalidConfig, err)
	}
	if e.DelayFeedback < 0 || e.DelayFeedback >= 1 {
		return fmt.Errorf("%w: effects.delay_feedback must be in [0, 1)", ErrInvalidConfig)
	}
	for name, wet := range map[string]float64{"delay_wet": e.DelayWet, "reverb_wet": e.ReverbWet} {
		if wet < 0 || wet > 1 {
			return fmt.Errorf("%w: effects.%s must be in [0, 1]", ErrInvalidConfig, name)
		}
	}
	if e.ReverbDecay < 0 || e.Release < 0 {
		return fmt.Errorf("%w: effects durations must not be negative", ErrInvalidConfig)
	}
	if e.MaxVoices <= 0 {
		return fmt.Errorf("%w: effects.max_voices must be positive", ErrInvalidConfig)
	}
	return nil
}

// Registry converts the voice section into a validated registry.
func (c Config) Registry() (voices.Registry, error) {
	var reg voices.Registry
	if len(c.Voices) != voices.Count {
		return reg, fmt.Errorf("%w: expected %d voices, got %d", ErrInvalidConfig, voices.Count, len(c.Voices))
	}
	seen := make(map[voices.ID]bool)
	for _, vc := range c.Voices {
		id, err := voices.ParseID(vc.ID)
		if err != nil {
			return reg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		if seen[id] {
			return reg, fmt.Errorf("%w: voice %s listed twice", ErrInvalidConfig, id)
		}
		seen[id] = true
		note, err := theory.ParseNote(vc.BaseNote)
		if err != nil {
			return reg, fmt.Errorf("%w: voice %s: %v", ErrInvalidConfig, id, err)
		}
		role, err := voices.ParseRole(vc.Role)
		if err != nil {
			return reg, fmt.Errorf("%w: voice %s: %v", ErrInvalidConfig, id, err)
		}
		dur, err := theory.ParseNoteValue(vc.Duration)
		if err != nil {
			return reg, fmt.Errorf("%w: voice %s: %v", ErrInvalidConfig, id, err)
		}
		reg[id] = voices.Config{
			ID:         id,
			BaseNote:   note,
			Octave:     vc.Octave,
			SliceStart: vc.SliceStart,
			SliceEnd:   vc.SliceEnd,
			Role:       role,
			Duration:   dur,
			Spiccato:   vc.Spiccato,
			Sample:     vc.Sample,
		}
	}
	if err := reg.Validate(); err != nil {
		return reg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return reg, nil
}

// Kit converts the percussion map. Drums left out are simply not loaded.
func (c Config) Kit() (sampler.Kit, error) {
	names := make([]string, 0, len(c.Samples.Kit))
	for name := range c.Samples.Kit {
		names = append(names, name)
	}
	sort.Strings(names)
	kit := make(sampler.Kit, len(names))
	for _, name := range names {
		d, err := sequencer.ParseDrum(name)
		if err != nil {
			return nil, fmt.Errorf("%w: samples.kit: %v", ErrInvalidConfig, err)
		}
		kit[d] = c.Samples.Kit[name]
	}
	return kit, nil
}

// SamplerOptions maps the effects section onto the sampler. Call Validate first.
func (c Config) SamplerOptions() sampler.Options {
	e := c.Effects
	return sampler.Options{
		SampleRate:       c.SampleRate,
		VoiceGainDB:      e.VoiceGainDB,
		PercussionGainDB: e.PercussionGainDB,
		DelayNote:        theory.NoteValue(e.DelayNote),
		DelayFeedback:    e.DelayFeedback,
		DelayWet:         e.DelayWet,
		ReverbDecay:      e.ReverbDecay,
		ReverbWet:        e.ReverbWet,
		Release:          e.Release,
		MaxVoices:        e.MaxVoices,
	}
}

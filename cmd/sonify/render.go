package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbegin/sonify-go"
	"github.com/cbegin/sonify-go/internal/bus"
	"github.com/cbegin/sonify-go/internal/config"
	"github.com/cbegin/sonify-go/internal/features"
	"github.com/cbegin/sonify-go/internal/sampler"
)

type renderOptions struct {
	input  vectorInput
	steps  int
	wav    string
	length time.Duration
}

func newRenderCmd(a *app) *cobra.Command {
	o := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the decision stream as JSON lines, or the mix as a WAV file",
		Long: `Render a vector without real-time playback.

By default every trigger of the first --steps sixteenth notes is written to
stdout as one JSON object per line. With --wav the samples are loaded and
--length of audio is mixed into a 32-bit float WAV file.

Examples:
  sonify render --vector embedding.json --steps 64
  sonify render --random 384 --wav out.wav --length 20s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.render(cmd, o)
		},
	}
	o.input.register(cmd)
	flags := cmd.Flags()
	flags.IntVar(&o.steps, "steps", 64, "number of sixteenth-note steps to render")
	flags.StringVar(&o.wav, "wav", "", "mix audio into this WAV file instead of printing triggers")
	flags.DurationVar(&o.length, "length", 10*time.Second, "audio length for --wav")
	return cmd
}

func (a *app) render(cmd *cobra.Command, o *renderOptions) error {
	vector, err := o.input.resolve(cmd.Context(), cmd.InOrStdin(), a.cfg.Embed)
	if err != nil {
		return err
	}
	opts, err := a.engineOptions()
	if err != nil {
		return err
	}
	if o.wav != "" {
		return a.renderWAV(cmd, vector, o, opts)
	}
	if o.steps < 0 {
		return fmt.Errorf("--steps must not be negative")
	}
	triggers, _, err := sonify.Render(vector, o.steps, opts...)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, t := range triggers {
		if err := enc.Encode(bus.TriggerMessage("", t)); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) renderWAV(cmd *cobra.Command, vector []float32, o *renderOptions, opts []sonify.EngineOption) error {
	reg, err := a.cfg.Registry()
	if err != nil {
		return err
	}
	kit, err := a.cfg.Kit()
	if err != nil {
		return err
	}
	bank := sampler.NewBank(a.cfg.SampleRate, sampler.NewLoader(a.cfg.Samples.BaseURL), a.log)
	if err := bank.Load(cmd.Context(), reg, kit); err != nil {
		a.log.Warn("rendering without some instruments", zap.Error(err))
	}
	smp := sampler.New(bank, a.cfg.SamplerOptions(), a.log)
	mix, err := sonify.RenderAudio(vector, smp, o.length, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.wav, sonify.EncodeWAVFloat32LE(mix, a.cfg.SampleRate, 2), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", o.wav, err)
	}
	a.log.Info("rendered", zap.String("file", o.wav), zap.Duration("length", o.length))
	return nil
}

// paramsView is the printable form of features.Params.
type paramsView struct {
	Policy       string   `json:"policy"`
	BPM          float64  `json:"bpm"`
	BeatsPerBar  int      `json:"beats_per_bar"`
	StepsPerBar  int      `json:"steps_per_bar"`
	Articulation float64  `json:"articulation"`
	Counterpoint bool     `json:"counterpoint"`
	Palette      string   `json:"palette"`
	Mode         int      `json:"mode"`
	Root         string   `json:"root"`
	Scale        []string `json:"scale"`
}

func viewParams(policy string, p features.Params) paramsView {
	scale := make([]string, len(p.Scale))
	for i, pc := range p.Scale {
		scale[i] = pc.String()
	}
	return paramsView{
		Policy:       policy,
		BPM:          p.BPM,
		BeatsPerBar:  p.BeatsPerBar,
		StepsPerBar:  p.StepsPerBar,
		Articulation: p.Articulation,
		Counterpoint: p.Counterpoint,
		Palette:      string(p.Palette),
		Mode:         p.ModeIndex,
		Root:         p.Root.String(),
		Scale:        scale,
	}
}

func newParamsCmd(a *app) *cobra.Command {
	in := &vectorInput{}
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Print the composition a vector would get",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vector, err := in.resolve(cmd.Context(), cmd.InOrStdin(), a.cfg.Embed)
			if err != nil {
				return err
			}
			policy, err := features.ByName(a.cfg.Policy)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(viewParams(policy.Name(), policy.Extract(vector)))
		},
	}
	in.register(cmd)
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.Dump(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

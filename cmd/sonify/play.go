package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cbegin/sonify-go"
	"github.com/cbegin/sonify-go/internal/audio"
	"github.com/cbegin/sonify-go/internal/bus"
	"github.com/cbegin/sonify-go/internal/clock"
	"github.com/cbegin/sonify-go/internal/protocol"
	"github.com/cbegin/sonify-go/internal/sampler"
	"github.com/cbegin/sonify-go/internal/sequencer"
	"github.com/cbegin/sonify-go/internal/telemetry"
)

// outputLatency is the audio buffer requested from the device.
const outputLatency = 50 * time.Millisecond

type playOptions struct {
	input       vectorInput
	phase       string
	duration    time.Duration
	dryRun      bool
	metricsAddr string
}

func newPlayCmd(a *app) *cobra.Command {
	o := &playOptions{}
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a vector until interrupted or --duration elapses",
		Long: `Play a vector through the sampler, or log the decision stream with --dry-run.

Examples:
  # Play a stored embedding for 30 seconds
  sonify play --vector embedding.json --duration 30s

  # Hear the move from one idea to another
  sonify play --from "morning fog" --to "city at night"

  # Log what would be played
  sonify play --random 384 --dry-run --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.play(cmd, o)
		},
	}
	o.input.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&o.phase, "phase", "start", "phase tag: start|traversal|end")
	flags.DurationVar(&o.duration, "duration", 0, "stop after this long (0 plays until interrupted)")
	flags.BoolVar(&o.dryRun, "dry-run", false, "log triggers instead of playing audio")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.addr)")
	return cmd
}

func (a *app) play(cmd *cobra.Command, o *playOptions) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	phase, err := sonify.ParsePhase(o.phase)
	if err != nil {
		return err
	}
	vector, err := o.input.resolve(ctx, cmd.InOrStdin(), a.cfg.Embed)
	if err != nil {
		return err
	}
	opts, err := a.engineOptions()
	if err != nil {
		return err
	}

	addr := a.cfg.Metrics.Addr
	if o.metricsAddr != "" {
		addr = o.metricsAddr
	}
	if addr != "" {
		tp, stop, err := a.serveMetrics(ctx, addr)
		if err != nil {
			return err
		}
		defer stop()
		opts = append(opts, sonify.WithMeterProvider(tp.MeterProvider()))
	}

	if a.cfg.Bus.Enabled {
		pub, err := bus.Connect(a.cfg.Bus, a.log)
		if err != nil {
			return err
		}
		defer pub.Close()
		opts = append(opts, sonify.WithTap(pub), sonify.WithPhaseObserver(publishPhase(pub)))
	}

	var engine *sonify.Engine
	if o.dryRun {
		engine, err = sonify.NewEngine(&logBackend{log: a.log}, append(opts, sonify.WithScheduler(clock.NewTicker()))...)
		if err != nil {
			return err
		}
	} else {
		smp, closePlayer, err := a.openSampler(ctx)
		if err != nil {
			return err
		}
		defer closePlayer()
		engine, err = sonify.NewEngine(smp, append(opts, sonify.WithScheduler(smp.Clock()))...)
		if err != nil {
			return err
		}
	}

	engine.Play(vector, phase)
	if o.duration > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(o.duration):
		}
	} else {
		<-ctx.Done()
	}
	engine.Stop()
	if !o.dryRun {
		// let the release fades reach the speakers
		time.Sleep(a.cfg.Effects.Release + outputLatency)
	}
	return nil
}

// openSampler starts the audio stream and loads samples in the background;
// channels join the performance as they become ready.
func (a *app) openSampler(ctx context.Context) (*sampler.Sampler, func(), error) {
	reg, err := a.cfg.Registry()
	if err != nil {
		return nil, nil, err
	}
	kit, err := a.cfg.Kit()
	if err != nil {
		return nil, nil, err
	}
	bank := sampler.NewBank(a.cfg.SampleRate, sampler.NewLoader(a.cfg.Samples.BaseURL), a.log)
	smp := sampler.New(bank, a.cfg.SamplerOptions(), a.log)
	player, err := audio.NewPlayer(a.cfg.SampleRate, smp, outputLatency)
	if err != nil {
		return nil, nil, fmt.Errorf("open audio output: %w", err)
	}
	player.Play()
	go func() {
		if err := bank.Load(ctx, reg, kit); err != nil {
			a.log.Warn("some instruments are unavailable", zap.Error(err))
		}
	}()
	return smp, func() {
		a.log.Info("audio output closed", zap.Duration("played", player.Position()))
		if err := player.Close(); err != nil {
			a.log.Warn("close audio output", zap.Error(err))
		}
	}, nil
}

func (a *app) serveMetrics(ctx context.Context, addr string) (*telemetry.Provider, func(), error) {
	tp, err := telemetry.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", tp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", addr))
	return tp, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = tp.Shutdown(shutdownCtx)
	}, nil
}

func publishPhase(pub *bus.Publisher) func(sonify.PhaseEvent) {
	return func(ev sonify.PhaseEvent) {
		msg := protocol.PhaseMessage{PerformanceID: ev.PerformanceID, Phase: ev.Phase.String(), Policy: ev.Policy}
		if ev.Phase != sonify.PhaseIdle {
			msg.BPM = ev.Params.BPM
			msg.BeatsPerBar = ev.Params.BeatsPerBar
			msg.Palette = string(ev.Params.Palette)
			msg.Root = ev.Params.Root.String()
		}
		pub.Phase(msg)
	}
}

// logBackend stands in for audio in dry runs: every channel is ready and
// every trigger is logged.
type logBackend struct {
	log *zap.Logger
}

func (b *logBackend) Trigger(t sequencer.Trigger) {
	b.log.Info("trigger",
		zap.Int("step", t.Step),
		zap.Stringer("channel", t.Channel),
		zap.Stringer("note", t.Note),
		zap.String("duration", string(t.Duration)),
		zap.Duration("at", t.Time),
		zap.Float64("velocity", t.Velocity))
}

func (b *logBackend) Loaded(sequencer.Channel) bool { return true }

func (b *logBackend) ReleaseAll() { b.log.Debug("release all") }

func (b *logBackend) SetTempo(bpm float64) { b.log.Debug("tempo", zap.Float64("bpm", bpm)) }

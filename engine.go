// Package sonify plays feature vectors as music. An Engine derives a
// composition from the vector, then steps a sequencer on a scheduler and
// sends every note decision to a Backend.
package sonify

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/cbegin/sonify-go/internal/clock"
	"github.com/cbegin/sonify-go/internal/features"
	"github.com/cbegin/sonify-go/internal/sequencer"
	"github.com/cbegin/sonify-go/internal/voices"
)

// ErrNoBackend is returned by NewEngine when no backend is given.
var ErrNoBackend = errors.New("sonify: backend is required")

// DefaultCueDelay is how long after Start the impact cue sounds.
const DefaultCueDelay = 100 * time.Millisecond

// Backend plays triggers. Loaded gates channels whose samples are not ready.
type Backend interface {
	sequencer.Output
	sequencer.Readiness
	// ReleaseAll fades every sounding note and drops scheduled ones.
	ReleaseAll()
	SetTempo(bpm float64)
}

// EngineOption configures an Engine at construction.
type EngineOption func(*engineConfig)

type engineConfig struct {
	policy    features.Policy
	registry  voices.Registry
	scheduler clock.Scheduler
	log       *zap.Logger
	meters    metric.MeterProvider
	impactCue bool
	cueDelay  time.Duration
	taps      []sequencer.Output
	observers []func(PhaseEvent)
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		policy:    features.Dimensional{},
		registry:  voices.Default(),
		log:       zap.NewNop(),
		meters:    noop.NewMeterProvider(),
		impactCue: true,
		cueDelay:  DefaultCueDelay,
	}
}

// WithPolicy sets how vectors become compositions. The default is Dimensional.
func WithPolicy(p features.Policy) EngineOption {
	return func(cfg *engineConfig) {
		if p != nil {
			cfg.policy = p
		}
	}
}

// WithRegistry replaces the default voice registry. NewEngine validates it.
func WithRegistry(r voices.Registry) EngineOption {
	return func(cfg *engineConfig) {
		cfg.registry = r
	}
}

// WithScheduler sets the step clock. The default is a wall-clock Ticker;
// pair a sampler backend with its own Frames clock.
func WithScheduler(s clock.Scheduler) EngineOption {
	return func(cfg *engineConfig) {
		cfg.scheduler = s
	}
}

// WithLogger sets the logger for performance start and stop records.
func WithLogger(log *zap.Logger) EngineOption {
	return func(cfg *engineConfig) {
		if log != nil {
			cfg.log = log
		}
	}
}

// WithMeterProvider sets where the trigger, step and performance counters go.
func WithMeterProvider(mp metric.MeterProvider) EngineOption {
	return func(cfg *engineConfig) {
		if mp != nil {
			cfg.meters = mp
		}
	}
}

// WithImpactCue enables the tam-tam that opens each performance, delay
// after the clock starts.
func WithImpactCue(enabled bool, delay time.Duration) EngineOption {
	return func(cfg *engineConfig) {
		cfg.impactCue = enabled
		cfg.cueDelay = delay
	}
}

// WithTap copies every trigger to out as well as the backend. Taps run on
// the scheduler's goroutine and must not call back into the Engine.
func WithTap(out sequencer.Output) EngineOption {
	return func(cfg *engineConfig) {
		if out != nil {
			cfg.taps = append(cfg.taps, out)
		}
	}
}

// WithPhaseObserver adds a listener that sees every transition with its
// performance details. It runs alongside the SetPhaseCallback observer.
func WithPhaseObserver(fn func(PhaseEvent)) EngineOption {
	return func(cfg *engineConfig) {
		if fn != nil {
			cfg.observers = append(cfg.observers, fn)
		}
	}
}

// Engine runs at most one performance at a time. All methods are safe for
// concurrent use.
type Engine struct {
	mu        sync.Mutex
	cfg       engineConfig
	backend   Backend
	out       sequencer.Output
	metrics   *engineMetrics
	callback  func(Phase)
	phase     Phase
	perf      *performance
	observers []func(PhaseEvent)
}

// performance is the state of one Play call. Ticks carry the performance
// they were scheduled for and are dropped once it is replaced.
type performance struct {
	id     string
	seq    *sequencer.Sequencer
	params features.Params
}

// NewEngine builds an idle Engine that plays through backend.
func NewEngine(backend Backend, opts ...EngineOption) (*Engine, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.registry.Validate(); err != nil {
		return nil, err
	}
	if cfg.scheduler == nil {
		cfg.scheduler = clock.NewTicker()
	}
	m, err := newEngineMetrics(cfg.meters)
	if err != nil {
		return nil, err
	}
	outputs := append([]sequencer.Output{backend, m}, cfg.taps...)
	return &Engine{
		cfg:       cfg,
		backend:   backend,
		out:       sequencer.NewFanout(outputs...),
		metrics:   m,
		observers: cfg.observers,
	}, nil
}

// SetPhaseCallback installs the single phase observer, replacing any
// previous one. It is called synchronously on the goroutine that caused
// the transition, without the engine lock held.
func (e *Engine) SetPhaseCallback(cb func(Phase)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callback = cb
}

// Phase is the tag of the running performance, or PhaseIdle.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Params returns the composition of the running performance.
func (e *Engine) Params() (features.Params, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.perf == nil {
		return features.Params{}, false
	}
	return e.perf.params, true
}

// PerformanceID identifies the running performance, or "" when idle.
func (e *Engine) PerformanceID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.perf == nil {
		return ""
	}
	return e.perf.id
}

// Play stops whatever is playing and starts a performance of vector. It
// returns the new performance's ID. Any vector is accepted: reads wrap and
// non-finite entries read as zero. Observers hear the new phase before the
// clock starts, so every trigger follows the event that announced it.
func (e *Engine) Play(vector []float32, phase Phase) string {
	e.notify(e.halt())

	policy := e.cfg.policy
	params := policy.Extract(vector)
	perf := &performance{id: uuid.NewString(), params: params}
	perf.seq = sequencer.New(vector, e.out, sequencer.Options{
		Params:   params,
		Rules:    policy.Rules(),
		Registry: e.cfg.registry,
		Ready:    e.backend,
		OnStep: func(int, int) {
			e.metrics.step()
		},
	})

	e.mu.Lock()
	// another Play may have started while observers heard idle
	var replaced *PhaseEvent
	if e.perf != nil {
		ev := e.haltLocked()
		replaced = &ev
	}
	e.perf = perf
	e.phase = phase
	e.backend.SetTempo(params.BPM)
	ev := e.eventLocked()
	e.mu.Unlock()

	if replaced != nil {
		e.notify(*replaced)
	}
	e.notify(ev)

	e.mu.Lock()
	if e.perf != perf {
		// an observer stopped or replaced it
		e.mu.Unlock()
		return perf.id
	}
	e.cfg.scheduler.Start(params.BPM, func(at time.Duration) {
		e.tick(perf, at)
	})
	cued := false
	if e.cfg.impactCue {
		cued = perf.seq.Cue(e.cfg.cueDelay)
	}
	e.mu.Unlock()

	e.metrics.performance(policy.Name())
	e.cfg.log.Info("performance started",
		zap.String("performance_id", perf.id),
		zap.Stringer("phase", phase),
		zap.String("policy", policy.Name()),
		zap.Float64("bpm", params.BPM),
		zap.Int("beats_per_bar", params.BeatsPerBar),
		zap.String("palette", string(params.Palette)),
		zap.Int("mode", params.ModeIndex),
		zap.Stringer("root", params.Root),
		zap.Bool("counterpoint", params.Counterpoint),
		zap.Int("vector_len", len(vector)),
		zap.Bool("impact_cue", cued),
	)
	return perf.id
}

// Stop halts the clock, releases every note and drops the performance.
// Observers hear idle on every call; repeated calls change nothing else.
func (e *Engine) Stop() {
	e.notify(e.halt())
}

func (e *Engine) halt() PhaseEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.haltLocked()
}

// haltLocked stops the scheduler and backend and returns the idle event.
func (e *Engine) haltLocked() PhaseEvent {
	e.cfg.scheduler.Stop()
	e.backend.ReleaseAll()
	if e.perf != nil {
		e.cfg.log.Info("performance stopped",
			zap.String("performance_id", e.perf.id),
			zap.Int("steps", e.perf.seq.Step()))
	}
	e.perf = nil
	e.phase = PhaseIdle
	return e.eventLocked()
}

func (e *Engine) tick(perf *performance, at time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.perf != perf {
		return
	}
	perf.seq.Tick(at)
}

func (e *Engine) eventLocked() PhaseEvent {
	ev := PhaseEvent{Phase: e.phase}
	if e.perf != nil {
		ev.PerformanceID = e.perf.id
		ev.Policy = e.cfg.policy.Name()
		ev.Params = e.perf.params
	}
	return ev
}

func (e *Engine) notify(ev PhaseEvent) {
	e.mu.Lock()
	cb := e.callback
	e.mu.Unlock()
	if cb != nil {
		cb(ev.Phase)
	}
	for _, fn := range e.observers {
		fn(ev)
	}
}

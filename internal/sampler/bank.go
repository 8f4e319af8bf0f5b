package sampler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cbegin/sonify-go/internal/sequencer"
	"github.com/cbegin/sonify-go/internal/theory"
	"github.com/cbegin/sonify-go/internal/voices"
)

// loadConcurrency bounds parallel fetches.
const loadConcurrency = 4

// Bank holds the instruments and tracks which channels are ready.
type Bank struct {
	sampleRate int
	loader     Loader
	log        *zap.Logger

	mu          sync.RWMutex
	instruments [sequencer.NumChannels]*Instrument
	ready       sequencer.LoadedState
}

func NewBank(sampleRate int, loader Loader, log *zap.Logger) *Bank {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bank{sampleRate: sampleRate, loader: loader, log: log}
}

// Loaded reports whether ch has an instrument.
func (b *Bank) Loaded(ch sequencer.Channel) bool { return b.ready.Loaded(ch) }

// Ready exposes the per-channel flags.
func (b *Bank) Ready() *sequencer.LoadedState { return &b.ready }

func (b *Bank) Instrument(ch sequencer.Channel) *Instrument {
	if ch < 0 || int(ch) >= sequencer.NumChannels {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.instruments[ch]
}

// Set installs an instrument and marks the channel ready.
func (b *Bank) Set(ch sequencer.Channel, in *Instrument) {
	if ch < 0 || int(ch) >= sequencer.NumChannels || in == nil {
		return
	}
	b.mu.Lock()
	b.instruments[ch] = in
	b.mu.Unlock()
	b.ready.MarkLoaded(ch)
}

type zoneSpec struct {
	root theory.Note
	file string
}

// Load fetches every voice's sample and the percussion kit concurrently.
// Each channel becomes ready as soon as its own files decode; a failing
// channel stays silent and its error is joined into the result.
func (b *Bank) Load(ctx context.Context, reg voices.Registry, kit Kit) error {
	specs := make(map[sequencer.Channel][]zoneSpec, sequencer.NumChannels)
	for _, cfg := range reg {
		if cfg.Sample == "" {
			continue
		}
		ch := sequencer.VoiceChannel(cfg.ID)
		specs[ch] = []zoneSpec{{root: cfg.BaseNote, file: cfg.Sample}}
	}
	drums := make([]sequencer.Drum, 0, len(kit))
	for d := range kit {
		drums = append(drums, d)
	}
	sort.Slice(drums, func(i, j int) bool { return drums[i] < drums[j] })
	for _, d := range drums {
		specs[sequencer.ChannelPercussion] = append(specs[sequencer.ChannelPercussion], zoneSpec{root: d.Note(), file: kit[d]})
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g := new(errgroup.Group)
	g.SetLimit(loadConcurrency)
	for ch, zones := range specs {
		g.Go(func() error {
			start := time.Now()
			in, err := b.loadInstrument(ctx, zones)
			if err != nil {
				b.log.Warn("instrument failed to load", zap.Stringer("channel", ch), zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", ch, err))
				mu.Unlock()
				return nil
			}
			b.Set(ch, in)
			b.log.Info("instrument loaded",
				zap.Stringer("channel", ch),
				zap.Int("zones", len(in.Zones)),
				zap.Duration("took", time.Since(start)))
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (b *Bank) loadInstrument(ctx context.Context, specs []zoneSpec) (*Instrument, error) {
	in := &Instrument{Zones: make([]Zone, 0, len(specs))}
	for _, zs := range specs {
		data, err := b.loader.Load(ctx, zs.file)
		if err != nil {
			return nil, err
		}
		s, err := Decode(zs.file, data, b.sampleRate)
		if err != nil {
			return nil, err
		}
		in.Zones = append(in.Zones, Zone{Root: zs.root, Sample: s})
	}
	return in, nil
}

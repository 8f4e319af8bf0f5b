package sonify

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cbegin/sonify-go/internal/sequencer"
)

const meterName = "github.com/cbegin/sonify-go"

type engineMetrics struct {
	triggers     metric.Int64Counter
	steps        metric.Int64Counter
	performances metric.Int64Counter
	byChannel    [sequencer.NumChannels]metric.AddOption
}

func newEngineMetrics(mp metric.MeterProvider) (*engineMetrics, error) {
	meter := mp.Meter(meterName)
	m := &engineMetrics{}
	var err error
	if m.triggers, err = meter.Int64Counter("sonify.triggers",
		metric.WithDescription("Note triggers sent to the backend")); err != nil {
		return nil, err
	}
	if m.steps, err = meter.Int64Counter("sonify.steps",
		metric.WithDescription("Sequencer steps played")); err != nil {
		return nil, err
	}
	if m.performances, err = meter.Int64Counter("sonify.performances",
		metric.WithDescription("Performances started")); err != nil {
		return nil, err
	}
	for ch := sequencer.Channel(0); ch < sequencer.NumChannels; ch++ {
		m.byChannel[ch] = metric.WithAttributeSet(attribute.NewSet(attribute.String("channel", ch.String())))
	}
	return m, nil
}

// Trigger counts a trigger on its channel; it sits in the output fanout.
func (m *engineMetrics) Trigger(t sequencer.Trigger) {
	if t.Channel < 0 || int(t.Channel) >= len(m.byChannel) {
		return
	}
	m.triggers.Add(context.Background(), 1, m.byChannel[t.Channel])
}

func (m *engineMetrics) step() {
	m.steps.Add(context.Background(), 1)
}

func (m *engineMetrics) performance(policy string) {
	m.performances.Add(context.Background(), 1, metric.WithAttributes(attribute.String("policy", policy)))
}

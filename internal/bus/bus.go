// Package bus publishes performance phases and triggers over NATS.
package bus

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/cbegin/sonify-go/internal/protocol"
	"github.com/cbegin/sonify-go/internal/sequencer"
)

type Config struct {
	Enabled        bool          `koanf:"enabled" yaml:"enabled"`
	Servers        []string      `koanf:"servers" yaml:"servers"`
	SubjectPrefix  string        `koanf:"subject_prefix" yaml:"subject_prefix"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
	Token          string        `koanf:"token" yaml:"token,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Servers:        []string{nats.DefaultURL},
		SubjectPrefix:  protocol.SubjectPrefix,
		ConnectTimeout: 2 * time.Second,
	}
}

// Publisher sends phase and trigger messages. It implements
// sequencer.Output so it can sit in a trigger fanout.
type Publisher struct {
	conn          *nats.Conn
	log           *zap.Logger
	phaseSubject  string
	triggerSubj   string
	mu            sync.Mutex
	performanceID string
}

func Connect(cfg Config, log *zap.Logger) (*Publisher, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	options := []nats.Option{nats.Name("sonify")}
	if cfg.ConnectTimeout > 0 {
		options = append(options, nats.Timeout(cfg.ConnectTimeout))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	log.Info("connected to NATS", zap.String("servers", url))
	phase, trigger := protocol.Subjects(cfg.SubjectPrefix)
	return &Publisher{conn: conn, log: log, phaseSubject: phase, triggerSubj: trigger}, nil
}

// Phase publishes a phase transition and remembers its performance ID for
// subsequent triggers.
func (p *Publisher) Phase(msg protocol.PhaseMessage) {
	p.mu.Lock()
	p.performanceID = msg.PerformanceID
	p.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	p.publish(p.phaseSubject, msg)
}

func (p *Publisher) Trigger(t sequencer.Trigger) {
	p.mu.Lock()
	id := p.performanceID
	p.mu.Unlock()
	p.publish(p.triggerSubj, TriggerMessage(id, t))
}

// TriggerMessage converts a trigger to its wire form.
func TriggerMessage(performanceID string, t sequencer.Trigger) protocol.TriggerMessage {
	msg := protocol.TriggerMessage{
		PerformanceID: performanceID,
		Step:          t.Step,
		Channel:       t.Channel.String(),
		Note:          t.Note.String(),
		MIDI:          int(t.Note),
		Duration:      string(t.Duration),
		OffsetMS:      float64(t.Time) / float64(time.Millisecond),
		Velocity:      t.Velocity,
	}
	if t.Drum != sequencer.DrumNone {
		msg.Drum = t.Drum.String()
	}
	return msg
}

func (p *Publisher) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.log.Warn("encode bus message", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn("publish bus message", zap.String("subject", subject), zap.Error(err))
	}
}

// Flush waits until the server has received everything published so far.
func (p *Publisher) Flush() error { return p.conn.Flush() }

func (p *Publisher) Healthy() bool {
	return p != nil && p.conn != nil && p.conn.Status() == nats.CONNECTED
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.log.Info("closing NATS connection")
	_ = p.conn.Drain()
	p.conn.Close()
}

// Package embed turns text into feature vectors for the engine.
package embed

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrEmptyInput      = errors.New("embed: empty input")
	ErrUnavailable     = errors.New("embed: provider not available")
	ErrEmbeddingFailed = errors.New("embed: embedding failed")
	ErrInvalidConfig   = errors.New("embed: invalid config")
)

// DefaultModel is a 384-dimension sentence model.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// Provider embeds a single text.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Close() error
}

type Config struct {
	Model     string `koanf:"model" yaml:"model"`
	CacheDir  string `koanf:"cache_dir" yaml:"cache_dir"`
	MaxLength int    `koanf:"max_length" yaml:"max_length"`
}

func DefaultConfig() Config {
	return Config{Model: DefaultModel, CacheDir: "local_cache", MaxLength: 256}
}

// Difference returns b - a over a's length; entries missing from b read
// as zero. It is the movement from one text's meaning to another's.
func Difference(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		var bv float32
		if i < len(b) {
			bv = b[i]
		}
		out[i] = bv - a[i]
	}
	return out
}

// Between embeds both texts and returns their Difference.
func Between(ctx context.Context, p Provider, from, to string) ([]float32, error) {
	a, err := p.Embed(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("embed from: %w", err)
	}
	b, err := p.Embed(ctx, to)
	if err != nil {
		return nil, fmt.Errorf("embed to: %w", err)
	}
	return Difference(a, b), nil
}

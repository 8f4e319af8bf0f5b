package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider map[string][]float32

func (s staticProvider) Embed(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	v, ok := s[text]
	if !ok {
		return nil, ErrEmbeddingFailed
	}
	return v, nil
}

func (s staticProvider) Dimension() int { return 3 }
func (s staticProvider) Close() error   { return nil }

func TestDifferenceIsBMinusA(t *testing.T) {
	assert.Equal(t, []float32{1, -2, 0.5}, Difference([]float32{0, 2, 0.5}, []float32{1, 0, 1}))
	assert.Equal(t, []float32{-1, -2}, Difference([]float32{1, 2}, nil))
	assert.Empty(t, Difference(nil, []float32{1}))
}

func TestBetween(t *testing.T) {
	p := staticProvider{"calm": {0.5, 0.5, 0}, "storm": {-0.5, 1, 0.25}}
	v, err := Between(context.Background(), p, "calm", "storm")
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, 0.5, 0.25}, v)

	_, err = Between(context.Background(), p, "", "storm")
	assert.True(t, errors.Is(err, ErrEmptyInput))
	_, err = Between(context.Background(), p, "calm", "unknown")
	assert.True(t, errors.Is(err, ErrEmbeddingFailed))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Positive(t, cfg.MaxLength)
}

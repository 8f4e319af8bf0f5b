//go:build !cgo

package embed

import (
	"context"
	"fmt"
)

// FastEmbed needs cgo for the ONNX runtime; this build only reports that.
type FastEmbed struct{}

func NewFastEmbed(Config) (*FastEmbed, error) {
	return nil, fmt.Errorf("%w: fastembed requires a cgo build", ErrUnavailable)
}

func (*FastEmbed) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrUnavailable
}

func (*FastEmbed) Dimension() int { return 0 }

func (*FastEmbed) Close() error { return nil }

package sampler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cbegin/sonify-go/internal/sequencer"
)

// Loader fetches a sample file by name.
type Loader interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// NewLoader returns an HTTP loader for http(s) base URLs and a directory
// loader otherwise.
func NewLoader(base string) Loader {
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return &HTTPLoader{BaseURL: base}
	}
	return DirLoader(base)
}

// DirLoader reads samples from a local directory.
type DirLoader string

func (d DirLoader) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
}

// HTTPLoader fetches samples relative to BaseURL.
type HTTPLoader struct {
	BaseURL string
	Client  *http.Client
}

func (h *HTTPLoader) Load(ctx context.Context, name string) ([]byte, error) {
	u, err := url.JoinPath(h.BaseURL, name)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Kit maps each drum to its sample file.
type Kit map[sequencer.Drum]string

// DefaultKit is the orchestral percussion: tom, woodblock, triangle, tam-tam.
func DefaultKit() Kit {
	return Kit{
		sequencer.Kick:   "tom-toms__05_mezzo-forte_struck-singly.mp3",
		sequencer.Snare:  "woodblock__025_mezzo-forte_struck-singly.mp3",
		sequencer.Hat:    "triangle__long_piano_struck-singly.mp3",
		sequencer.Impact: "tam-tam__phrase_mezzo-piano_rimshot.mp3",
	}
}

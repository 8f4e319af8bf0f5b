package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/sonify-go/internal/embed"
)

// vectorInput names where a command's vector comes from. Exactly one
// source must be set.
type vectorInput struct {
	path   string
	text   string
	from   string
	to     string
	random int
	seed   int64
}

func (in *vectorInput) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&in.path, "vector", "", `JSON array of numbers, read from a file or "-" for stdin`)
	flags.StringVar(&in.text, "text", "", "embed this text")
	flags.StringVar(&in.from, "from", "", "embed the movement from this text...")
	flags.StringVar(&in.to, "to", "", "...to this text")
	flags.IntVar(&in.random, "random", 0, "use a random vector of this length")
	flags.Int64Var(&in.seed, "seed", 1, "seed for --random")
}

func (in *vectorInput) sources() int {
	n := 0
	for _, set := range []bool{in.path != "", in.text != "", in.from != "" || in.to != "", in.random > 0} {
		if set {
			n++
		}
	}
	return n
}

// resolve produces the vector. Text sources build an embedding provider
// from cfg only when needed.
func (in *vectorInput) resolve(ctx context.Context, stdin io.Reader, cfg embed.Config) ([]float32, error) {
	switch n := in.sources(); {
	case n == 0:
		return nil, errors.New("no input: use --vector, --text, --from/--to or --random")
	case n > 1:
		return nil, errors.New("use only one of --vector, --text, --from/--to or --random")
	}
	switch {
	case in.path != "":
		return readVector(in.path, stdin)
	case in.random > 0:
		rng := rand.New(rand.NewSource(in.seed))
		v := make([]float32, in.random)
		for i := range v {
			v[i] = float32(rng.NormFloat64() * 0.1)
		}
		return v, nil
	}
	if in.text == "" && (in.from == "" || in.to == "") {
		return nil, errors.New("--from and --to must be used together")
	}
	p, err := embed.NewFastEmbed(cfg)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	if in.text != "" {
		return p.Embed(ctx, in.text)
	}
	return embed.Between(ctx, p, in.from, in.to)
}

func readVector(path string, stdin io.Reader) ([]float32, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read vector: %w", err)
	}
	var v []float32
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vector %s: %w", path, err)
	}
	return v, nil
}

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbegin/sonify-go/internal/protocol"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestRenderWritesJSONLines(t *testing.T) {
	out, err := run(t, "", "render", "--random", "384", "--seed", "3", "--steps", "32")
	require.NoError(t, err)

	sc := bufio.NewScanner(strings.NewReader(out))
	var msgs []protocol.TriggerMessage
	for sc.Scan() {
		var m protocol.TriggerMessage
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		msgs = append(msgs, m)
	}
	require.NotEmpty(t, msgs)
	assert.Equal(t, "impact", msgs[0].Drum)
	assert.Equal(t, "F2", msgs[0].Note)
	for _, m := range msgs {
		assert.Less(t, m.Step, 32)
	}

	again, err := run(t, "", "render", "--random", "384", "--seed", "3", "--steps", "32")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestParamsFromVectorFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.json")
	require.NoError(t, os.WriteFile(path, []byte(`[-0.5, 0.5, 0.5, 0.5]`), 0o600))

	out, err := run(t, "", "params", "--vector", path)
	require.NoError(t, err)
	var p paramsView
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "dimensional", p.Policy)
	assert.Equal(t, 3, p.BeatsPerBar)
	assert.Equal(t, 12, p.StepsPerBar)
	assert.True(t, p.Counterpoint)
	assert.InDelta(t, 95.0, p.BPM, 1e-9)
	assert.Len(t, p.Scale, 7)
}

func TestParamsFromStdinWithPolicyFlag(t *testing.T) {
	out, err := run(t, "[-0.5, -0.5, -0.5, -0.5]", "params", "--vector", "-", "--policy", "aggregate")
	require.NoError(t, err)
	var p paramsView
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "aggregate", p.Policy)
	assert.Equal(t, "dark", p.Palette)
	assert.Equal(t, 1, p.Mode)
}

func TestConfigPrintsYAML(t *testing.T) {
	out, err := run(t, "", "config")
	require.NoError(t, err)
	assert.Contains(t, out, "policy: dimensional")
	assert.Contains(t, out, "sample_rate: 48000")
}

func TestInputValidation(t *testing.T) {
	_, err := run(t, "", "params")
	assert.ErrorContains(t, err, "no input")

	_, err = run(t, "", "params", "--random", "8", "--text", "hello")
	assert.ErrorContains(t, err, "only one")

	_, err = run(t, "", "params", "--from", "dawn")
	assert.ErrorContains(t, err, "together")

	_, err = run(t, "not json", "params", "--vector", "-")
	assert.Error(t, err)

	_, err = run(t, "", "play", "--random", "8", "--phase", "coda", "--dry-run")
	assert.ErrorContains(t, err, "unknown phase")
}

func TestPlayDryRunStopsAfterDuration(t *testing.T) {
	_, err := run(t, "", "play", "--random", "64", "--dry-run", "--duration", "50ms", "--phase", "end")
	require.NoError(t, err)
}

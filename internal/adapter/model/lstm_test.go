package model

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tinyArtifact is a one-unit LSTM where only the candidate gate sees the
// input, followed by dense(2x + 1).
func tinyArtifact() Artifact {
	return Artifact{
		Name:      "tiny",
		Timesteps: 2,
		Features:  1,
		Layers: []LayerSpec{
			{
				Type:            "lstm",
				Units:           1,
				Kernel:          [][]float64{{0, 0, 1, 0}},
				RecurrentKernel: [][]float64{{0, 0, 0, 0}},
				Bias:            []float64{0, 0, 0, 0},
			},
			{
				Type:   "dense",
				Units:  1,
				Kernel: [][]float64{{2}},
				Bias:   []float64{1},
			},
		},
	}
}

func TestLSTM_Predict(t *testing.T) {
	m, err := New(tinyArtifact())
	require.NoError(t, err)

	got, err := m.Predict(context.Background(), [][]float64{{1}, {2}})
	require.NoError(t, err)

	// All sigmoid gates sit at 0.5 with zero pre-activation.
	c1 := 0.5 * math.Tanh(1)
	c2 := 0.5*c1 + 0.5*math.Tanh(2)
	h2 := 0.5 * math.Tanh(c2)
	assert.InDelta(t, 2*h2+1, got, 1e-12)
}

func TestLSTM_StackedReturnSequences(t *testing.T) {
	a := tinyArtifact()
	first := a.Layers[0]
	first.ReturnSequences = true
	second := a.Layers[0]
	second.Kernel = [][]float64{{0, 0, 1, 0}}
	a.Layers = []LayerSpec{first, second, a.Layers[1]}

	m, err := New(a)
	require.NoError(t, err)

	got, err := m.Predict(context.Background(), [][]float64{{1}, {2}})
	require.NoError(t, err)

	h := func(x1, x2 float64) (float64, float64) {
		c1 := 0.5 * math.Tanh(x1)
		c2 := 0.5*c1 + 0.5*math.Tanh(x2)
		return 0.5 * math.Tanh(c1), 0.5 * math.Tanh(c2)
	}
	h1, h2 := h(1, 2)
	_, top := h(h1, h2)
	assert.InDelta(t, 2*top+1, got, 1e-12)
}

func TestLSTM_InputShape(t *testing.T) {
	m, err := New(tinyArtifact())
	require.NoError(t, err)

	_, err = m.Predict(context.Background(), [][]float64{{1}})
	require.ErrorIs(t, err, domain.ErrInferenceFailure)

	_, err = m.Predict(context.Background(), [][]float64{{1}, {2, 3}})
	require.ErrorIs(t, err, domain.ErrInferenceFailure)
}

func TestLSTM_CancelledContext(t *testing.T) {
	m, err := New(tinyArtifact())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Predict(ctx, [][]float64{{1}, {2}})
	require.ErrorIs(t, err, domain.ErrInferenceFailure)
}

func TestNew_ShapeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Artifact)
		want   string
	}{
		{"no layers", func(a *Artifact) { a.Layers = nil }, "no layers"},
		{"bad kernel rows", func(a *Artifact) { a.Layers[0].Kernel = [][]float64{{0, 0, 1, 0}, {0, 0, 0, 0}} }, "kernel has 2 rows"},
		{"bad bias", func(a *Artifact) { a.Layers[0].Bias = []float64{0} }, "bias has 1 values"},
		{"unknown layer", func(a *Artifact) { a.Layers[1].Type = "conv1d" }, "unsupported layer type"},
		{"unknown activation", func(a *Artifact) { a.Layers[1].Activation = "softmax" }, "unsupported activation"},
		{"two outputs", func(a *Artifact) {
			a.Layers[1].Units = 2
			a.Layers[1].Kernel = [][]float64{{1, 1}}
			a.Layers[1].Bias = []float64{0, 0}
		}, "final layer has 2 outputs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tinyArtifact()
			tt.mutate(&a)
			_, err := New(a)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// windowArtifact accepts the production input shape and reads only the
// PM2.5 column.
func windowArtifact() Artifact {
	a := tinyArtifact()
	a.Name = "window"
	a.Timesteps = domain.WindowSize
	a.Features = domain.FeatureCount
	kernel := make([][]float64, domain.FeatureCount)
	for i := range kernel {
		kernel[i] = []float64{0, 0, 0, 0}
	}
	kernel[0] = []float64{0, 0, 1, 0}
	a.Layers[0].Kernel = kernel
	return a
}

func writeArtifact(t *testing.T, path string, a Artifact) {
	t.Helper()
	data, err := json.Marshal(a)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pm25_lstm_model.json")
	writeArtifact(t, path, windowArtifact())

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "window", m.Name())
	_, err = m.Predict(context.Background(), window24())
	require.NoError(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, domain.ErrModelUnavailable)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = LoadFile(bad)
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
}

func TestLoadFile_WrongInputShape(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*Artifact)
	}{
		{"timesteps", func(a *Artifact) { a.Timesteps = 12 }},
		{"features", func(a *Artifact) {
			a.Features = 1
			a.Layers[0].Kernel = [][]float64{{0, 0, 1, 0}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := windowArtifact()
			tt.mutate(&a)
			_, err := New(a)
			require.NoError(t, err, "artifact is internally consistent")

			path := filepath.Join(dir, tt.name+".json")
			writeArtifact(t, path, a)
			_, err = LoadFile(path)
			require.ErrorIs(t, err, domain.ErrModelUnavailable)
			assert.Contains(t, err.Error(), "want 24x6")
		})
	}
}

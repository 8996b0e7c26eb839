// Package model provides domain.Model backends: a local LSTM weights file
// evaluated in process, and a TensorFlow Serving REST client.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// Artifact is the on-disk weights layout exported from a Keras Sequential
// model. Matrices use the Keras orientation: LSTM kernels are
// [inputs x 4*units] and [units x 4*units] with gate order i, f, c, o; dense
// kernels are [inputs x units].
type Artifact struct {
	Name      string      `json:"name"`
	Timesteps int         `json:"timesteps"`
	Features  int         `json:"features"`
	Layers    []LayerSpec `json:"layers"`
}

// LayerSpec describes one layer of the artifact.
type LayerSpec struct {
	Type            string      `json:"type"` // "lstm" or "dense"
	Units           int         `json:"units"`
	ReturnSequences bool        `json:"return_sequences,omitempty"`
	Activation      string      `json:"activation,omitempty"`
	Kernel          [][]float64 `json:"kernel"`
	RecurrentKernel [][]float64 `json:"recurrent_kernel,omitempty"`
	Bias            []float64   `json:"bias"`
}

// LSTM evaluates a stacked LSTM/dense network on a single sequence.
// It is safe for concurrent use; weights are never mutated after loading.
type LSTM struct {
	name      string
	timesteps int
	features  int
	layers    []layer
}

type layer interface {
	forward(seq []*mat.VecDense) []*mat.VecDense
}

// LoadFile reads a weights artifact. The artifact must take a
// domain.WindowSize x domain.FeatureCount sequence. Any read or shape
// problem is reported as domain.ErrModelUnavailable.
func LoadFile(path string) (*LSTM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrModelUnavailable, path, err)
	}
	if a.Timesteps != domain.WindowSize || a.Features != domain.FeatureCount {
		return nil, fmt.Errorf("%w: %s: input shape %dx%d, want %dx%d", domain.ErrModelUnavailable,
			path, a.Timesteps, a.Features, domain.WindowSize, domain.FeatureCount)
	}
	m, err := New(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrModelUnavailable, path, err)
	}
	return m, nil
}

// New validates the artifact shapes and builds the network. The last layer
// must produce exactly one output.
func New(a Artifact) (*LSTM, error) {
	if a.Timesteps <= 0 || a.Features <= 0 {
		return nil, fmt.Errorf("invalid input shape %dx%d", a.Timesteps, a.Features)
	}
	if len(a.Layers) == 0 {
		return nil, fmt.Errorf("no layers")
	}

	m := &LSTM{name: a.Name, timesteps: a.Timesteps, features: a.Features}
	in := a.Features
	for i, spec := range a.Layers {
		var (
			l   layer
			out int
			err error
		)
		switch spec.Type {
		case "lstm":
			l, out, err = newLSTMLayer(spec, in)
		case "dense":
			l, out, err = newDenseLayer(spec, in)
		default:
			err = fmt.Errorf("unsupported layer type %q", spec.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		m.layers = append(m.layers, l)
		in = out
	}
	if in != 1 {
		return nil, fmt.Errorf("final layer has %d outputs, want 1", in)
	}
	return m, nil
}

// Name returns the artifact name.
func (m *LSTM) Name() string { return m.name }

// Predict runs one [timesteps x features] sequence through the network and
// returns the scalar output.
func (m *LSTM) Predict(ctx context.Context, window [][]float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrInferenceFailure, err)
	}
	if len(window) != m.timesteps {
		return 0, fmt.Errorf("%w: got %d timesteps, want %d", domain.ErrInferenceFailure, len(window), m.timesteps)
	}
	seq := make([]*mat.VecDense, len(window))
	for t, row := range window {
		if len(row) != m.features {
			return 0, fmt.Errorf("%w: timestep %d has %d features, want %d", domain.ErrInferenceFailure, t, len(row), m.features)
		}
		seq[t] = mat.NewVecDense(m.features, append([]float64(nil), row...))
	}

	for _, l := range m.layers {
		seq = l.forward(seq)
	}
	out := seq[len(seq)-1].AtVec(0)
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("%w: non-finite output", domain.ErrInferenceFailure)
	}
	return out, nil
}

type lstmLayer struct {
	units      int
	kernel     *mat.Dense // [in x 4u]
	recurrent  *mat.Dense // [u x 4u]
	bias       *mat.VecDense
	returnSeqs bool
}

func newLSTMLayer(spec LayerSpec, in int) (layer, int, error) {
	u := spec.Units
	if u <= 0 {
		return nil, 0, fmt.Errorf("lstm units must be positive")
	}
	kernel, err := dense(spec.Kernel, in, 4*u, "kernel")
	if err != nil {
		return nil, 0, err
	}
	recurrent, err := dense(spec.RecurrentKernel, u, 4*u, "recurrent_kernel")
	if err != nil {
		return nil, 0, err
	}
	if len(spec.Bias) != 4*u {
		return nil, 0, fmt.Errorf("bias has %d values, want %d", len(spec.Bias), 4*u)
	}
	return &lstmLayer{
		units:      u,
		kernel:     kernel,
		recurrent:  recurrent,
		bias:       mat.NewVecDense(4*u, append([]float64(nil), spec.Bias...)),
		returnSeqs: spec.ReturnSequences,
	}, u, nil
}

func (l *lstmLayer) forward(seq []*mat.VecDense) []*mat.VecDense {
	u := l.units
	h := mat.NewVecDense(u, nil)
	c := mat.NewVecDense(u, nil)
	z := mat.NewVecDense(4*u, nil)
	rec := mat.NewVecDense(4*u, nil)

	var out []*mat.VecDense
	for _, x := range seq {
		z.MulVec(l.kernel.T(), x)
		rec.MulVec(l.recurrent.T(), h)
		z.AddVec(z, rec)
		z.AddVec(z, l.bias)

		next := mat.NewVecDense(u, nil)
		for j := range u {
			ig := sigmoid(z.AtVec(j))
			fg := sigmoid(z.AtVec(u + j))
			cand := math.Tanh(z.AtVec(2*u + j))
			og := sigmoid(z.AtVec(3*u + j))
			cj := fg*c.AtVec(j) + ig*cand
			c.SetVec(j, cj)
			next.SetVec(j, og*math.Tanh(cj))
		}
		h = next
		if l.returnSeqs {
			out = append(out, h)
		}
	}
	if !l.returnSeqs {
		out = []*mat.VecDense{h}
	}
	return out
}

type denseLayer struct {
	kernel     *mat.Dense // [in x units]
	bias       *mat.VecDense
	activation func(float64) float64
}

func newDenseLayer(spec LayerSpec, in int) (layer, int, error) {
	u := spec.Units
	if u == 0 && len(spec.Bias) > 0 {
		u = len(spec.Bias)
	}
	if u <= 0 {
		return nil, 0, fmt.Errorf("dense units must be positive")
	}
	kernel, err := dense(spec.Kernel, in, u, "kernel")
	if err != nil {
		return nil, 0, err
	}
	if len(spec.Bias) != u {
		return nil, 0, fmt.Errorf("bias has %d values, want %d", len(spec.Bias), u)
	}
	act, err := activation(spec.Activation)
	if err != nil {
		return nil, 0, err
	}
	return &denseLayer{
		kernel:     kernel,
		bias:       mat.NewVecDense(u, append([]float64(nil), spec.Bias...)),
		activation: act,
	}, u, nil
}

// forward applies the layer to every timestep, as Keras does for 3D input.
func (l *denseLayer) forward(seq []*mat.VecDense) []*mat.VecDense {
	_, u := l.kernel.Dims()
	out := make([]*mat.VecDense, len(seq))
	for t, x := range seq {
		y := mat.NewVecDense(u, nil)
		y.MulVec(l.kernel.T(), x)
		y.AddVec(y, l.bias)
		for j := range u {
			y.SetVec(j, l.activation(y.AtVec(j)))
		}
		out[t] = y
	}
	return out
}

func dense(rows [][]float64, r, c int, name string) (*mat.Dense, error) {
	if len(rows) != r {
		return nil, fmt.Errorf("%s has %d rows, want %d", name, len(rows), r)
	}
	data := make([]float64, 0, r*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, fmt.Errorf("%s row %d has %d columns, want %d", name, i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(r, c, data), nil
}

func activation(name string) (func(float64) float64, error) {
	switch name {
	case "", "linear":
		return func(v float64) float64 { return v }, nil
	case "relu":
		return func(v float64) float64 { return math.Max(0, v) }, nil
	case "sigmoid":
		return sigmoid, nil
	case "tanh":
		return math.Tanh, nil
	default:
		return nil, fmt.Errorf("unsupported activation %q", name)
	}
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

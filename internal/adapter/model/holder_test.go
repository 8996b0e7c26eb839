package model

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constModel float64

func (m constModel) Predict(context.Context, [][]float64) (float64, error) {
	return float64(m), nil
}

// scriptedLoader returns the queued results in order.
type scriptedLoader struct {
	results []domain.Model
	errs    []error
	calls   int
}

func (s *scriptedLoader) load(context.Context) (domain.Model, error) {
	i := s.calls
	s.calls++
	return s.results[i], s.errs[i]
}

func TestHolder_EmptyIsUnavailable(t *testing.T) {
	h := NewHolder("file", "/models/missing.json", FileLoader("/models/missing.json"), testLogger())

	_, err := h.Predict(context.Background(), window24())
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.False(t, h.Status().Available)
	assert.Equal(t, "not loaded", h.Status().Error)

	err = h.Reload(context.Background())
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.False(t, h.Status().Available)
	assert.Contains(t, h.Status().Error, "model unavailable")
}

func TestHolder_ReloadSwapsAndKeepsOnFailure(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	loader := &scriptedLoader{
		results: []domain.Model{constModel(0.25), nil, constModel(0.75)},
		errs:    []error{nil, fmt.Errorf("%w: disk gone", domain.ErrModelUnavailable), nil},
	}
	var seen []domain.ModelStatus
	h := NewHolder("file", "weights.json", loader.load, testLogger())
	h.OnStatus(func(s domain.ModelStatus) { seen = append(seen, s) })

	require.NoError(t, h.Reload(context.Background()))
	v, err := h.Predict(context.Background(), window24())
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)
	assert.Equal(t, domain.ModelStatus{
		Backend: "file", Source: "weights.json", Available: true, LoadedAt: fake.Now(),
	}, h.Status())

	err = h.Reload(context.Background())
	require.Error(t, err)
	v, err = h.Predict(context.Background(), window24())
	require.NoError(t, err, "previous model stays active")
	assert.Equal(t, 0.25, v)
	assert.True(t, h.Status().Available)
	assert.Contains(t, h.Status().Error, "disk gone")

	require.NoError(t, h.Reload(context.Background()))
	v, _ = h.Predict(context.Background(), window24())
	assert.Equal(t, 0.75, v)
	assert.Empty(t, h.Status().Error)

	require.Len(t, seen, 3)
	assert.True(t, seen[2].Available)
}

func TestHolder_PassesThroughInferenceFailure(t *testing.T) {
	failing := modelFunc(func(context.Context, [][]float64) (float64, error) {
		return 0, fmt.Errorf("%w: boom", domain.ErrInferenceFailure)
	})
	h := NewHolder("test", "inline", func(context.Context) (domain.Model, error) { return failing, nil }, testLogger())
	require.NoError(t, h.Reload(context.Background()))

	_, err := h.Predict(context.Background(), window24())
	require.True(t, errors.Is(err, domain.ErrInferenceFailure))
}

type modelFunc func(context.Context, [][]float64) (float64, error)

func (f modelFunc) Predict(ctx context.Context, w [][]float64) (float64, error) { return f(ctx, w) }

func TestHolder_TimeoutBoundsPredict(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	probe := modelFunc(func(ctx context.Context, _ [][]float64) (float64, error) {
		deadline, hasDeadline = ctx.Deadline()
		return 0, nil
	})
	h := NewHolder("test", "inline", func(context.Context) (domain.Model, error) { return probe, nil }, testLogger())
	require.NoError(t, h.Reload(context.Background()))

	_, err := h.Predict(context.Background(), window24())
	require.NoError(t, err)
	assert.False(t, hasDeadline)

	h.SetTimeout(time.Minute)
	before := time.Now()
	_, err = h.Predict(context.Background(), window24())
	require.NoError(t, err)
	require.True(t, hasDeadline)
	assert.WithinDuration(t, before.Add(time.Minute), deadline, 5*time.Second)
}

func TestHolder_WrongShapeArtifactStaysUnavailable(t *testing.T) {
	a := tinyArtifact()
	path := filepath.Join(t.TempDir(), "tiny.json")
	writeArtifact(t, path, a)

	h := NewHolder("file", path, FileLoader(path), testLogger())
	err := h.Reload(context.Background())
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.False(t, h.Status().Available)

	_, err = h.Predict(context.Background(), window24())
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.NotErrorIs(t, err, domain.ErrInferenceFailure)
}

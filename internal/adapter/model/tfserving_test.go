package model

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func window24() [][]float64 {
	w := make([][]float64, domain.WindowSize)
	for i := range w {
		w[i] = make([]float64, domain.FeatureCount)
		for j := range w[i] {
			w[i][j] = float64(i+j) / 100
		}
	}
	return w
}

func TestTFServing_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/models/pm25_lstm:predict", r.URL.Path)
		assert.Equal(t, contentTypeJSON, r.Header.Get(headerContentType))

		var req predictRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Instances, 1)
		assert.Len(t, req.Instances[0], domain.WindowSize)
		assert.Len(t, req.Instances[0][0], domain.FeatureCount)

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"predictions": [[0.4275]]}`))
	}))
	defer srv.Close()

	c := NewTFServing(srv.URL+"/", "pm25_lstm", 5*time.Second, testLogger())
	got, err := c.Predict(context.Background(), window24())
	require.NoError(t, err)
	assert.InDelta(t, 0.4275, got, 1e-12)
}

func TestTFServing_BadRequestIsInferenceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Input to reshape is a tensor with 120 values"}`))
	}))
	defer srv.Close()

	c := NewTFServing(srv.URL, "pm25_lstm", 5*time.Second, testLogger())
	_, err := c.Predict(context.Background(), window24())
	require.ErrorIs(t, err, domain.ErrInferenceFailure)
	assert.Contains(t, err.Error(), "reshape")
}

func TestTFServing_UnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"predictions": [[0.1, 0.2]]}`))
	}))
	defer srv.Close()

	c := NewTFServing(srv.URL, "pm25_lstm", 5*time.Second, testLogger())
	_, err := c.Predict(context.Background(), window24())
	require.ErrorIs(t, err, domain.ErrInferenceFailure)
}

func TestTFServing_ServerErrorsOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewTFServing(srv.URL, "pm25_lstm", 5*time.Second, testLogger())
	for range 6 {
		_, err := c.Predict(context.Background(), window24())
		require.ErrorIs(t, err, domain.ErrModelUnavailable)
	}
	require.Equal(t, int32(6), hits.Load())

	_, err := c.Predict(context.Background(), window24())
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	assert.Equal(t, int32(6), hits.Load(), "open breaker short-circuits the call")
}

func TestTFServing_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewTFServing(url, "pm25_lstm", time.Second, testLogger())
	_, err := c.Predict(context.Background(), window24())
	require.ErrorIs(t, err, domain.ErrModelUnavailable)
	require.ErrorIs(t, c.Ping(context.Background()), domain.ErrModelUnavailable)
}

func TestTFServing_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/pm25_lstm" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"model_version_status": [{"state": "AVAILABLE"}]}`))
	}))
	defer srv.Close()

	require.NoError(t, NewTFServing(srv.URL, "pm25_lstm", time.Second, testLogger()).Ping(context.Background()))
	require.ErrorIs(t, NewTFServing(srv.URL, "other", time.Second, testLogger()).Ping(context.Background()), domain.ErrModelUnavailable)
}

package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/sony/gobreaker"
)

// TFServing implements domain.Model against the TensorFlow Serving REST API
// (POST {base}/v1/models/{name}:predict). Calls go through a circuit breaker;
// an open breaker or an unreachable server reports ErrModelUnavailable.
type TFServing struct {
	baseURL    string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewTFServing creates a client for the named model.
func NewTFServing(baseURL, model string, timeout time.Duration, logger *slog.Logger) *TFServing {
	return &TFServing{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "tfserving-" + model,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, domain.ErrInferenceFailure)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("model circuit state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		logger: logger,
	}
}

type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error"`
}

var errServer = errors.New("model server error")

// Ping checks that the model is loaded on the server via the status endpoint.
func (c *TFServing) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelURL(""), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: model status %d", domain.ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}

// Predict sends one sequence as a batch of one and returns the scalar output.
func (c *TFServing) Predict(ctx context.Context, window [][]float64) (float64, error) {
	body, err := json.Marshal(predictRequest{Instances: [][][]float64{window}})
	if err != nil {
		return 0, fmt.Errorf("%w: encode request: %w", domain.ErrInferenceFailure, err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, body)
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return 0, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
		case errors.Is(err, domain.ErrInferenceFailure):
			return 0, err
		default:
			return 0, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
		}
	}

	resp, ok := result.(predictResponse)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected result type %T", domain.ErrInferenceFailure, result)
	}
	if len(resp.Predictions) != 1 || len(resp.Predictions[0]) != 1 {
		return 0, fmt.Errorf("%w: unexpected prediction shape", domain.ErrInferenceFailure)
	}
	v := resp.Predictions[0][0]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite output", domain.ErrInferenceFailure)
	}
	return v, nil
}

// do performs one predict call. Transport failures and 5xx responses count
// against the breaker; 4xx responses mean the input was rejected.
func (c *TFServing) do(ctx context.Context, body []byte) (predictResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(":predict"), bytes.NewReader(body))
	if err != nil {
		return predictResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return predictResponse{}, fmt.Errorf("predict request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return predictResponse{}, fmt.Errorf("%w: status %d: %s", errServer, resp.StatusCode, msg)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return predictResponse{}, fmt.Errorf("%w: decode response: %w", domain.ErrInferenceFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return predictResponse{}, fmt.Errorf("%w: status %d: %s", domain.ErrInferenceFailure, resp.StatusCode, out.Error)
	}
	return out, nil
}

func (c *TFServing) modelURL(suffix string) string {
	return fmt.Sprintf("%s/v1/models/%s%s", c.baseURL, c.model, suffix)
}

func (c *TFServing) String() string {
	return c.modelURL("")
}

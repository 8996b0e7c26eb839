package domain

import (
	"context"
	"time"
)

// Model is a pre-trained one-step forecaster. Its internals are opaque.
type Model interface {
	// Predict runs one forward pass over a single WindowSize×FeatureCount
	// normalized sequence and returns the normalized next-hour PM2.5.
	Predict(ctx context.Context, window [][]float64) (float64, error)
}

// ModelStatus describes the currently loaded model artifact.
type ModelStatus struct {
	Backend   string    `json:"backend"`
	Source    string    `json:"source"`
	Available bool      `json:"available"`
	LoadedAt  time.Time `json:"loaded_at,omitzero"`
	Error     string    `json:"error,omitempty"`
}

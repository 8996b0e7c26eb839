package kafka

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	actual := 88.0
	p := domain.Prediction{
		ID:          "pred-1",
		Key:         "Gucheng_2016-12-20_7",
		Station:     "Gucheng",
		Geo:         domain.Geo{Lat: 39.914, Lon: 116.184},
		TargetTime:  time.Date(2016, 12, 20, 7, 0, 0, 0, time.UTC),
		Predicted:   92.25,
		Actual:      &actual,
		AQICategory: domain.AQIUnhealthy,
		CreatedAt:   now,
	}

	msg, err := serializeToMessage(p)
	require.NoError(t, err)

	assert.Equal(t, []byte("pred-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"predicted_value":92.25`)
	assert.Contains(t, string(msg.Value), `"actual_value":88`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "station", msg.Headers[0].Key)
	assert.Equal(t, []byte("Gucheng"), msg.Headers[0].Value)
	assert.Equal(t, "created_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var back domain.Prediction
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, p.Key, back.Key)
}

func TestSerializeToMessage_NullActual(t *testing.T) {
	msg, err := serializeToMessage(domain.Prediction{ID: "pred-2", Station: "Dongsi"})
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"actual_value":null`)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "aq-predictions", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "aq-predictions", w.writer.Topic)
	require.NoError(t, w.Close())
}

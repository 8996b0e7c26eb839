package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/air-quality-forecast/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes prediction results to a Kafka topic.
// It implements pipeline.PredictionPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the predictions topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes one prediction keyed by its id.
func (w *Writer) Publish(ctx context.Context, p domain.Prediction) error {
	msg, err := serializeToMessage(p)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish prediction %s: %w", p.ID, err)
	}
	w.logger.Debug("prediction published", "id", p.ID, "station", p.Station, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Prediction into a Kafka message.
func serializeToMessage(p domain.Prediction) (kafkago.Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(p.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station", Value: []byte(p.Station)},
			{Key: "created_at", Value: []byte(p.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}

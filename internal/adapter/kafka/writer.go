package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ksyounes98/agri-risk-etl/internal/config"
	"github.com/ksyounes98/agri-risk-etl/internal/domain"
)

// Writer produces risk scores to a Kafka topic.
// It implements pipeline.Exporter.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Export serializes and publishes the scored parcels to the sink topic in a
// single WriteMessages call for efficiency. Messages are keyed by parcel ID
// so downstream consumers see per-parcel ordering.
func (w *Writer) Export(ctx context.Context, scores []domain.RiskScore) error {
	if len(scores) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(scores))
	for i := range scores {
		msg, err := serializeToMessage(scores[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish risk scores: %w", err)
	}
	w.logger.Info("risk scores published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RiskScore into a Kafka message.
func serializeToMessage(score domain.RiskScore) (kafkago.Message, error) {
	data, err := json.Marshal(score)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk score: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(score.ParcelID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(score.Category)},
			{Key: "computed_at", Value: []byte(score.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}

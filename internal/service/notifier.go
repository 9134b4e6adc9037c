package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
)

// MessageProducer is satisfied by *client.KafkaProducer.
type MessageProducer interface {
	ProduceMessage(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Notifier fans persisted anomalies and fired alerts out to Kafka. With no
// producer it does nothing. Failures are logged, never returned.
type Notifier struct {
	producer     MessageProducer
	anomalyTopic string
	alertTopic   string
	logger       *zap.Logger
}

func NewNotifier(producer MessageProducer, anomalyTopic, alertTopic string, logger *zap.Logger) *Notifier {
	return &Notifier{producer: producer, anomalyTopic: anomalyTopic, alertTopic: alertTopic, logger: logger}
}

func (n *Notifier) enabled() bool {
	return n != nil && n.producer != nil
}

func (n *Notifier) Anomalies(ctx context.Context, anomalies []models.Anomaly) {
	if !n.enabled() {
		return
	}
	for _, a := range anomalies {
		n.publish(ctx, n.anomalyTopic, uuid.NewString(), "anomaly", a)
	}
}

func (n *Notifier) Alerts(ctx context.Context, alerts []models.Alert) {
	if !n.enabled() {
		return
	}
	for _, a := range alerts {
		n.publish(ctx, n.alertTopic, a.ID, "alert", a)
	}
}

func (n *Notifier) publish(ctx context.Context, topic, key, kind string, v any) {
	value, err := json.Marshal(v)
	if err != nil {
		n.logger.Error("Failed to encode message", zap.String("kind", kind), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	headers := map[string]string{"kind": kind, "message_id": uuid.NewString()}
	if err := n.producer.ProduceMessage(ctx, topic, []byte(key), value, headers); err != nil {
		n.logger.Warn("Failed to publish message",
			zap.String("topic", topic),
			zap.String("kind", kind),
			zap.Error(err))
	}
}

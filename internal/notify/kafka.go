package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rafaelccorrea/back-plugin-sub000/internal/logger"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaEmitter publishes notification envelopes to a Kafka topic, keyed by
// tenant so one tenant's notifications stay ordered on a partition.
type KafkaEmitter struct {
	w *kafka.Writer
}

type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration // default 3s
}

func NewKafkaEmitter(c KafkaConfig) *KafkaEmitter {
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 3 * time.Second
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        c.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: wt,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
	return &KafkaEmitter{w: w}
}

var _ Notifier = (*KafkaEmitter)(nil)

func (e *KafkaEmitter) Notify(ctx context.Context, tenantID int64, typ, title, message string, data map[string]any) {
	payload, err := json.Marshal(model.NotificationEnvelope{
		TenantID: tenantID,
		Type:     typ,
		Title:    title,
		Message:  message,
		Data:     data,
	})
	if err != nil {
		logger.Log.Error("notification marshal failed", zap.Error(err))
		return
	}

	err = e.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(tenantID, 10)),
		Value: payload,
	})
	if err != nil {
		logger.Log.Warn("notification publish failed",
			zap.Int64("tenant_id", tenantID), zap.String("type", typ), zap.Error(err))
	}
}

func (e *KafkaEmitter) Close() error { return e.w.Close() }

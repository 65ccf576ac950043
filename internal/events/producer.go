// Package events публикует доменные события сервиса во внешнюю шину.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer отправляет сообщение в топик шины.
type Producer interface {
	SendMessage(ctx context.Context, topic string, key, value []byte) error
	Close() error
}

// KafkaProducer отправляет сообщения в Kafka.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer создаёт продюсера для списка брокеров через запятую.
func NewKafkaProducer(brokers string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(splitBrokers(brokers)...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

// SendMessage синхронно отправляет сообщение.
func (p *KafkaProducer) SendMessage(ctx context.Context, topic string, key, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

// Close закрывает соединения с брокерами.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// LogProducer пишет сообщения в лог. Используется, когда брокеры не настроены.
type LogProducer struct {
	logger *zap.Logger
}

// NewLogProducer создаёт продюсера, пишущего в лог.
func NewLogProducer(logger *zap.Logger) *LogProducer {
	return &LogProducer{logger: logger}
}

// SendMessage пишет сообщение в лог.
func (p *LogProducer) SendMessage(ctx context.Context, topic string, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.Info("event published",
		zap.String("topic", topic),
		zap.ByteString("key", key),
		zap.ByteString("value", value),
	)
	return nil
}

// Close ничего не делает.
func (p *LogProducer) Close() error {
	return nil
}

func splitBrokers(brokers string) []string {
	var res []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			res = append(res, b)
		}
	}
	return res
}

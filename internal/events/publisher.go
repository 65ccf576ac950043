package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

// TypeOrderCreated обозначает тип события о создании заказа.
const TypeOrderCreated = "order.created"

// OrderCreated описывает содержимое события о создании заказа.
type OrderCreated struct {
	Type       string            `json:"type"`
	OrderID    string            `json:"order_id"`
	UserID     string            `json:"user_id"`
	Services   []model.ServiceID `json:"services"`
	PickupAt   string            `json:"pickup_slot"`
	DeliveryAt string            `json:"delivery_slot"`
	Status     model.OrderStatus `json:"status"`
	TotalPrice string            `json:"total_price"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Publisher публикует события заказов. Ошибки публикации не прерывают оформление заказа.
type Publisher struct {
	producer Producer
	topic    string
	logger   *zap.Logger
}

// NewPublisher создаёт публикатор событий для топика topic.
func NewPublisher(producer Producer, topic string, logger *zap.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// PublishOrderCreated отправляет событие о создании заказа.
func (p *Publisher) PublishOrderCreated(ctx context.Context, o model.Order) error {
	payload, err := json.Marshal(OrderCreated{
		Type:       TypeOrderCreated,
		OrderID:    o.ID,
		UserID:     o.UserID,
		Services:   o.Services,
		PickupAt:   o.PickupTimeSlot.ID,
		DeliveryAt: o.DeliveryTimeSlot.ID,
		Status:     o.Status,
		TotalPrice: o.TotalPrice.StringFixed(2),
		CreatedAt:  o.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.producer.SendMessage(ctx, p.topic, []byte(o.ID), payload); err != nil {
		p.logger.Warn("publish order created failed", zap.Error(err), zap.String("orderID", o.ID))
		return fmt.Errorf("send event: %w", err)
	}
	return nil
}

// Close закрывает продюсера.
func (p *Publisher) Close() error {
	return p.producer.Close()
}

package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelAccountEvents = "osms_account_events"
)

// 事件类型，与 WebSocket 推送的消息类型一致
const (
	EventPaymentStatus = "payment_status"
	EventBatchStatus   = "batch_status"
)

// Event 账户相关的状态变更事件
type Event struct {
	Type      string `json:"type"`
	UserID    int64  `json:"user_id"`
	PaymentID int64  `json:"payment_id,omitempty"`
	BatchID   int64  `json:"batch_id,omitempty"`
	Status    string `json:"status"`
	Credits   int64  `json:"credits,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.client.Publish(ctx, ChannelAccountEvents, data).Err()
}

// PublishPayment 支付意图进入终态
func (p *Publisher) PublishPayment(ctx context.Context, userID, paymentID int64, status string, credits int64) error {
	return p.Publish(ctx, &Event{
		Type:      EventPaymentStatus,
		UserID:    userID,
		PaymentID: paymentID,
		Status:    status,
		Credits:   credits,
	})
}

// PublishBatch 发送批次状态变化
func (p *Publisher) PublishBatch(ctx context.Context, userID, batchID int64, status string) error {
	return p.Publish(ctx, &Event{
		Type:    EventBatchStatus,
		UserID:  userID,
		BatchID: batchID,
		Status:  status,
	})
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 阻塞接收事件直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*Event)) error {
	sub := s.client.Subscribe(ctx, ChannelAccountEvents)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/osms-business/osms_server/internal/model"
)

// Queue 基于 Redis List 的短信发送队列
type Queue struct {
	client    *redis.Client
	queueName string
}

// DispatchMessage 已授权待发送的批次
type DispatchMessage struct {
	BatchID    int64     `json:"batch_id"`
	UserID     int64     `json:"user_id"`
	Recipients int       `json:"recipients"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// Push 将消息加入队列
func (q *Queue) Push(ctx context.Context, msg *DispatchMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Dispatch 把已扣费的批次交给发送 worker
func (q *Queue) Dispatch(ctx context.Context, batch *model.SendBatch) error {
	return q.Push(ctx, &DispatchMessage{
		BatchID:    batch.ID,
		UserID:     batch.UserID,
		Recipients: len(batch.Recipients),
		EnqueuedAt: time.Now().UTC(),
	})
}

// Pop 从队列获取消息（阻塞），超时返回 nil
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*DispatchMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg DispatchMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}

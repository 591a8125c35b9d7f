package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, task Task) (string, error)
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// Enqueue appends the task to the stream and returns the message ID.
func (p *redisProducer) Enqueue(ctx context.Context, task Task) (string, error) {
	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	msg := Message{
		TaskType: task.TaskType,
		FID:      task.FID,
		Force:    task.Force,
	}
	if task.TraceID != nil {
		msg.TraceID = *task.TraceID
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: messageValues(msg, attempt),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue task: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued task", "task_type", task.TaskType, "fid", task.FID, "force", task.Force, "attempt", attempt, "message_id", id)
	return id, nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

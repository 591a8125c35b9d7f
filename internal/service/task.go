package service

import (
	"context"
	"errors"

	"personacard.app/agent/common/logger"
	"personacard.app/agent/internal/queue"
)

var ErrQueueDisabled = errors.New("task queue is not configured")

// TaskService hands runs to the worker through the Redis stream.
type TaskService interface {
	Enqueue(ctx context.Context, taskType queue.TaskType, fid int64, force bool) (string, error)
}

type taskService struct {
	producer queue.Producer
}

func NewTaskService(producer queue.Producer) TaskService {
	return &taskService{producer: producer}
}

func (s *taskService) Enqueue(ctx context.Context, taskType queue.TaskType, fid int64, force bool) (string, error) {
	if s.producer == nil {
		return "", ErrQueueDisabled
	}

	task := queue.Task{TaskType: taskType, FID: fid, Force: force}
	if traceID := logger.TraceID(ctx); traceID != "" {
		task.TraceID = &traceID
	}
	return s.producer.Enqueue(ctx, task)
}

package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Stream entry field names.
const (
	fieldTaskType  = "task_type"
	fieldFID       = "fid"
	fieldForce     = "force"
	fieldAttempt   = "attempt"
	fieldTraceID   = "trace_id"
	fieldLastError = "last_error"
	fieldError     = "error"
)

// Message is a task read back from the stream.
type Message struct {
	ID        string
	TaskType  TaskType
	FID       int64
	Force     bool
	Attempt   int
	TraceID   string
	LastError string
	Raw       redis.XMessage
}

// MessageProcessor processes a queue message.
type MessageProcessor func(ctx context.Context, msg Message) error

// ParseMessage decodes a stream entry. Redis hands every value back as a
// string, so numbers and flags are parsed from their text form.
func ParseMessage(msg redis.XMessage) (Message, error) {
	f := fields(msg.Values)

	rawType, ok := f.lookup(fieldTaskType)
	if !ok {
		return Message{}, fmt.Errorf("missing %s", fieldTaskType)
	}
	taskType, err := ParseTaskType(rawType)
	if err != nil {
		return Message{}, err
	}

	fid, err := f.int64(fieldFID)
	if err != nil {
		return Message{}, err
	}
	if fid <= 0 {
		return Message{}, fmt.Errorf("invalid fid %d", fid)
	}

	force, err := f.bool(fieldForce)
	if err != nil {
		return Message{}, err
	}

	attempt, err := f.int(fieldAttempt)
	if err != nil {
		return Message{}, err
	}
	if attempt <= 0 {
		attempt = 1
	}

	return Message{
		ID:        msg.ID,
		TaskType:  taskType,
		FID:       fid,
		Force:     force,
		Attempt:   attempt,
		TraceID:   f.optional(fieldTraceID),
		LastError: f.optional(fieldLastError),
		Raw:       msg,
	}, nil
}

func messageValues(msg Message, attempt int) map[string]any {
	values := map[string]any{
		fieldTaskType: string(msg.TaskType),
		fieldFID:      msg.FID,
		fieldForce:    strconv.FormatBool(msg.Force),
		fieldAttempt:  attempt,
	}
	if msg.TraceID != "" {
		values[fieldTraceID] = msg.TraceID
	}
	return values
}

type fieldReader struct {
	values map[string]any
}

func fields(values map[string]any) *fieldReader {
	return &fieldReader{values: values}
}

func (r *fieldReader) lookup(key string) (string, bool) {
	raw, ok := r.values[key]
	if !ok {
		return "", false
	}
	return fmt.Sprint(raw), true
}

func (r *fieldReader) optional(key string) string {
	s, _ := r.lookup(key)
	return s
}

func (r *fieldReader) int64(key string) (int64, error) {
	s, ok := r.lookup(key)
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func (r *fieldReader) int(key string) (int, error) {
	s := r.optional(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func (r *fieldReader) bool(key string) (bool, error) {
	s := r.optional(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

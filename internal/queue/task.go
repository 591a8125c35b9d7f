package queue

import "fmt"

type TaskType string

const (
	TaskTypeIngest   TaskType = "ingest"
	TaskTypePersona  TaskType = "persona"
	TaskTypePipeline TaskType = "pipeline"
)

// ParseTaskType accepts the task names used on the stream and by the admin API.
func ParseTaskType(s string) (TaskType, error) {
	switch t := TaskType(s); t {
	case TaskTypeIngest, TaskTypePersona, TaskTypePipeline:
		return t, nil
	default:
		return "", fmt.Errorf("unknown task_type %q", s)
	}
}

// Task is one unit of queued work for a single user.
type Task struct {
	TaskType TaskType
	FID      int64
	Force    bool
	TraceID  *string
	Attempt  int
}

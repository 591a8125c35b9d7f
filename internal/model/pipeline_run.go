package model

import "time"

// Phase is the top-level stage a run belongs to.
type Phase string

const (
	PhaseIngestion Phase = "ingestion"
	PhasePersona   Phase = "persona"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// PipelineRun records one ingestion or persona run for a user.
type PipelineRun struct {
	ID            int64      `json:"id"`
	FID           int64      `json:"fid"`
	Phase         Phase      `json:"phase"`
	Status        RunStatus  `json:"status"`
	State         string     `json:"state"`
	Reason        *string    `json:"reason,omitempty"`
	Error         *string    `json:"error,omitempty"`
	CastsIngested int        `json:"casts_ingested"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

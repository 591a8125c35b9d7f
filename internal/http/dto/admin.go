package dto

import (
	"personacard.app/agent/internal/credits"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Phase   string `json:"phase,omitempty"`
	State   string `json:"state,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// RateLimitResponse is the body of every 429.
var RateLimitResponse = ErrorResponse{
	Error:   "rate_limit_exceeded",
	Message: credits.QuotaMessage,
}

type IngestResponse struct {
	Status         string          `json:"status"`
	RunID          int64           `json:"run_id,string"`
	CastsFetched   int             `json:"casts_fetched"`
	CastsIngested  int             `json:"casts_ingested"`
	CastsSkipped   int             `json:"casts_skipped"`
	ContextUpdated bool            `json:"context_updated"`
	Skipped        bool            `json:"skipped,omitempty"`
	Message        string          `json:"message,omitempty"`
	Credits        *credits.Status `json:"credits,omitempty"`
}

func ToIngestResponse(r *service.IngestionResult, status credits.Status) *IngestResponse {
	return &IngestResponse{
		Status:         "success",
		RunID:          r.RunID,
		CastsFetched:   r.CastsFetched,
		CastsIngested:  r.CastsIngested,
		CastsSkipped:   r.CastsSkipped,
		ContextUpdated: r.ContextUpdated,
		Skipped:        r.Skipped,
		Message:        r.Message,
		Credits:        &status,
	}
}

type PipelineIngestion struct {
	CastsIngested  int    `json:"casts_ingested"`
	ContextUpdated bool   `json:"context_updated"`
	Message        string `json:"message,omitempty"`
	Error          string `json:"error,omitempty"`
}

type PipelinePersona struct {
	PersonaID int64  `json:"persona_id,omitempty"`
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

type PipelineResponse struct {
	Status    string             `json:"status,omitempty"`
	Step      string             `json:"step,omitempty"`
	Error     string             `json:"error,omitempty"`
	Reason    string             `json:"reason,omitempty"`
	Ingestion *PipelineIngestion `json:"ingestion,omitempty"`
	Persona   *PipelinePersona   `json:"persona,omitempty"`
}

// ToPipelineResponse reports what each phase did. failure is nil on success.
func ToPipelineResponse(r *service.PipelineResult, failure *service.RunError) *PipelineResponse {
	resp := &PipelineResponse{Status: "success"}
	if r != nil && r.Ingestion != nil {
		resp.Ingestion = &PipelineIngestion{
			CastsIngested:  r.Ingestion.CastsIngested,
			ContextUpdated: r.Ingestion.ContextUpdated,
			Message:        r.Ingestion.Message,
		}
	}
	if r != nil && r.Persona != nil {
		resp.Persona = &PipelinePersona{
			PersonaID: r.Persona.PersonaID,
			Success:   true,
			Skipped:   r.Persona.Skipped,
			Message:   r.Persona.Message,
		}
	}
	if failure == nil {
		return resp
	}

	resp.Status = ""
	resp.Step = string(failure.Phase)
	resp.Error = failure.Message()
	resp.Reason = string(failure.Reason)
	switch failure.Phase {
	case model.PhaseIngestion:
		if resp.Ingestion == nil {
			resp.Ingestion = &PipelineIngestion{}
		}
		resp.Ingestion.Error = resp.Error
	case model.PhasePersona:
		resp.Persona = &PipelinePersona{Success: false, Error: resp.Error}
	}
	return resp
}

type EnqueueResponse struct {
	Status    string `json:"status"`
	Task      string `json:"task"`
	MessageID string `json:"message_id"`
}

type ResetResponse struct {
	Status       string `json:"status"`
	CastsDeleted int64  `json:"casts_deleted"`
}

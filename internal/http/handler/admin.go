package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"personacard.app/agent/internal/http/dto"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/service"
)

type AdminHandler struct {
	ingestion service.IngestionService
	persona   service.PersonaService
	pipeline  service.PipelineService
	credits   service.CreditsService
	data      service.DataService
	tasks     service.TaskService
}

type AdminServices struct {
	Ingestion service.IngestionService
	Persona   service.PersonaService
	Pipeline  service.PipelineService
	Credits   service.CreditsService
	Data      service.DataService
	Tasks     service.TaskService
}

func NewAdminHandler(s AdminServices) *AdminHandler {
	return &AdminHandler{
		ingestion: s.Ingestion,
		persona:   s.Persona,
		pipeline:  s.Pipeline,
		credits:   s.Credits,
		data:      s.Data,
		tasks:     s.Tasks,
	}
}

func (h *AdminHandler) IngestNow(c *gin.Context) {
	fid, ok := parseFID(c)
	if !ok {
		return
	}

	res, err := h.ingestion.Run(c.Request.Context(), fid, service.IngestOptions{Force: c.Query("force") == "true"})
	if err != nil {
		writeRunError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToIngestResponse(res, h.credits.Status()))
}

func (h *AdminHandler) PersonaNow(c *gin.Context) {
	fid, ok := parseFID(c)
	if !ok {
		return
	}

	res, err := h.persona.Generate(c.Request.Context(), fid)
	if err != nil {
		writeRunError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.GeneratePersonaResponse{Status: "success", PersonaID: res.PersonaID})
}

func (h *AdminHandler) FullPipeline(c *gin.Context) {
	ctx := c.Request.Context()
	fid, ok := parseFID(c)
	if !ok {
		return
	}

	res, err := h.pipeline.Run(ctx, fid, service.IngestOptions{Force: c.Query("force") == "true"})
	if err == nil {
		slog.InfoContext(ctx, "pipeline completed", "fid", fid)
		c.JSON(http.StatusOK, dto.ToPipelineResponse(res, nil))
		return
	}

	re, ok := service.AsRunError(err)
	if !ok {
		writeRunError(c, err)
		return
	}
	status := statusFor(re.Reason)
	if status == http.StatusTooManyRequests {
		c.JSON(status, dto.RateLimitResponse)
		return
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(ctx, "pipeline failed", "fid", fid, "error", err)
	}
	c.JSON(status, dto.ToPipelineResponse(res, re))
}

func (h *AdminHandler) Enqueue(c *gin.Context) {
	ctx := c.Request.Context()
	fid, ok := parseFID(c)
	if !ok {
		return
	}

	task := c.DefaultQuery("task", string(queue.TaskTypePipeline))
	taskType, err := queue.ParseTaskType(task)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	msgID, err := h.tasks.Enqueue(ctx, taskType, fid, c.Query("force") == "true")
	if errors.Is(err, service.ErrQueueDisabled) {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to enqueue task", "fid", fid, "task_type", taskType, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to enqueue task"})
		return
	}

	c.JSON(http.StatusAccepted, dto.EnqueueResponse{Status: "queued", Task: string(taskType), MessageID: msgID})
}

func (h *AdminHandler) Credits(c *gin.Context) {
	c.JSON(http.StatusOK, h.credits.Status())
}

func (h *AdminHandler) ResetData(c *gin.Context) {
	fid, ok := parseFID(c)
	if !ok {
		return
	}

	res, err := h.data.Reset(c.Request.Context(), fid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to reset user data"})
		return
	}

	c.JSON(http.StatusOK, dto.ResetResponse{Status: "success", CastsDeleted: res.CastsDeleted})
}

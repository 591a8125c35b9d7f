package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"personacard.app/agent/internal/credits"
	"personacard.app/agent/internal/http/dto"
	"personacard.app/agent/internal/http/handler"
	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/service"
)

var _ = Describe("AdminHandler", func() {
	var (
		router    *gin.Engine
		ingestion *mockIngestionService
		persona   *mockPersonaService
		pipeline  *mockPipelineService
		creditSvc *mockCreditsService
		data      *mockDataService
		tasks     *mockTaskService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		ingestion = &mockIngestionService{}
		persona = &mockPersonaService{}
		pipeline = &mockPipelineService{}
		creditSvc = &mockCreditsService{status: credits.Status{Date: "2026-10-15", Used: 40, Limit: 100, Remaining: 60, PercentUsed: 40}}
		data = &mockDataService{}
		tasks = &mockTaskService{}

		h := handler.NewAdminHandler(handler.AdminServices{
			Ingestion: ingestion,
			Persona:   persona,
			Pipeline:  pipeline,
			Credits:   creditSvc,
			Data:      data,
			Tasks:     tasks,
		})
		router.GET("/credits", h.Credits)
		router.POST("/users/:fid/ingest-now", h.IngestNow)
		router.POST("/users/:fid/persona-now", h.PersonaNow)
		router.POST("/users/:fid/full-pipeline", h.FullPipeline)
		router.POST("/users/:fid/enqueue", h.Enqueue)
		router.DELETE("/users/:fid/data", h.ResetData)
	})

	serve := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	Describe("IngestNow", func() {
		It("passes force through and reports credits", func() {
			var gotForce bool
			ingestion.runFn = func(_ context.Context, fid int64, opts service.IngestOptions) (*service.IngestionResult, error) {
				gotForce = opts.Force
				return &service.IngestionResult{RunID: 7, CastsFetched: 12, CastsIngested: 12, ContextUpdated: true}, nil
			}

			w := serve(http.MethodPost, "/users/42/ingest-now?force=true")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotForce).To(BeTrue())
			var resp dto.IngestResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.CastsIngested).To(Equal(12))
			Expect(resp.Credits).NotTo(BeNil())
			Expect(resp.Credits.Remaining).To(Equal(60))
		})

		It("reports a cooldown skip as success", func() {
			ingestion.runFn = func(_ context.Context, _ int64, _ service.IngestOptions) (*service.IngestionResult, error) {
				return &service.IngestionResult{Skipped: true, Message: service.SkippedCooldown}, nil
			}

			w := serve(http.MethodPost, "/users/42/ingest-now")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(service.SkippedCooldown))
		})

		It("returns 409 when the user is locked", func() {
			ingestion.runFn = func(_ context.Context, _ int64, _ service.IngestOptions) (*service.IngestionResult, error) {
				return nil, &service.RunError{Phase: model.PhaseIngestion, State: service.StateIdle, Reason: service.ReasonBusy, Err: lock.ErrLocked}
			}

			w := serve(http.MethodPost, "/users/42/ingest-now")
			Expect(w.Code).To(Equal(http.StatusConflict))
		})

		It("hides internal failures", func() {
			ingestion.runFn = func(_ context.Context, _ int64, _ service.IngestOptions) (*service.IngestionResult, error) {
				return nil, &service.RunError{Phase: model.PhaseIngestion, State: service.StateAggregating, Reason: service.ReasonInternal, Err: errors.New("pq: secret detail")}
			}

			w := serve(http.MethodPost, "/users/42/ingest-now")

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).NotTo(ContainSubstring("secret detail"))
		})
	})

	Describe("PersonaNow", func() {
		It("returns the persona id", func() {
			persona.generateFn = func(_ context.Context, _ int64) (*service.PersonaResult, error) {
				return &service.PersonaResult{PersonaID: 5}, nil
			}

			w := serve(http.MethodPost, "/users/42/persona-now")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"persona_id":5`))
			Expect(persona.staleCalls).To(BeZero())
		})
	})

	Describe("FullPipeline", func() {
		It("reports both phases on success", func() {
			pipeline.runFn = func(_ context.Context, _ int64, _ service.IngestOptions) (*service.PipelineResult, error) {
				return &service.PipelineResult{
					Ingestion: &service.IngestionResult{CastsIngested: 3, ContextUpdated: true},
					Persona:   &service.PersonaResult{PersonaID: 8},
				}, nil
			}

			w := serve(http.MethodPost, "/users/42/full-pipeline")

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp dto.PipelineResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal("success"))
			Expect(resp.Ingestion.CastsIngested).To(Equal(3))
			Expect(resp.Persona.Success).To(BeTrue())
		})

		It("marks a persona phase skipped because the persona is current", func() {
			pipeline.runFn = func(_ context.Context, _ int64, _ service.IngestOptions) (*service.PipelineResult, error) {
				return &service.PipelineResult{
					Ingestion: &service.IngestionResult{Skipped: true, Message: service.SkippedCooldown},
					Persona:   &service.PersonaResult{Skipped: true, Message: service.SkippedCurrent},
				}, nil
			}

			w := serve(http.MethodPost, "/users/42/full-pipeline")

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp dto.PipelineResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Persona.Success).To(BeTrue())
			Expect(resp.Persona.Skipped).To(BeTrue())
			Expect(resp.Persona.Message).To(Equal(service.SkippedCurrent))
		})

		It("names the failing step and keeps the ingestion summary", func() {
			pipeline.runFn = func(_ context.Context, _ int64, _ service.IngestOptions) (*service.PipelineResult, error) {
				return &service.PipelineResult{
						Ingestion: &service.IngestionResult{CastsIngested: 3, ContextUpdated: true},
					}, &service.RunError{
						Phase:  model.PhasePersona,
						State:  service.StateSummarizing,
						Reason: service.ReasonExternalFailure,
						Err:    errors.New("llm timeout"),
					}
			}

			w := serve(http.MethodPost, "/users/42/full-pipeline")

			Expect(w.Code).To(Equal(http.StatusBadGateway))
			var resp dto.PipelineResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Step).To(Equal("persona"))
			Expect(resp.Ingestion.CastsIngested).To(Equal(3))
			Expect(resp.Persona.Success).To(BeFalse())
			Expect(resp.Persona.Error).To(Equal("llm timeout"))
		})

		It("returns 429 on quota", func() {
			pipeline.runFn = func(_ context.Context, _ int64, _ service.IngestOptions) (*service.PipelineResult, error) {
				return &service.PipelineResult{}, &service.RunError{
					Phase:  model.PhaseIngestion,
					State:  service.StateFetching,
					Reason: service.ReasonQuotaExceeded,
					Err:    credits.ErrQuotaExceeded,
				}
			}

			w := serve(http.MethodPost, "/users/42/full-pipeline")
			Expect(w.Code).To(Equal(http.StatusTooManyRequests))
		})
	})

	Describe("Enqueue", func() {
		It("queues a pipeline task by default", func() {
			var got queue.TaskType
			tasks.enqueueFn = func(_ context.Context, taskType queue.TaskType, _ int64, _ bool) (string, error) {
				got = taskType
				return "1700000000000-0", nil
			}

			w := serve(http.MethodPost, "/users/42/enqueue")

			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(got).To(Equal(queue.TaskTypePipeline))
			Expect(w.Body.String()).To(ContainSubstring("1700000000000-0"))
		})

		It("rejects an unknown task", func() {
			w := serve(http.MethodPost, "/users/42/enqueue?task=nope")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 503 when the queue is off", func() {
			tasks.enqueueFn = func(_ context.Context, _ queue.TaskType, _ int64, _ bool) (string, error) {
				return "", service.ErrQueueDisabled
			}

			w := serve(http.MethodPost, "/users/42/enqueue?task=ingest")
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	It("returns the credit status", func() {
		w := serve(http.MethodGet, "/credits")

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp credits.Status
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Used).To(Equal(40))
		Expect(resp.PercentUsed).To(Equal(40))
	})

	Describe("ResetData", func() {
		It("reports deleted casts", func() {
			data.resetFn = func(_ context.Context, fid int64) (*service.ResetResult, error) {
				return &service.ResetResult{CastsDeleted: 17}, nil
			}

			w := serve(http.MethodDelete, "/users/42/data")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"casts_deleted":17`))
		})

		It("returns 500 on failure", func() {
			data.resetFn = func(_ context.Context, _ int64) (*service.ResetResult, error) {
				return nil, errors.New("tx aborted")
			}

			w := serve(http.MethodDelete, "/users/42/data")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
		})
	})
})

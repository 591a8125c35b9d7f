package worker

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"personacard.app/agent/common/logger"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/service"
)

// Processor dispatches queued tasks to the orchestrator services.
type Processor struct {
	ingestion service.IngestionService
	persona   service.PersonaService
	pipeline  service.PipelineService
}

func NewProcessor(ingestion service.IngestionService, persona service.PersonaService, pipeline service.PipelineService) *Processor {
	return &Processor{
		ingestion: ingestion,
		persona:   persona,
		pipeline:  pipeline,
	}
}

func (p *Processor) Process(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_task",
		trace.WithAttributes(
			attribute.String("task_type", string(msg.TaskType)),
			attribute.Int64("fid", msg.FID),
			attribute.Int("attempt", msg.Attempt),
		))
	defer sc.End()
	ctx = sc.Context()

	err := p.dispatch(ctx, msg)
	if err != nil {
		sc.RecordError(err)
	}
	return err
}

func (p *Processor) dispatch(ctx context.Context, msg queue.Message) error {
	opts := service.IngestOptions{Force: msg.Force}

	switch msg.TaskType {
	case queue.TaskTypeIngest:
		res, err := p.ingestion.Run(ctx, msg.FID, opts)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "ingest task done",
			"skipped", res.Skipped,
			"casts_ingested", res.CastsIngested)
	case queue.TaskTypePersona:
		// Unforced persona tasks leave a current persona alone.
		generate := p.persona.GenerateIfStale
		if msg.Force {
			generate = p.persona.Generate
		}
		res, err := generate(ctx, msg.FID)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "persona task done",
			"persona_id", res.PersonaID,
			"skipped", res.Skipped)
	case queue.TaskTypePipeline:
		res, err := p.pipeline.Run(ctx, msg.FID, opts)
		if err != nil {
			return err
		}
		if res.Persona != nil {
			slog.InfoContext(ctx, "pipeline task done",
				"casts_ingested", res.Ingestion.CastsIngested,
				"persona_skipped", res.Persona.Skipped)
		}
	default:
		return fmt.Errorf("unknown task type %q", msg.TaskType)
	}
	return nil
}

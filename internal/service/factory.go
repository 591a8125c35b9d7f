package service

import (
	"time"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/internal/credits"
	"personacard.app/agent/internal/freshness"
	"personacard.app/agent/internal/lock"
	"personacard.app/agent/internal/metrics"
	"personacard.app/agent/internal/queue"
	"personacard.app/agent/internal/store"
)

// Deps are the collaborators shared by every service. Producer and Metrics
// may be nil.
type Deps struct {
	Stores    *store.Stores
	TxRunner  TxRunner
	Fetcher   CastFetcher
	Generator PersonaGenerator
	Sampler   CastSampler
	Locker    lock.Locker
	Credits   *credits.Tracker
	Producer  queue.Producer
	Metrics   *metrics.Metrics
	Clock     clock.Clock
	Cooldown  time.Duration
	MaxCasts  int
}

type Services struct {
	deps Deps
	gate *freshness.Gate
}

func NewServices(deps Deps) *Services {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &Services{
		deps: deps,
		gate: freshness.New(deps.Clock, deps.Cooldown, deps.Stores.Casts(), deps.Stores.Contexts(), deps.Stores.Personas()),
	}
}

func (s *Services) ingestionDeps() IngestionDeps {
	return IngestionDeps{
		Fetcher:  s.deps.Fetcher,
		Casts:    s.deps.Stores.Casts(),
		Contexts: s.deps.Stores.Contexts(),
		Users:    s.deps.Stores.Users(),
		Runs:     s.deps.Stores.PipelineRuns(),
		Gate:     s.gate,
		Locker:   s.deps.Locker,
		Metrics:  s.deps.Metrics,
		Clock:    s.deps.Clock,
		MaxCasts: s.deps.MaxCasts,
	}
}

func (s *Services) personaDeps() PersonaDeps {
	return PersonaDeps{
		Casts:     s.deps.Stores.Casts(),
		Contexts:  s.deps.Stores.Contexts(),
		Personas:  s.deps.Stores.Personas(),
		Runs:      s.deps.Stores.PipelineRuns(),
		Evals:     s.deps.Stores.LLMEvals(),
		Gate:      s.gate,
		Sampler:   s.deps.Sampler,
		Generator: s.deps.Generator,
		Locker:    s.deps.Locker,
		Metrics:   s.deps.Metrics,
		Clock:     s.deps.Clock,
	}
}

func (s *Services) Ingestion() IngestionService {
	return NewIngestionService(s.ingestionDeps())
}

func (s *Services) Persona() PersonaService {
	return NewPersonaService(s.personaDeps())
}

func (s *Services) Pipeline() PipelineService {
	return NewPipelineService(s.deps.Locker, s.ingestionDeps(), s.personaDeps())
}

func (s *Services) Cards() CardService {
	return NewCardService(s.deps.Stores.Personas(), s.deps.Stores.Contexts(), s.deps.Stores.Users(), s.deps.Generator)
}

func (s *Services) Credits() CreditsService {
	return NewCreditsService(s.deps.Credits)
}

func (s *Services) Data() DataService {
	return NewDataService(s.deps.TxRunner)
}

func (s *Services) Tasks() TaskService {
	return NewTaskService(s.deps.Producer)
}

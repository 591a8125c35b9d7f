package store

import (
	"personacard.app/agent/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Casts() CastStore {
	return newCastStore(s.queries)
}

func (s *Stores) Contexts() ContextStore {
	return newContextStore(s.queries)
}

func (s *Stores) Personas() PersonaStore {
	return newPersonaStore(s.queries)
}

func (s *Stores) Users() UserReader {
	return newUserReader(s.queries)
}

func (s *Stores) PipelineRuns() PipelineRunStore {
	return newPipelineRunStore(s.queries)
}

func (s *Stores) LLMEvals() LLMEvalStore {
	return newLLMEvalStore(s.queries)
}

// Package freshness decides when a user's snapshot and persona are stale.
package freshness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"personacard.app/agent/common/clock"
	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/store"
)

const DefaultCooldown = time.Hour

// Gate answers staleness questions against the stored snapshot, the newest
// stored cast and the latest persona.
type Gate struct {
	clock    clock.Clock
	cooldown time.Duration
	casts    store.CastStore
	contexts store.ContextStore
	personas store.PersonaStore
}

func New(clk clock.Clock, cooldown time.Duration, casts store.CastStore, contexts store.ContextStore, personas store.PersonaStore) *Gate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Gate{clock: clk, cooldown: cooldown, casts: casts, contexts: contexts, personas: personas}
}

func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

// IsFresh reports whether uc was computed less than one cooldown ago. A nil
// snapshot is never fresh.
func (g *Gate) IsFresh(uc *model.UserContext) bool {
	if uc == nil {
		return false
	}
	return g.Age(uc) < g.cooldown
}

func (g *Gate) Age(uc *model.UserContext) time.Duration {
	return g.clock.Now().Sub(uc.UpdatedAt)
}

// HasNewActivity is true when there is no snapshot yet or the newest stored
// cast differs from the one the snapshot last saw.
func (g *Gate) HasNewActivity(ctx context.Context, fid int64) (bool, error) {
	uc, err := g.contexts.GetByFID(ctx, fid)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading context: %w", err)
	}

	latest, err := g.casts.GetLatestByFID(ctx, fid)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading latest cast: %w", err)
	}

	return uc.LastAnalyzedCastHash == nil || *uc.LastAnalyzedCastHash != latest.Hash, nil
}

// NeedsRegeneration decides whether the persona is stale. A missing persona
// always needs one and a missing snapshot can't produce one. Otherwise the
// persona is stale when casts arrived that the snapshot has not seen, or when
// the snapshot was recomputed after the persona was generated, which covers
// counter corrections without new casts.
func (g *Gate) NeedsRegeneration(ctx context.Context, fid int64) (bool, error) {
	persona, err := g.personas.GetLatestByFID(ctx, fid)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading persona: %w", err)
	}

	uc, err := g.contexts.GetByFID(ctx, fid)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("loading context: %w", err)
	}

	if uc.UpdatedAt.After(persona.GeneratedAt) {
		return true, nil
	}
	return g.HasNewActivity(ctx, fid)
}

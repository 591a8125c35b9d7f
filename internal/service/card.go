package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"personacard.app/agent/internal/model"
	"personacard.app/agent/internal/store"
)

const (
	cardListLimit  = 3
	cardLabelRunes = 20
)

// CardView is a card and, when the fid belongs to a registered user, that user.
type CardView struct {
	Card *model.Card
	User *model.PublicUser
}

type CardService interface {
	// Build assembles the card from the latest persona and the current
	// context. ErrNoCard means one of them is missing.
	Build(ctx context.Context, fid int64) (*CardView, error)
}

type cardService struct {
	personas  store.PersonaStore
	contexts  store.ContextStore
	users     store.UserReader
	generator PersonaGenerator
}

func NewCardService(personas store.PersonaStore, contexts store.ContextStore, users store.UserReader, generator PersonaGenerator) CardService {
	return &cardService{
		personas:  personas,
		contexts:  contexts,
		users:     users,
		generator: generator,
	}
}

func (s *cardService) Build(ctx context.Context, fid int64) (*CardView, error) {
	p, err := s.personas.GetLatestByFID(ctx, fid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoCard
	}
	if err != nil {
		return nil, fmt.Errorf("loading persona: %w", err)
	}

	uc, err := s.contexts.GetByFID(ctx, fid)
	if errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "persona exists without context", "fid", fid, "persona_id", p.ID)
		return nil, ErrNoCard
	}
	if err != nil {
		return nil, fmt.Errorf("loading context: %w", err)
	}

	view := &CardView{}
	if s.users != nil {
		user, err := s.users.GetByFID(ctx, fid)
		switch {
		case err == nil:
			view.User = user
		case !errors.Is(err, store.ErrNotFound):
			slog.WarnContext(ctx, "failed to load user for card", "fid", fid, "error", err)
		}
	}

	headline := p.Tagline
	if headline == "" && s.generator != nil {
		headline = s.generator.Headline(ctx, p.PersonaLabels, p.PrimaryTopics, p.Summary)
	}

	card := &model.Card{
		ID:          p.ID,
		FID:         fid,
		Headline:    headline,
		Subheadline: "@fid_" + strconv.FormatInt(fid, 10),
		SummaryLine: firstSentence(p.Summary),
		Badges:      clip(p.PersonaLabels),
		Topics:      clip(p.PrimaryTopics),
		Stats: []model.StatItem{
			{Label: "Casts / 30d", Value: strconv.Itoa(uc.CastsLast30d)},
			{Label: "Avg Likes", Value: strconv.FormatFloat(uc.AvgLikesPerCast, 'f', 1, 64)},
			{Label: "Followers", Value: strconv.Itoa(uc.FollowerCount)},
		},
		FeaturedCasts:   firstN(p.FeaturedCasts, cardListLimit),
		Tone:            p.Tone,
		ActivityPattern: string(uc.ActivityPattern),
		ActiveSince:     uc.ActiveSince,
		ConfidenceScore: p.ConfidenceScore,
		GeneratedAt:     p.GeneratedAt.UTC().Format(time.RFC3339Nano),
	}
	if view.User != nil && view.User.FarcasterPfpURL != nil && *view.User.FarcasterPfpURL != "" {
		card.PfpURL = view.User.FarcasterPfpURL
	}
	view.Card = card
	return view, nil
}

func firstSentence(summary string) string {
	if summary == "" {
		return ""
	}
	head, _, _ := strings.Cut(summary, ".")
	return head + "."
}

// clip keeps the first three labels, each cut to twenty runes.
func clip(labels []string) []string {
	labels = firstN(labels, cardListLimit)
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = truncateRunes(l, cardLabelRunes)
	}
	return out
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	return append([]T{}, items...)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

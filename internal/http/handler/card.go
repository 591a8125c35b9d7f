package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"personacard.app/agent/internal/http/dto"
	"personacard.app/agent/internal/service"
)

type CardHandler struct {
	cards   service.CardService
	persona service.PersonaService
}

func NewCardHandler(cards service.CardService, persona service.PersonaService) *CardHandler {
	return &CardHandler{cards: cards, persona: persona}
}

// Latest returns the current card. With regenerate=true a persona is
// generated first; a failed generation falls back to the previous card.
func (h *CardHandler) Latest(c *gin.Context) {
	ctx := c.Request.Context()
	fid, ok := parseFID(c)
	if !ok {
		return
	}

	if c.Query("regenerate") == "true" {
		slog.InfoContext(ctx, "on-demand persona regeneration", "fid", fid)
		if _, err := h.persona.Generate(ctx, fid); err != nil {
			slog.WarnContext(ctx, "regeneration failed, serving previous card", "fid", fid, "error", err)
		}
	}

	view, err := h.cards.Build(ctx, fid)
	if errors.Is(err, service.ErrNoCard) {
		c.JSON(http.StatusOK, dto.CardResponse{Message: dto.NoCardMessage})
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to build card", "fid", fid, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, dto.CardResponse{Card: view.Card, User: dto.ToCardUser(view.User)})
}

func (h *CardHandler) Generate(c *gin.Context) {
	fid, ok := parseFID(c)
	if !ok {
		return
	}

	res, err := h.persona.Generate(c.Request.Context(), fid)
	if err != nil {
		writeRunError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.GeneratePersonaResponse{
		Status:    "success",
		PersonaID: res.PersonaID,
		Message:   "Persona generated successfully.",
	})
}

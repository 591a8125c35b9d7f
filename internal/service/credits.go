package service

import "personacard.app/agent/internal/credits"

type CreditsService interface {
	Status() credits.Status
}

func NewCreditsService(tracker *credits.Tracker) CreditsService {
	return tracker
}

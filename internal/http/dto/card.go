package dto

import (
	"personacard.app/agent/internal/model"
)

const NoCardMessage = "No card data found. Call POST /api/admin/users/:fid/full-pipeline first."

type CardUser struct {
	FID           *int64  `json:"fid"`
	WalletAddress *string `json:"wallet_address"`
	AvatarURL     *string `json:"avatar_url"`
}

type CardResponse struct {
	Card    *model.Card `json:"card"`
	User    *CardUser   `json:"user"`
	Message string      `json:"message,omitempty"`
}

func ToCardUser(u *model.PublicUser) *CardUser {
	if u == nil {
		return nil
	}
	return &CardUser{
		FID:           u.FID,
		WalletAddress: u.WalletAddress,
		AvatarURL:     u.FarcasterPfpURL,
	}
}

type GeneratePersonaResponse struct {
	Status    string `json:"status"`
	PersonaID int64  `json:"persona_id"`
	Message   string `json:"message,omitempty"`
}

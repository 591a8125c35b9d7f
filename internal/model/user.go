package model

import "time"

// PublicUser is a row of the application-owned users table. This service
// never writes it.
type PublicUser struct {
	ID              int64     `json:"id"`
	FID             *int64    `json:"fid,omitempty"`
	Role            string    `json:"role"`
	Username        *string   `json:"username,omitempty"`
	DisplayName     *string   `json:"display_name,omitempty"`
	WalletAddress   *string   `json:"wallet_address,omitempty"`
	FarcasterPfpURL *string   `json:"farcaster_pfp_url,omitempty"`
	TotalPoints     int       `json:"total_points"`
	CreatedAt       time.Time `json:"created_at"`
}

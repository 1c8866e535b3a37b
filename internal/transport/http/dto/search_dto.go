package dto

import "time"

type SearchStatusResponse struct {
	State      string     `json:"state"`
	SessionID  string     `json:"session_id,omitempty"`
	PartnerID  string     `json:"partner_id,omitempty"`
	EnqueuedAt *time.Time `json:"enqueued_at,omitempty"`
}

type CancelSearchResponse struct {
	OK bool `json:"ok"`
}

type EndSessionResponse struct {
	OK bool `json:"ok"`
}

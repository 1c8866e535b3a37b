package dto

import "time"

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsPrivate   bool   `json:"is_private,omitempty"`
}

type RoomResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatorID   string    `json:"creator_id"`
	IsPrivate   bool      `json:"is_private"`
	InviteCode  string    `json:"invite_code,omitempty"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

type JoinByCodeRequest struct {
	InviteCode string `json:"invite_code"`
}

type ConfessionRequest struct {
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
}

type ConfessionResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

type ConfessionListResponse struct {
	Confessions []ConfessionResponse `json:"confessions"`
}

type ConfessionReactionRequest struct {
	Kind string `json:"kind"`
}

type ConfessionReactionResponse struct {
	ConfessionID string `json:"confession_id"`
	Kind         string `json:"kind"`
}

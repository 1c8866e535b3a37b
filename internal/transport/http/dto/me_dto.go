package dto

import "time"

type ProfileResponse struct {
	AccountID         string    `json:"account_id"`
	Credits           int64     `json:"credits"`
	IsVerified        bool      `json:"is_verified"`
	IsBanned          bool      `json:"is_banned"`
	DaysWithoutReport int       `json:"days_without_report"`
	TotalLikes        int       `json:"total_likes"`
	TotalDislikes     int       `json:"total_dislikes"`
	TotalComments     int       `json:"total_comments"`
	VerificationReady bool      `json:"verification_ready"`
	CreatedAt         time.Time `json:"created_at"`
}

type TransactionResponse struct {
	ID            string    `json:"id"`
	Delta         int64     `json:"delta"`
	Reason        string    `json:"reason"`
	Kind          string    `json:"kind"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type BalanceResponse struct {
	AccountID    string                `json:"account_id"`
	Credits      int64                 `json:"credits"`
	Transactions []TransactionResponse `json:"transactions,omitempty"`
}

type AdRewardRequest struct {
	ImpressionID string `json:"impression_id"`
}

type AdRewardResponse struct {
	Awarded    int64 `json:"awarded"`
	NewBalance int64 `json:"new_balance"`
	Duplicate  bool  `json:"duplicate"`
}

type VerificationResponse struct {
	Verified        bool  `json:"verified"`
	AlreadyVerified bool  `json:"already_verified"`
	BonusAwarded    int64 `json:"bonus_awarded"`
	NewBalance      int64 `json:"new_balance"`
}

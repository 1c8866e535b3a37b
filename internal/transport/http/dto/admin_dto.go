package dto

type GrantCreditsRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	GrantID   string `json:"grant_id"`
}

type GrantCreditsResponse struct {
	AccountID  string `json:"account_id"`
	Amount     int64  `json:"amount"`
	NewBalance int64  `json:"new_balance"`
	Duplicate  bool   `json:"duplicate"`
}

package dto

import "time"

type FileReportRequest struct {
	TargetType        string `json:"target_type"`
	TargetID          string `json:"target_id"`
	ReportedAccountID string `json:"reported_account_id,omitempty"`
	Reason            string `json:"reason"`
	Description       string `json:"description,omitempty"`
}

type ReportResponse struct {
	ID                string    `json:"id"`
	TargetType        string    `json:"target_type"`
	TargetID          string    `json:"target_id"`
	ReportedAccountID *string   `json:"reported_account_id,omitempty"`
	Reason            string    `json:"reason"`
	Description       string    `json:"description,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type ResolveReportRequest struct {
	Outcome string `json:"outcome"`
}

type ResolveReportResponse struct {
	ReportID        string `json:"report_id"`
	Outcome         string `json:"outcome"`
	BannedAccountID string `json:"banned_account_id,omitempty"`
}

type PendingReportsResponse struct {
	Reports []ReportResponse `json:"reports"`
}

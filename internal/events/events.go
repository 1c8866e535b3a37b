// Package events defines the outcome events the core emits for the UI layer
// and external consumers: matches, session terminations, moderation
// resolutions, bans and balance changes.
package events

import "github.com/zwakele57/chat-v2/internal/domain/enums"

type Kind string

const (
	KindMatched        Kind = "matched"
	KindSessionEnded   Kind = "session_ended"
	KindReportResolved Kind = "report_resolved"
	KindAccountBanned  Kind = "account_banned"
	KindBalanceChanged Kind = "balance_changed"
)

// Event is implemented by every domain event payload.
type Event interface {
	EventKind() Kind
}

type Matched struct {
	SessionID    string   `json:"session_id"`
	Participants []string `json:"participants"`
}

func (Matched) EventKind() Kind { return KindMatched }

type SessionEnded struct {
	SessionID    string                 `json:"session_id"`
	Reason       enums.SessionEndReason `json:"reason"`
	Participants []string               `json:"participants"`
}

func (SessionEnded) EventKind() Kind { return KindSessionEnded }

type ReportResolved struct {
	ReportID string               `json:"report_id"`
	Outcome  enums.ResolveOutcome `json:"outcome"`
}

func (ReportResolved) EventKind() Kind { return KindReportResolved }

type AccountBanned struct {
	AccountID string `json:"account_id"`
	Reason    string `json:"reason"`
}

func (AccountBanned) EventKind() Kind { return KindAccountBanned }

type BalanceChanged struct {
	AccountID  string             `json:"account_id"`
	NewBalance int64              `json:"new_balance"`
	Delta      int64              `json:"delta"`
	Reason     enums.CreditReason `json:"reason"`
}

func (BalanceChanged) EventKind() Kind { return KindBalanceChanged }

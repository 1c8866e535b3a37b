package enums

import "strings"

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "pending"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// ReportTargetType says what a report points at: a confession, a single
// message, a user or a chat room.
type ReportTargetType string

const (
	TargetConfession ReportTargetType = "confession"
	TargetMessage    ReportTargetType = "message"
	TargetUser       ReportTargetType = "user"
	TargetChatRoom   ReportTargetType = "chat_room"
)

func (t ReportTargetType) Valid() bool {
	switch t {
	case TargetConfession, TargetMessage, TargetUser, TargetChatRoom:
		return true
	default:
		return false
	}
}

func ParseReportTargetType(input string) (ReportTargetType, bool) {
	switch ReportTargetType(strings.ToLower(strings.TrimSpace(input))) {
	case TargetConfession:
		return TargetConfession, true
	case TargetMessage:
		return TargetMessage, true
	case TargetUser:
		return TargetUser, true
	case TargetChatRoom:
		return TargetChatRoom, true
	default:
		return "", false
	}
}

// ResolveOutcome is the terminal decision applied to a pending report.
type ResolveOutcome string

const (
	OutcomeBan     ResolveOutcome = "ban"
	OutcomeDismiss ResolveOutcome = "dismiss"
)

func ParseResolveOutcome(input string) (ResolveOutcome, bool) {
	switch ResolveOutcome(strings.ToLower(strings.TrimSpace(input))) {
	case OutcomeBan:
		return OutcomeBan, true
	case OutcomeDismiss:
		return OutcomeDismiss, true
	default:
		return "", false
	}
}

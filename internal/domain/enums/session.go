package enums

// SessionState is the lifecycle of a random-chat pairing. A session is
// created directly in Chatting (no explicit acknowledgment step) and the
// only further transition is to Ended, which is terminal.
type SessionState string

const (
	SessionChatting SessionState = "chatting"
	SessionEnded    SessionState = "ended"
)

// SessionEndReason explains why a session reached Ended. The reason is
// carried on SessionEnded events so the partner's client can render the
// right message.
type SessionEndReason string

const (
	EndPartnerLeft    SessionEndReason = "partner_left"
	EndPartnerSkipped SessionEndReason = "partner_skipped"
	EndPartnerBanned  SessionEndReason = "partner_banned"
)

package enums

// CreditReason classifies every entry in the credit transaction log.
type CreditReason string

const (
	ReasonAdPayout          CreditReason = "ad_payout"
	ReasonSearchFee         CreditReason = "search_fee"
	ReasonSkipFee           CreditReason = "skip_fee"
	ReasonRefund            CreditReason = "refund"
	ReasonRoomCreationFee   CreditReason = "room_creation_fee"
	ReasonVerificationBonus CreditReason = "verification_bonus"
	ReasonAdminGrant        CreditReason = "admin_grant"
)

func (r CreditReason) Valid() bool {
	switch r {
	case ReasonAdPayout, ReasonSearchFee, ReasonSkipFee, ReasonRefund,
		ReasonRoomCreationFee, ReasonVerificationBonus, ReasonAdminGrant:
		return true
	default:
		return false
	}
}

package rules

// Credit prices and payouts, in whole credits. Config may override the fees.
const (
	SearchFee       = 10
	SkipFee         = 5
	RoomCreationFee = 50
	AdRewardAmount  = 5

	VerificationBonus = 50
)

// Verification thresholds: an account qualifies after a clean month and a
// track record of positive engagement.
const (
	VerificationMinCleanDays = 30
	VerificationMinLikes     = 100
)

func QualifiesForVerification(daysWithoutReport, totalLikes int) bool {
	return daysWithoutReport >= VerificationMinCleanDays && totalLikes > VerificationMinLikes
}

// Package membership covers the account profile surface: who the caller is,
// their ad reward payouts, and the verified badge.
package membership

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	"github.com/zwakele57/chat-v2/internal/domain/rules"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("account not found")
	ErrNotEligible = errors.New("account does not qualify for verification")
)

type AccountStore interface {
	Ensure(ctx context.Context, accountID string) error
	Get(ctx context.Context, accountID string) (pgrepo.AccountRecord, error)
	SetVerified(ctx context.Context, accountID string) (bool, error)
	AddEngagement(ctx context.Context, accountID, kind string) error
	AdvanceCleanStreaks(ctx context.Context) (int64, error)
}

type Ledger interface {
	Credit(ctx context.Context, accountID string, amount int64, reason enums.CreditReason, correlationID string) (ledgersvc.MoveResult, error)
}

type Service struct {
	accounts          AccountStore
	ledger            Ledger
	adRewardAmount    int64
	verificationBonus int64
	now               func() time.Time
}

type Dependencies struct {
	Accounts          AccountStore
	Ledger            Ledger
	AdRewardAmount    int64
	VerificationBonus int64
}

func NewService(deps Dependencies) *Service {
	adReward := deps.AdRewardAmount
	if adReward <= 0 {
		adReward = rules.AdRewardAmount
	}
	bonus := deps.VerificationBonus
	if bonus <= 0 {
		bonus = rules.VerificationBonus
	}

	return &Service{
		accounts:          deps.Accounts,
		ledger:            deps.Ledger,
		adRewardAmount:    adReward,
		verificationBonus: bonus,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

type Profile struct {
	AccountID         string
	Credits           int64
	IsVerified        bool
	IsBanned          bool
	DaysWithoutReport int
	TotalLikes        int
	TotalDislikes     int
	TotalComments     int
	VerificationReady bool
	CreatedAt         time.Time
}

func (s *Service) Ensure(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if s.accounts == nil {
		return fmt.Errorf("membership account store is not configured")
	}
	return s.accounts.Ensure(ctx, accountID)
}

func (s *Service) Profile(ctx context.Context, accountID string) (Profile, error) {
	if strings.TrimSpace(accountID) == "" {
		return Profile{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if s.accounts == nil {
		return Profile{}, fmt.Errorf("membership account store is not configured")
	}

	rec, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}

	return Profile{
		AccountID:         rec.ID,
		Credits:           rec.Credits,
		IsVerified:        rec.IsVerified,
		IsBanned:          rec.IsBanned,
		DaysWithoutReport: rec.DaysWithoutReport,
		TotalLikes:        rec.TotalLikes,
		TotalDislikes:     rec.TotalDislikes,
		TotalComments:     rec.TotalComments,
		VerificationReady: !rec.IsVerified && rules.QualifiesForVerification(rec.DaysWithoutReport, rec.TotalLikes),
		CreatedAt:         rec.CreatedAt,
	}, nil
}

// RecordEngagement counts one reaction landing on the account's content.
// Likes feed the verification rule, so content entities report them here.
func (s *Service) RecordEngagement(ctx context.Context, accountID string, kind enums.EngagementKind) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown engagement kind %q", ErrValidation, kind)
	}
	if s.accounts == nil {
		return fmt.Errorf("membership account store is not configured")
	}

	if err := s.accounts.Ensure(ctx, accountID); err != nil {
		return err
	}
	return s.accounts.AddEngagement(ctx, accountID, string(kind))
}

// AdvanceCleanStreaks gives every unbanned account one more clean day. The
// streak job drives it; repeats within a day do not double count.
func (s *Service) AdvanceCleanStreaks(ctx context.Context) (int64, error) {
	if s.accounts == nil {
		return 0, fmt.Errorf("membership account store is not configured")
	}
	return s.accounts.AdvanceCleanStreaks(ctx)
}

type AdRewardResult struct {
	Amount     int64
	NewBalance int64
	// Duplicate is true when this impression was already paid out.
	Duplicate bool
}

// RecordAdReward pays out one watched ad. The impression id keys the ledger
// credit, so replayed callbacks for the same impression pay once.
func (s *Service) RecordAdReward(ctx context.Context, accountID, impressionID string) (AdRewardResult, error) {
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(impressionID) == "" {
		return AdRewardResult{}, fmt.Errorf("%w: account id and impression id are required", ErrValidation)
	}
	if s.accounts == nil || s.ledger == nil {
		return AdRewardResult{}, fmt.Errorf("membership service dependencies are not configured")
	}

	if err := s.accounts.Ensure(ctx, accountID); err != nil {
		return AdRewardResult{}, err
	}

	move, err := s.ledger.Credit(ctx, accountID, s.adRewardAmount, enums.ReasonAdPayout, "ad:"+impressionID)
	if err != nil {
		if errors.Is(err, ledgersvc.ErrAccountNotFound) {
			return AdRewardResult{}, ErrNotFound
		}
		return AdRewardResult{}, err
	}

	return AdRewardResult{
		Amount:     move.Amount,
		NewBalance: move.NewBalance,
		Duplicate:  move.Idempotent,
	}, nil
}

type VerificationResult struct {
	Verified        bool
	AlreadyVerified bool
	BonusAwarded    int64
	NewBalance      int64
}

// ClaimVerification grants the badge when the account has stayed clean long
// enough and collected enough likes. The badge flip and the bonus credit are
// each one-shot, so a double claim neither re-awards nor errors.
func (s *Service) ClaimVerification(ctx context.Context, accountID string) (VerificationResult, error) {
	if strings.TrimSpace(accountID) == "" {
		return VerificationResult{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if s.accounts == nil || s.ledger == nil {
		return VerificationResult{}, fmt.Errorf("membership service dependencies are not configured")
	}

	rec, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrAccountNotFound) {
			return VerificationResult{}, ErrNotFound
		}
		return VerificationResult{}, err
	}

	if rec.IsVerified {
		return VerificationResult{Verified: true, AlreadyVerified: true, NewBalance: rec.Credits}, nil
	}
	if !rules.QualifiesForVerification(rec.DaysWithoutReport, rec.TotalLikes) {
		return VerificationResult{}, ErrNotEligible
	}

	newly, err := s.accounts.SetVerified(ctx, accountID)
	if err != nil {
		return VerificationResult{}, err
	}
	if !newly {
		return VerificationResult{Verified: true, AlreadyVerified: true, NewBalance: rec.Credits}, nil
	}

	move, err := s.ledger.Credit(ctx, accountID, s.verificationBonus, enums.ReasonVerificationBonus, "verify:"+accountID)
	if err != nil {
		return VerificationResult{}, err
	}

	return VerificationResult{
		Verified:     true,
		BonusAwarded: move.Amount,
		NewBalance:   move.NewBalance,
	}, nil
}

// Package moderation handles abuse reports and their resolution. Filing is
// rate limited per reporter; resolving a report is one-shot and a ban
// outcome cascades into the offender's live chat state.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	"github.com/zwakele57/chat-v2/internal/events"
	"github.com/zwakele57/chat-v2/internal/metrics"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
)

const reportRateWindow = 10 * time.Minute

var (
	ErrValidation      = errors.New("validation error")
	ErrRateLimited     = errors.New("report rate limit exceeded")
	ErrReportNotFound  = errors.New("report not found")
	ErrAlreadyResolved = errors.New("report already resolved")
	ErrBanned          = errors.New("account is banned")
	ErrSelfReport      = errors.New("cannot report yourself")
	ErrNoBanTarget     = errors.New("report has no account to ban")
)

// RateLimitError carries how long the reporter's current window has left.
// It matches ErrRateLimited under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("report rate limit exceeded, retry in %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

type ReportStore interface {
	Create(ctx context.Context, rec pgrepo.ReportRecord) error
	GetByID(ctx context.Context, reportID string) (pgrepo.ReportRecord, error)
	ListPending(ctx context.Context, limit int) ([]pgrepo.ReportRecord, error)
	MarkResolved(ctx context.Context, tx pgx.Tx, reportID, status string) (bool, error)
}

type AccountStore interface {
	IsBanned(ctx context.Context, accountID string) (bool, error)
	SetBanned(ctx context.Context, tx pgx.Tx, accountID string) error
	ResetReportStreak(ctx context.Context, tx pgx.Tx, accountID string) error
}

type BanStore interface {
	Create(ctx context.Context, tx pgx.Tx, rec pgrepo.BanRecord) error
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type RateLimiter interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Matchmaker interface {
	ForceEndActiveByAccount(ctx context.Context, accountID string) error
}

type Publisher interface {
	Publish(event events.Event)
}

type Service struct {
	reports    ReportStore
	accounts   AccountStore
	bans       BanStore
	txRunner   TxRunner
	rate       RateLimiter
	matchmaker Matchmaker
	bus        Publisher
	maxReports int
	logger     *zap.Logger
	now        func() time.Time
}

type Dependencies struct {
	Reports    ReportStore
	Accounts   AccountStore
	Bans       BanStore
	TxRunner   TxRunner
	Rate       RateLimiter
	Matchmaker Matchmaker
	Bus        Publisher
	MaxReports int
	Logger     *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxReports := deps.MaxReports
	if maxReports <= 0 {
		maxReports = 3
	}

	return &Service{
		reports:    deps.Reports,
		accounts:   deps.Accounts,
		bans:       deps.Bans,
		txRunner:   deps.TxRunner,
		rate:       deps.Rate,
		matchmaker: deps.Matchmaker,
		bus:        deps.Bus,
		maxReports: maxReports,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type FileReportInput struct {
	ReporterID  string
	TargetType  enums.ReportTargetType
	TargetID    string
	// ReportedAccountID names the account behind the content. Optional for
	// content targets, ignored for user targets where TargetID wins.
	ReportedAccountID string
	Reason            string
	Description       string
}

// FileReport records an abuse report. The redis counter is the only gate;
// when it cannot be read the report is rejected rather than let a spammer
// ride out a redis outage.
func (s *Service) FileReport(ctx context.Context, input FileReportInput) (pgrepo.ReportRecord, error) {
	if strings.TrimSpace(input.ReporterID) == "" || strings.TrimSpace(input.TargetID) == "" {
		return pgrepo.ReportRecord{}, fmt.Errorf("%w: reporter and target are required", ErrValidation)
	}
	if !input.TargetType.Valid() {
		return pgrepo.ReportRecord{}, fmt.Errorf("%w: unknown target type %q", ErrValidation, input.TargetType)
	}
	if strings.TrimSpace(input.Reason) == "" {
		return pgrepo.ReportRecord{}, fmt.Errorf("%w: reason is required", ErrValidation)
	}

	reportedAccountID := strings.TrimSpace(input.ReportedAccountID)
	if input.TargetType == enums.TargetUser {
		reportedAccountID = input.TargetID
	}
	if reportedAccountID == input.ReporterID {
		return pgrepo.ReportRecord{}, ErrSelfReport
	}

	banned, err := s.accounts.IsBanned(ctx, input.ReporterID)
	if err != nil {
		return pgrepo.ReportRecord{}, err
	}
	if banned {
		return pgrepo.ReportRecord{}, ErrBanned
	}

	count, retryAfter, err := s.rate.IncrementWindow(ctx, "report:rl:"+input.ReporterID, reportRateWindow)
	if err != nil {
		return pgrepo.ReportRecord{}, fmt.Errorf("report rate limiter unavailable: %w", err)
	}
	if count > int64(s.maxReports) {
		return pgrepo.ReportRecord{}, &RateLimitError{RetryAfter: retryAfter}
	}

	rec := pgrepo.ReportRecord{
		ID:          uuid.NewString(),
		ReporterID:  input.ReporterID,
		TargetType:  string(input.TargetType),
		TargetID:    input.TargetID,
		Reason:      strings.TrimSpace(input.Reason),
		Description: strings.TrimSpace(input.Description),
		Status:      string(enums.ReportStatusPending),
	}
	if reportedAccountID != "" {
		rec.ReportedAccountID = &reportedAccountID
	}

	if err := s.reports.Create(ctx, rec); err != nil {
		return pgrepo.ReportRecord{}, err
	}

	// A fresh report against a known account interrupts its clean streak, so
	// the verification clock starts over.
	if rec.ReportedAccountID != nil {
		err = s.txRunner.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
			return s.accounts.ResetReportStreak(txCtx, tx, reportedAccountID)
		})
		if err != nil {
			return pgrepo.ReportRecord{}, fmt.Errorf("reset report streak: %w", err)
		}
	}

	metrics.ReportsFiledTotal.Inc()
	return rec, nil
}

func (s *Service) GetReport(ctx context.Context, reportID string) (pgrepo.ReportRecord, error) {
	rec, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			return pgrepo.ReportRecord{}, ErrReportNotFound
		}
		return pgrepo.ReportRecord{}, err
	}
	return rec, nil
}

func (s *Service) ListPending(ctx context.Context, limit int) ([]pgrepo.ReportRecord, error) {
	return s.reports.ListPending(ctx, limit)
}

type ResolveResult struct {
	ReportID        string
	Outcome         enums.ResolveOutcome
	BannedAccountID string
}

// Resolve closes a pending report. A ban outcome flags the offender, records
// the ban, resets their clean streak, and then tears down their live chat
// state with the partner's fee refunded. Resolution is one-shot: a second
// resolver gets ErrAlreadyResolved regardless of outcome.
func (s *Service) Resolve(ctx context.Context, reportID string, outcome enums.ResolveOutcome) (ResolveResult, error) {
	if strings.TrimSpace(reportID) == "" {
		return ResolveResult{}, fmt.Errorf("%w: report id is required", ErrValidation)
	}

	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			return ResolveResult{}, ErrReportNotFound
		}
		return ResolveResult{}, err
	}

	var bannedAccountID string
	switch outcome {
	case enums.OutcomeDismiss:
		err = s.txRunner.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
			resolved, err := s.reports.MarkResolved(txCtx, tx, reportID, string(enums.ReportStatusDismissed))
			if err != nil {
				return err
			}
			if !resolved {
				return ErrAlreadyResolved
			}
			return nil
		})
	case enums.OutcomeBan:
		if report.ReportedAccountID == nil || strings.TrimSpace(*report.ReportedAccountID) == "" {
			return ResolveResult{}, ErrNoBanTarget
		}
		bannedAccountID = *report.ReportedAccountID

		err = s.txRunner.WithTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
			resolved, err := s.reports.MarkResolved(txCtx, tx, reportID, string(enums.ReportStatusResolved))
			if err != nil {
				return err
			}
			if !resolved {
				return ErrAlreadyResolved
			}
			if err := s.accounts.SetBanned(txCtx, tx, bannedAccountID); err != nil {
				return err
			}
			if err := s.accounts.ResetReportStreak(txCtx, tx, bannedAccountID); err != nil {
				return err
			}
			return s.bans.Create(txCtx, tx, pgrepo.BanRecord{
				ID:             uuid.NewString(),
				AccountID:      bannedAccountID,
				Reason:         report.Reason,
				SourceReportID: reportID,
			})
		})
	default:
		return ResolveResult{}, fmt.Errorf("%w: unknown outcome %q", ErrValidation, outcome)
	}
	if err != nil {
		return ResolveResult{}, err
	}

	metrics.ReportsResolvedTotal.WithLabelValues(string(outcome)).Inc()
	if s.bus != nil {
		s.bus.Publish(events.ReportResolved{ReportID: reportID, Outcome: outcome})
	}

	if outcome == enums.OutcomeBan {
		if s.bus != nil {
			s.bus.Publish(events.AccountBanned{AccountID: bannedAccountID, Reason: report.Reason})
		}
		if s.matchmaker != nil {
			if err := s.matchmaker.ForceEndActiveByAccount(ctx, bannedAccountID); err != nil {
				// The ban itself is committed; the live-state teardown can be
				// retried by the stale-ticket sweeper or the next command.
				s.logger.Error("tear down banned account chat state",
					zap.String("account_id", bannedAccountID),
					zap.Error(err))
			}
		}
	}

	return ResolveResult{ReportID: reportID, Outcome: outcome, BannedAccountID: bannedAccountID}, nil
}

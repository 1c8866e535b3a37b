// Package matchmaking runs the random-chat engine: paid search tickets wait
// in a redis queue, a background loop pairs the two oldest compatible
// entries, and the resulting session lives in postgres until one side ends
// it.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	"github.com/zwakele57/chat-v2/internal/events"
	"github.com/zwakele57/chat-v2/internal/metrics"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
	redisrepo "github.com/zwakele57/chat-v2/internal/repo/redis"
	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
)

const (
	StateIdle      = "idle"
	StateSearching = "searching"
	StateChatting  = "chatting"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrBanned           = errors.New("account is banned")
	ErrAlreadyInSession = errors.New("account already has an active session")
	ErrNotSearching     = errors.New("account is not searching")
	ErrNoActiveSession  = errors.New("account has no active session")
	ErrSessionNotFound  = errors.New("match session not found")
)

type Queue interface {
	Enqueue(ctx context.Context, rec redisrepo.TicketRecord) error
	Get(ctx context.Context, accountID string) (redisrepo.TicketRecord, error)
	Remove(ctx context.Context, accountID string) (redisrepo.TicketRecord, error)
	Oldest(ctx context.Context, n int) ([]string, error)
	Size(ctx context.Context) (int64, error)
	StaleBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

type Pairs interface {
	MarkPaired(ctx context.Context, a, b string, ttl time.Duration) error
	RecentlyPaired(ctx context.Context, a, b string) (bool, error)
}

type SessionStore interface {
	Create(ctx context.Context, rec pgrepo.MatchSessionRecord) error
	Get(ctx context.Context, sessionID string) (pgrepo.MatchSessionRecord, error)
	ActiveByAccount(ctx context.Context, accountID string) (pgrepo.MatchSessionRecord, error)
	End(ctx context.Context, sessionID, reason string) (bool, error)
}

type AccountStore interface {
	IsBanned(ctx context.Context, accountID string) (bool, error)
}

type Ledger interface {
	Debit(ctx context.Context, accountID string, amount int64, reason enums.CreditReason, correlationID string) (ledgersvc.MoveResult, error)
	Refund(ctx context.Context, correlationID string) (ledgersvc.MoveResult, error)
}

type Publisher interface {
	Publish(event events.Event)
}

type Config struct {
	SearchFee    int64
	SkipFee      int64
	PairInterval time.Duration
	PairCooldown time.Duration
	TicketTTL    time.Duration
}

type Service struct {
	queue    Queue
	pairs    Pairs
	sessions SessionStore
	accounts AccountStore
	ledger   Ledger
	bus      Publisher
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time

	locks accountLocks
	wake  chan struct{}
}

type Dependencies struct {
	Queue    Queue
	Pairs    Pairs
	Sessions SessionStore
	Accounts AccountStore
	Ledger   Ledger
	Bus      Publisher
	Config   Config
	Logger   *zap.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.PairInterval <= 0 {
		cfg.PairInterval = 2 * time.Second
	}

	return &Service{
		queue:    deps.Queue,
		pairs:    deps.Pairs,
		sessions: deps.Sessions,
		accounts: deps.Accounts,
		ledger:   deps.Ledger,
		bus:      deps.Bus,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		locks:    accountLocks{held: map[string]*sync.Mutex{}},
		wake:     make(chan struct{}, 1),
	}
}

type Status struct {
	State      string
	SessionID  string
	PartnerID  string
	EnqueuedAt *time.Time
}

// StartSearch charges the search fee and puts the account into the waiting
// pool. Calling it while already waiting is a no-op that does not charge
// again.
func (s *Service) StartSearch(ctx context.Context, accountID string) (Status, error) {
	if strings.TrimSpace(accountID) == "" {
		return Status{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	banned, err := s.accounts.IsBanned(ctx, accountID)
	if err != nil {
		return Status{}, err
	}
	if banned {
		return Status{}, ErrBanned
	}

	if _, err := s.sessions.ActiveByAccount(ctx, accountID); err == nil {
		return Status{}, ErrAlreadyInSession
	} else if !errors.Is(err, pgrepo.ErrSessionNotFound) {
		return Status{}, err
	}

	if existing, err := s.queue.Get(ctx, accountID); err == nil {
		enqueuedAt := existing.EnqueuedAt
		return Status{State: StateSearching, EnqueuedAt: &enqueuedAt}, nil
	} else if !errors.Is(err, redisrepo.ErrTicketNotFound) {
		return Status{}, err
	}

	ticketID := uuid.NewString()
	if _, err := s.ledger.Debit(ctx, accountID, s.cfg.SearchFee, enums.ReasonSearchFee, ticketID); err != nil {
		return Status{}, err
	}

	enqueuedAt := s.now()
	rec := redisrepo.TicketRecord{
		TicketID:   ticketID,
		AccountID:  accountID,
		FeeTxID:    ticketID,
		EnqueuedAt: enqueuedAt,
	}
	if err := s.queue.Enqueue(ctx, rec); err != nil {
		// The fee is already taken; hand it back rather than leaving the
		// account charged for a ticket that never entered the pool.
		if _, refundErr := s.ledger.Refund(ctx, ticketID); refundErr != nil {
			s.logger.Error("refund after failed enqueue",
				zap.String("account_id", accountID),
				zap.String("ticket_id", ticketID),
				zap.Error(refundErr))
		}
		return Status{}, err
	}

	metrics.SearchesTotal.Inc()
	s.updateQueueGauge(ctx)
	s.kick()

	return Status{State: StateSearching, EnqueuedAt: &enqueuedAt}, nil
}

// CancelSearch removes the waiting ticket and refunds its fee.
func (s *Service) CancelSearch(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	rec, err := s.queue.Remove(ctx, accountID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrTicketNotFound) {
			return ErrNotSearching
		}
		return err
	}

	if _, err := s.ledger.Refund(ctx, rec.FeeTxID); err != nil {
		return err
	}

	s.updateQueueGauge(ctx)
	return nil
}

func (s *Service) Status(ctx context.Context, accountID string) (Status, error) {
	if strings.TrimSpace(accountID) == "" {
		return Status{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	if session, err := s.sessions.ActiveByAccount(ctx, accountID); err == nil {
		return Status{
			State:     StateChatting,
			SessionID: session.ID,
			PartnerID: session.PartnerOf(accountID),
		}, nil
	} else if !errors.Is(err, pgrepo.ErrSessionNotFound) {
		return Status{}, err
	}

	if rec, err := s.queue.Get(ctx, accountID); err == nil {
		enqueuedAt := rec.EnqueuedAt
		return Status{State: StateSearching, EnqueuedAt: &enqueuedAt}, nil
	} else if !errors.Is(err, redisrepo.ErrTicketNotFound) {
		return Status{}, err
	}

	return Status{State: StateIdle}, nil
}

// EndSession ends the caller's active session. The partner simply sees the
// session gone on their next status poll.
func (s *Service) EndSession(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}

	session, err := s.sessions.ActiveByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSessionNotFound) {
			return ErrNoActiveSession
		}
		return err
	}

	s.finishSession(ctx, session, enums.EndPartnerLeft)
	return nil
}

// Skip charges the skip fee, ends the current session, and puts the skipper
// straight back into the waiting pool with a fresh ticket.
func (s *Service) Skip(ctx context.Context, accountID string) (Status, error) {
	if strings.TrimSpace(accountID) == "" {
		return Status{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}

	unlock := s.locks.lock(accountID)
	defer unlock()

	session, err := s.sessions.ActiveByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSessionNotFound) {
			return Status{}, ErrNoActiveSession
		}
		return Status{}, err
	}

	ticketID := uuid.NewString()
	if _, err := s.ledger.Debit(ctx, accountID, s.cfg.SkipFee, enums.ReasonSkipFee, ticketID); err != nil {
		return Status{}, err
	}

	// The partner may have ended the session while the fee was being taken;
	// the skipper still goes back into the pool either way.
	s.finishSession(ctx, session, enums.EndPartnerSkipped)

	enqueuedAt := s.now()
	rec := redisrepo.TicketRecord{
		TicketID:   ticketID,
		AccountID:  accountID,
		FeeTxID:    ticketID,
		EnqueuedAt: enqueuedAt,
	}
	if err := s.queue.Enqueue(ctx, rec); err != nil {
		if _, refundErr := s.ledger.Refund(ctx, ticketID); refundErr != nil {
			s.logger.Error("refund after failed skip enqueue",
				zap.String("account_id", accountID),
				zap.String("ticket_id", ticketID),
				zap.Error(refundErr))
		}
		return Status{}, err
	}

	metrics.SearchesTotal.Inc()
	s.updateQueueGauge(ctx)
	s.kick()

	return Status{State: StateSearching, EnqueuedAt: &enqueuedAt}, nil
}

// ForceEndActiveByAccount tears down whatever the account is doing: an
// active session is ended with the partner refunded, a waiting ticket is
// removed and refunded. Used when moderation bans an account.
func (s *Service) ForceEndActiveByAccount(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("%w: account id is required", ErrValidation)
	}

	session, err := s.sessions.ActiveByAccount(ctx, accountID)
	if err == nil {
		ended := s.finishSession(ctx, session, enums.EndPartnerBanned)
		if ended {
			partner := session.PartnerOf(accountID)
			if ticket := session.TicketOf(partner); ticket != "" {
				if _, err := s.ledger.Refund(ctx, ticket); err != nil {
					return fmt.Errorf("refund partner fee: %w", err)
				}
			}
		}
	} else if !errors.Is(err, pgrepo.ErrSessionNotFound) {
		return err
	}

	rec, err := s.queue.Remove(ctx, accountID)
	if err != nil {
		if errors.Is(err, redisrepo.ErrTicketNotFound) {
			return nil
		}
		return err
	}
	if _, err := s.ledger.Refund(ctx, rec.FeeTxID); err != nil {
		return err
	}
	s.updateQueueGauge(ctx)
	return nil
}

// Run drives the pairing loop until the context is cancelled. A new search
// wakes the loop immediately; the ticker covers entries left behind by races.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PairInterval)
	defer ticker.Stop()

	s.logger.Info("matchmaking loop started", zap.Duration("pair_interval", s.cfg.PairInterval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("matchmaking loop stopped")
			return
		case <-ticker.C:
		case <-s.wake:
		}

		if err := s.processQueue(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("process match queue", zap.Error(err))
		}
	}
}

// processQueue pairs the head of the queue until no compatible pair is left.
func (s *Service) processQueue(ctx context.Context) error {
	for {
		matched, err := s.pairOnce(ctx)
		if err != nil {
			return err
		}
		if !matched {
			return nil
		}
	}
}

const pairScanWidth = 16

func (s *Service) pairOnce(ctx context.Context) (bool, error) {
	head, err := s.queue.Oldest(ctx, pairScanWidth)
	if err != nil {
		return false, err
	}
	if len(head) < 2 {
		return false, nil
	}

	first := head[0]
	for _, candidate := range head[1:] {
		recent, err := s.pairs.RecentlyPaired(ctx, first, candidate)
		if err != nil {
			return false, err
		}
		if recent {
			continue
		}
		return s.createSession(ctx, first, candidate)
	}

	return false, nil
}

func (s *Service) createSession(ctx context.Context, a, b string) (bool, error) {
	ticketA, err := s.queue.Remove(ctx, a)
	if err != nil {
		if errors.Is(err, redisrepo.ErrTicketNotFound) {
			// Remove already cleared the entry from the queue, so report
			// progress and let the caller rescan: the waiters behind it must
			// still pair this pass.
			return true, nil
		}
		return false, err
	}
	ticketB, err := s.queue.Remove(ctx, b)
	if err != nil {
		if errors.Is(err, redisrepo.ErrTicketNotFound) {
			// The candidate vanished mid-pairing; put the first ticket back
			// and rescan against whoever is left.
			if enqueueErr := s.queue.Enqueue(ctx, ticketA); enqueueErr != nil {
				return false, enqueueErr
			}
			return true, nil
		}
		return false, err
	}

	session := pgrepo.MatchSessionRecord{
		ID:           uuid.NewString(),
		ParticipantA: a,
		ParticipantB: b,
		TicketA:      ticketA.FeeTxID,
		TicketB:      ticketB.FeeTxID,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		// Both tickets go back so neither side silently loses their fee.
		if enqueueErr := s.queue.Enqueue(ctx, ticketA); enqueueErr != nil {
			s.logger.Error("re-enqueue after failed session create", zap.String("account_id", a), zap.Error(enqueueErr))
		}
		if enqueueErr := s.queue.Enqueue(ctx, ticketB); enqueueErr != nil {
			s.logger.Error("re-enqueue after failed session create", zap.String("account_id", b), zap.Error(enqueueErr))
		}
		return false, err
	}

	metrics.MatchesTotal.Inc()
	s.updateQueueGauge(ctx)
	if s.bus != nil {
		s.bus.Publish(events.Matched{SessionID: session.ID, Participants: []string{a, b}})
	}

	s.logger.Info("matched",
		zap.String("session_id", session.ID),
		zap.String("participant_a", a),
		zap.String("participant_b", b))
	return true, nil
}

// CleanupStale cancels tickets that waited longer than the TTL, refunding
// each fee. Returns how many tickets were swept.
func (s *Service) CleanupStale(ctx context.Context) (int, error) {
	if s.cfg.TicketTTL <= 0 {
		return 0, nil
	}

	stale, err := s.queue.StaleBefore(ctx, s.now().Add(-s.cfg.TicketTTL))
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, accountID := range stale {
		rec, err := s.queue.Remove(ctx, accountID)
		if err != nil {
			if errors.Is(err, redisrepo.ErrTicketNotFound) {
				continue
			}
			return swept, err
		}
		if _, err := s.ledger.Refund(ctx, rec.FeeTxID); err != nil {
			return swept, err
		}
		swept++
		s.logger.Info("expired search ticket refunded",
			zap.String("account_id", accountID),
			zap.String("ticket_id", rec.TicketID))
	}

	if swept > 0 {
		s.updateQueueGauge(ctx)
	}
	return swept, nil
}

// finishSession applies end-of-session side effects exactly once, no matter
// how many callers race on the same session. Returns true for the winner.
func (s *Service) finishSession(ctx context.Context, session pgrepo.MatchSessionRecord, reason enums.SessionEndReason) bool {
	ended, err := s.sessions.End(ctx, session.ID, string(reason))
	if err != nil {
		s.logger.Error("end match session", zap.String("session_id", session.ID), zap.Error(err))
		return false
	}
	if !ended {
		return false
	}

	if s.cfg.PairCooldown > 0 {
		if err := s.pairs.MarkPaired(ctx, session.ParticipantA, session.ParticipantB, s.cfg.PairCooldown); err != nil {
			s.logger.Warn("mark pair cooldown", zap.String("session_id", session.ID), zap.Error(err))
		}
	}

	metrics.SessionsEndedTotal.WithLabelValues(string(reason)).Inc()
	if s.bus != nil {
		s.bus.Publish(events.SessionEnded{
			SessionID:    session.ID,
			Reason:       reason,
			Participants: []string{session.ParticipantA, session.ParticipantB},
		})
	}
	return true
}

func (s *Service) updateQueueGauge(ctx context.Context) {
	size, err := s.queue.Size(ctx)
	if err != nil {
		return
	}
	metrics.SearchQueueSize.Set(float64(size))
}

// kick wakes the pairing loop without blocking the caller.
func (s *Service) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// accountLocks serializes search commands per account so a double-tap on the
// search button cannot charge twice.
type accountLocks struct {
	mu   sync.Mutex
	held map[string]*sync.Mutex
}

func (l *accountLocks) lock(accountID string) func() {
	l.mu.Lock()
	m, ok := l.held[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.held[accountID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSessionNotFound = errors.New("match session not found")

type MatchSessionRecord struct {
	ID           string
	ParticipantA string
	ParticipantB string
	// TicketA/TicketB are the search tickets that paid for this session.
	// They double as refund correlation ids when a session is force-ended.
	TicketA   string
	TicketB   string
	State     string
	EndReason *string
	CreatedAt time.Time
	EndedAt   *time.Time
}

func (r MatchSessionRecord) Participants() [2]string {
	return [2]string{r.ParticipantA, r.ParticipantB}
}

// PartnerOf returns the other participant, or "" when accountID is not part
// of the session.
func (r MatchSessionRecord) PartnerOf(accountID string) string {
	switch accountID {
	case r.ParticipantA:
		return r.ParticipantB
	case r.ParticipantB:
		return r.ParticipantA
	}
	return ""
}

// TicketOf returns the search ticket the given participant paid with.
func (r MatchSessionRecord) TicketOf(accountID string) string {
	switch accountID {
	case r.ParticipantA:
		return r.TicketA
	case r.ParticipantB:
		return r.TicketB
	}
	return ""
}

type MatchSessionRepo struct {
	pool *pgxpool.Pool
}

func NewMatchSessionRepo(pool *pgxpool.Pool) *MatchSessionRepo {
	return &MatchSessionRepo{pool: pool}
}

// Create inserts a session already in the chatting state. The partial unique
// indexes on active participants reject the insert if either side somehow
// still has a live session, which surfaces as an error to the pairing loop.
func (r *MatchSessionRepo) Create(ctx context.Context, rec MatchSessionRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if rec.ID == "" || rec.ParticipantA == "" || rec.ParticipantB == "" {
		return fmt.Errorf("invalid match session payload")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO match_sessions (id, participant_a, participant_b, ticket_a, ticket_b, state, created_at)
VALUES ($1, $2, $3, $4, $5, 'chatting', NOW())
`, rec.ID, rec.ParticipantA, rec.ParticipantB, rec.TicketA, rec.TicketB); err != nil {
		return fmt.Errorf("create match session: %w", err)
	}
	return nil
}

func (r *MatchSessionRepo) Get(ctx context.Context, sessionID string) (MatchSessionRecord, error) {
	if r.pool == nil {
		return MatchSessionRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanMatchSession(r.pool.QueryRow(ctx, `
SELECT id, participant_a, participant_b, ticket_a, ticket_b, state, end_reason, created_at, ended_at
FROM match_sessions
WHERE id = $1
`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchSessionRecord{}, ErrSessionNotFound
		}
		return MatchSessionRecord{}, fmt.Errorf("get match session: %w", err)
	}
	return rec, nil
}

func (r *MatchSessionRepo) ActiveByAccount(ctx context.Context, accountID string) (MatchSessionRecord, error) {
	if r.pool == nil {
		return MatchSessionRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanMatchSession(r.pool.QueryRow(ctx, `
SELECT id, participant_a, participant_b, ticket_a, ticket_b, state, end_reason, created_at, ended_at
FROM match_sessions
WHERE state <> 'ended' AND (participant_a = $1 OR participant_b = $1)
`, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchSessionRecord{}, ErrSessionNotFound
		}
		return MatchSessionRecord{}, fmt.Errorf("find active session: %w", err)
	}
	return rec, nil
}

// End moves the session to its terminal state. Exactly one caller wins when
// both sides race to end; the loser sees ended=false and must not re-run end
// side effects.
func (r *MatchSessionRepo) End(ctx context.Context, sessionID, reason string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE match_sessions
SET state = 'ended', end_reason = $2, ended_at = NOW()
WHERE id = $1 AND state <> 'ended'
`, sessionID, reason)
	if err != nil {
		return false, fmt.Errorf("end match session: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanMatchSession(row pgx.Row) (MatchSessionRecord, error) {
	var rec MatchSessionRecord
	if err := row.Scan(
		&rec.ID,
		&rec.ParticipantA,
		&rec.ParticipantB,
		&rec.TicketA,
		&rec.TicketB,
		&rec.State,
		&rec.EndReason,
		&rec.CreatedAt,
		&rec.EndedAt,
	); err != nil {
		return MatchSessionRecord{}, err
	}
	return rec, nil
}

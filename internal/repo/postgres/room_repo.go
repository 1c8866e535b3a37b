package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrRoomNotFound = errors.New("chat room not found")

type RoomRecord struct {
	ID          string
	Name        string
	Description string
	CreatorID   string
	IsPrivate   bool
	InviteCode  *string
	MemberCount int
	CreatedAt   time.Time
}

type RoomRepo struct {
	pool *pgxpool.Pool
}

func NewRoomRepo(pool *pgxpool.Pool) *RoomRepo {
	return &RoomRepo{pool: pool}
}

// Create inserts the room and its creator membership in one transaction.
func (r *RoomRepo) Create(ctx context.Context, rec RoomRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if rec.ID == "" || rec.Name == "" || rec.CreatorID == "" {
		return fmt.Errorf("invalid room payload")
	}

	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(txCtx, `
INSERT INTO chat_rooms (id, name, description, creator_id, is_private, invite_code, member_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, NOW())
`, rec.ID, rec.Name, rec.Description, rec.CreatorID, rec.IsPrivate, rec.InviteCode); err != nil {
			return fmt.Errorf("create chat room: %w", err)
		}

		if _, err := tx.Exec(txCtx, `
INSERT INTO room_members (room_id, account_id, joined_at)
VALUES ($1, $2, NOW())
`, rec.ID, rec.CreatorID); err != nil {
			return fmt.Errorf("add creator membership: %w", err)
		}
		return nil
	})
}

func (r *RoomRepo) Get(ctx context.Context, roomID string) (RoomRecord, error) {
	if r.pool == nil {
		return RoomRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanRoom(r.pool.QueryRow(ctx, `
SELECT id, name, description, creator_id, is_private, invite_code, member_count, created_at
FROM chat_rooms
WHERE id = $1
`, roomID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoomRecord{}, ErrRoomNotFound
		}
		return RoomRecord{}, fmt.Errorf("get chat room: %w", err)
	}
	return rec, nil
}

func (r *RoomRepo) GetByInviteCode(ctx context.Context, code string) (RoomRecord, error) {
	if r.pool == nil {
		return RoomRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanRoom(r.pool.QueryRow(ctx, `
SELECT id, name, description, creator_id, is_private, invite_code, member_count, created_at
FROM chat_rooms
WHERE invite_code = $1
`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RoomRecord{}, ErrRoomNotFound
		}
		return RoomRecord{}, fmt.Errorf("get chat room by invite code: %w", err)
	}
	return rec, nil
}

func (r *RoomRepo) ListPublic(ctx context.Context, limit int) ([]RoomRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, name, description, creator_id, is_private, invite_code, member_count, created_at
FROM chat_rooms
WHERE is_private = FALSE
ORDER BY member_count DESC, created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list public rooms: %w", err)
	}
	defer rows.Close()

	var out []RoomRecord
	for rows.Next() {
		rec, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat room: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat rooms: %w", err)
	}
	return out, nil
}

// AddMember joins the account to the room, keeping the cached member count
// in step. Rejoining is a no-op.
func (r *RoomRepo) AddMember(ctx context.Context, roomID, accountID string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	return WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(txCtx, `
INSERT INTO room_members (room_id, account_id, joined_at)
VALUES ($1, $2, NOW())
ON CONFLICT (room_id, account_id) DO NOTHING
`, roomID, accountID)
		if err != nil {
			return fmt.Errorf("add room member: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		if _, err := tx.Exec(txCtx, `
UPDATE chat_rooms SET member_count = member_count + 1 WHERE id = $1
`, roomID); err != nil {
			return fmt.Errorf("bump member count: %w", err)
		}
		return nil
	})
}

func (r *RoomRepo) IsMember(ctx context.Context, roomID, accountID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var member bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND account_id = $2)
`, roomID, accountID).Scan(&member)
	if err != nil {
		return false, fmt.Errorf("check room membership: %w", err)
	}
	return member, nil
}

func scanRoom(row pgx.Row) (RoomRecord, error) {
	var rec RoomRecord
	if err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Description,
		&rec.CreatorID,
		&rec.IsPrivate,
		&rec.InviteCode,
		&rec.MemberCount,
		&rec.CreatedAt,
	); err != nil {
		return RoomRecord{}, err
	}
	return rec, nil
}

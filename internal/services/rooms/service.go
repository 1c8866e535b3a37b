// Package rooms is the access gate for group chat rooms and the confession
// feed. Creating a room costs credits; joining a private room needs its
// invite code; banned accounts can read but not write.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
)

const (
	maxRoomNameLen            = 80
	maxDescriptionLen         = 500
	maxConfessionLen          = 2000
	defaultConfessionCategory = "general"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrBanned             = errors.New("account is banned")
	ErrRoomNotFound       = errors.New("chat room not found")
	ErrConfessionNotFound = errors.New("confession not found")
	ErrPrivateRoom        = errors.New("room is private, join by invite code")
	ErrNotMember          = errors.New("account is not a room member")
)

type RoomStore interface {
	Create(ctx context.Context, rec pgrepo.RoomRecord) error
	Get(ctx context.Context, roomID string) (pgrepo.RoomRecord, error)
	GetByInviteCode(ctx context.Context, code string) (pgrepo.RoomRecord, error)
	ListPublic(ctx context.Context, limit int) ([]pgrepo.RoomRecord, error)
	AddMember(ctx context.Context, roomID, accountID string) error
	IsMember(ctx context.Context, roomID, accountID string) (bool, error)
}

type ConfessionStore interface {
	Create(ctx context.Context, rec pgrepo.ConfessionRecord) error
	Get(ctx context.Context, confessionID string) (pgrepo.ConfessionRecord, error)
	ListRecent(ctx context.Context, limit int) ([]pgrepo.ConfessionRecord, error)
}

type AccountStore interface {
	IsBanned(ctx context.Context, accountID string) (bool, error)
}

// Engagements credits a reaction to the content author's counters. The
// membership service implements it.
type Engagements interface {
	RecordEngagement(ctx context.Context, accountID string, kind enums.EngagementKind) error
}

type Ledger interface {
	Debit(ctx context.Context, accountID string, amount int64, reason enums.CreditReason, correlationID string) (ledgersvc.MoveResult, error)
	Refund(ctx context.Context, correlationID string) (ledgersvc.MoveResult, error)
}

type Service struct {
	rooms       RoomStore
	confessions ConfessionStore
	accounts    AccountStore
	ledger      Ledger
	engagements Engagements
	creationFee int64
	now         func() time.Time
}

type Dependencies struct {
	Rooms       RoomStore
	Confessions ConfessionStore
	Accounts    AccountStore
	Ledger      Ledger
	Engagements Engagements
	CreationFee int64
}

func NewService(deps Dependencies) *Service {
	return &Service{
		rooms:       deps.Rooms,
		confessions: deps.Confessions,
		accounts:    deps.Accounts,
		ledger:      deps.Ledger,
		engagements: deps.Engagements,
		creationFee: deps.CreationFee,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type CreateRoomInput struct {
	CreatorID   string
	Name        string
	Description string
	IsPrivate   bool
}

// CreateRoom charges the creation fee, then inserts the room. The fee debit
// is keyed by the room id; if the insert fails the debit is refunded so the
// creator is never charged for a room that does not exist.
func (s *Service) CreateRoom(ctx context.Context, input CreateRoomInput) (pgrepo.RoomRecord, error) {
	name := strings.TrimSpace(input.Name)
	if strings.TrimSpace(input.CreatorID) == "" {
		return pgrepo.RoomRecord{}, fmt.Errorf("%w: creator id is required", ErrValidation)
	}
	if name == "" || len(name) > maxRoomNameLen {
		return pgrepo.RoomRecord{}, fmt.Errorf("%w: room name must be 1-%d characters", ErrValidation, maxRoomNameLen)
	}
	if len(input.Description) > maxDescriptionLen {
		return pgrepo.RoomRecord{}, fmt.Errorf("%w: description too long", ErrValidation)
	}

	banned, err := s.accounts.IsBanned(ctx, input.CreatorID)
	if err != nil {
		return pgrepo.RoomRecord{}, err
	}
	if banned {
		return pgrepo.RoomRecord{}, ErrBanned
	}

	roomID := uuid.NewString()
	if s.creationFee > 0 {
		if _, err := s.ledger.Debit(ctx, input.CreatorID, s.creationFee, enums.ReasonRoomCreationFee, "room:"+roomID); err != nil {
			return pgrepo.RoomRecord{}, err
		}
	}

	rec := pgrepo.RoomRecord{
		ID:          roomID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatorID:   input.CreatorID,
		IsPrivate:   input.IsPrivate,
		MemberCount: 1,
		CreatedAt:   s.now(),
	}
	if input.IsPrivate {
		code := newInviteCode()
		rec.InviteCode = &code
	}

	if err := s.rooms.Create(ctx, rec); err != nil {
		if s.creationFee > 0 {
			if _, refundErr := s.ledger.Refund(ctx, "room:"+roomID); refundErr != nil {
				return pgrepo.RoomRecord{}, fmt.Errorf("create room failed (%v), refund failed: %w", err, refundErr)
			}
		}
		return pgrepo.RoomRecord{}, err
	}

	return rec, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID string) (pgrepo.RoomRecord, error) {
	rec, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrRoomNotFound) {
			return pgrepo.RoomRecord{}, ErrRoomNotFound
		}
		return pgrepo.RoomRecord{}, err
	}
	return rec, nil
}

func (s *Service) ListPublicRooms(ctx context.Context, limit int) ([]pgrepo.RoomRecord, error) {
	return s.rooms.ListPublic(ctx, limit)
}

// JoinRoom adds the account to a public room. Private rooms only admit
// through JoinByInviteCode.
func (s *Service) JoinRoom(ctx context.Context, accountID, roomID string) (pgrepo.RoomRecord, error) {
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(roomID) == "" {
		return pgrepo.RoomRecord{}, fmt.Errorf("%w: account id and room id are required", ErrValidation)
	}

	banned, err := s.accounts.IsBanned(ctx, accountID)
	if err != nil {
		return pgrepo.RoomRecord{}, err
	}
	if banned {
		return pgrepo.RoomRecord{}, ErrBanned
	}

	rec, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrRoomNotFound) {
			return pgrepo.RoomRecord{}, ErrRoomNotFound
		}
		return pgrepo.RoomRecord{}, err
	}
	if rec.IsPrivate {
		return pgrepo.RoomRecord{}, ErrPrivateRoom
	}

	if err := s.rooms.AddMember(ctx, roomID, accountID); err != nil {
		return pgrepo.RoomRecord{}, err
	}
	return rec, nil
}

func (s *Service) JoinByInviteCode(ctx context.Context, accountID, code string) (pgrepo.RoomRecord, error) {
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(code) == "" {
		return pgrepo.RoomRecord{}, fmt.Errorf("%w: account id and invite code are required", ErrValidation)
	}

	banned, err := s.accounts.IsBanned(ctx, accountID)
	if err != nil {
		return pgrepo.RoomRecord{}, err
	}
	if banned {
		return pgrepo.RoomRecord{}, ErrBanned
	}

	rec, err := s.rooms.GetByInviteCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, pgrepo.ErrRoomNotFound) {
			return pgrepo.RoomRecord{}, ErrRoomNotFound
		}
		return pgrepo.RoomRecord{}, err
	}

	if err := s.rooms.AddMember(ctx, rec.ID, accountID); err != nil {
		return pgrepo.RoomRecord{}, err
	}
	return rec, nil
}

// CheckAccess reports whether the account may post in the room.
func (s *Service) CheckAccess(ctx context.Context, accountID, roomID string) error {
	banned, err := s.accounts.IsBanned(ctx, accountID)
	if err != nil {
		return err
	}
	if banned {
		return ErrBanned
	}

	member, err := s.rooms.IsMember(ctx, roomID, accountID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	return nil
}

// PostConfession publishes an anonymous confession to the global feed.
func (s *Service) PostConfession(ctx context.Context, accountID, content, category string) (pgrepo.ConfessionRecord, error) {
	content = strings.TrimSpace(content)
	if strings.TrimSpace(accountID) == "" {
		return pgrepo.ConfessionRecord{}, fmt.Errorf("%w: account id is required", ErrValidation)
	}
	if content == "" || len(content) > maxConfessionLen {
		return pgrepo.ConfessionRecord{}, fmt.Errorf("%w: confession must be 1-%d characters", ErrValidation, maxConfessionLen)
	}

	banned, err := s.accounts.IsBanned(ctx, accountID)
	if err != nil {
		return pgrepo.ConfessionRecord{}, err
	}
	if banned {
		return pgrepo.ConfessionRecord{}, ErrBanned
	}

	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = defaultConfessionCategory
	}

	rec := pgrepo.ConfessionRecord{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Content:   content,
		Category:  category,
		CreatedAt: s.now(),
	}
	if err := s.confessions.Create(ctx, rec); err != nil {
		return pgrepo.ConfessionRecord{}, err
	}
	return rec, nil
}

func (s *Service) ListConfessions(ctx context.Context, limit int) ([]pgrepo.ConfessionRecord, error) {
	return s.confessions.ListRecent(ctx, limit)
}

// ReactToConfession records a like, dislike or comment landing on a
// confession and credits the engagement to its author.
func (s *Service) ReactToConfession(ctx context.Context, accountID, confessionID string, kind enums.EngagementKind) (pgrepo.ConfessionRecord, error) {
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(confessionID) == "" {
		return pgrepo.ConfessionRecord{}, fmt.Errorf("%w: account id and confession id are required", ErrValidation)
	}
	if !kind.Valid() {
		return pgrepo.ConfessionRecord{}, fmt.Errorf("%w: unknown engagement kind %q", ErrValidation, kind)
	}

	banned, err := s.accounts.IsBanned(ctx, accountID)
	if err != nil {
		return pgrepo.ConfessionRecord{}, err
	}
	if banned {
		return pgrepo.ConfessionRecord{}, ErrBanned
	}

	rec, err := s.confessions.Get(ctx, confessionID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrConfessionNotFound) {
			return pgrepo.ConfessionRecord{}, ErrConfessionNotFound
		}
		return pgrepo.ConfessionRecord{}, err
	}

	if err := s.engagements.RecordEngagement(ctx, rec.AccountID, kind); err != nil {
		return pgrepo.ConfessionRecord{}, err
	}
	return rec, nil
}

// newInviteCode produces a short shareable code. Uniqueness rides on the
// underlying uuid; collisions surface as an insert error on the unique code.
func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

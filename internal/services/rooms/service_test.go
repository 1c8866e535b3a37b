package rooms

import (
	"context"
	"errors"
	"testing"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
)

type fakeRooms struct {
	records   map[string]*pgrepo.RoomRecord
	members   map[string]map[string]bool
	createErr error
}

func newFakeRooms() *fakeRooms {
	return &fakeRooms{
		records: map[string]*pgrepo.RoomRecord{},
		members: map[string]map[string]bool{},
	}
}

func (f *fakeRooms) Create(_ context.Context, rec pgrepo.RoomRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	stored := rec
	f.records[rec.ID] = &stored
	f.members[rec.ID] = map[string]bool{rec.CreatorID: true}
	return nil
}

func (f *fakeRooms) Get(_ context.Context, roomID string) (pgrepo.RoomRecord, error) {
	rec, ok := f.records[roomID]
	if !ok {
		return pgrepo.RoomRecord{}, pgrepo.ErrRoomNotFound
	}
	return *rec, nil
}

func (f *fakeRooms) GetByInviteCode(_ context.Context, code string) (pgrepo.RoomRecord, error) {
	for _, rec := range f.records {
		if rec.InviteCode != nil && *rec.InviteCode == code {
			return *rec, nil
		}
	}
	return pgrepo.RoomRecord{}, pgrepo.ErrRoomNotFound
}

func (f *fakeRooms) ListPublic(_ context.Context, _ int) ([]pgrepo.RoomRecord, error) {
	var out []pgrepo.RoomRecord
	for _, rec := range f.records {
		if !rec.IsPrivate {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRooms) AddMember(_ context.Context, roomID, accountID string) error {
	members, ok := f.members[roomID]
	if !ok {
		return pgrepo.ErrRoomNotFound
	}
	if !members[accountID] {
		members[accountID] = true
		f.records[roomID].MemberCount++
	}
	return nil
}

func (f *fakeRooms) IsMember(_ context.Context, roomID, accountID string) (bool, error) {
	return f.members[roomID][accountID], nil
}

type fakeConfessions struct {
	records []pgrepo.ConfessionRecord
}

func (f *fakeConfessions) Create(_ context.Context, rec pgrepo.ConfessionRecord) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeConfessions) Get(_ context.Context, confessionID string) (pgrepo.ConfessionRecord, error) {
	for _, rec := range f.records {
		if rec.ID == confessionID {
			return rec, nil
		}
	}
	return pgrepo.ConfessionRecord{}, pgrepo.ErrConfessionNotFound
}

func (f *fakeConfessions) ListRecent(_ context.Context, _ int) ([]pgrepo.ConfessionRecord, error) {
	return f.records, nil
}

type fakeEngagements struct {
	recorded map[string][]string
}

func (f *fakeEngagements) RecordEngagement(_ context.Context, accountID string, kind enums.EngagementKind) error {
	if f.recorded == nil {
		f.recorded = map[string][]string{}
	}
	f.recorded[accountID] = append(f.recorded[accountID], string(kind))
	return nil
}

type fakeAccounts struct {
	banned map[string]bool
}

func (f *fakeAccounts) IsBanned(_ context.Context, accountID string) (bool, error) {
	return f.banned[accountID], nil
}

type fakeLedger struct {
	balances map[string]int64
	debits   map[string]int64
	owners   map[string]string
	refunds  map[string]bool
}

func newFakeLedger(balances map[string]int64) *fakeLedger {
	return &fakeLedger{
		balances: balances,
		debits:   map[string]int64{},
		owners:   map[string]string{},
		refunds:  map[string]bool{},
	}
}

func (f *fakeLedger) Debit(_ context.Context, accountID string, amount int64, _ enums.CreditReason, correlationID string) (ledgersvc.MoveResult, error) {
	if f.balances[accountID] < amount {
		return ledgersvc.MoveResult{}, ledgersvc.ErrInsufficientCredits
	}
	f.balances[accountID] -= amount
	f.debits[correlationID] = amount
	f.owners[correlationID] = accountID
	return ledgersvc.MoveResult{AccountID: accountID, Amount: amount, NewBalance: f.balances[accountID]}, nil
}

func (f *fakeLedger) Refund(_ context.Context, correlationID string) (ledgersvc.MoveResult, error) {
	amount, seen := f.debits[correlationID]
	if !seen {
		return ledgersvc.MoveResult{}, pgrepo.ErrTransactionNotFound
	}
	if f.refunds[correlationID] {
		return ledgersvc.MoveResult{Idempotent: true}, nil
	}
	f.refunds[correlationID] = true
	owner := f.owners[correlationID]
	f.balances[owner] += amount
	return ledgersvc.MoveResult{AccountID: owner, Amount: amount, NewBalance: f.balances[owner]}, nil
}

type fixture struct {
	svc         *Service
	rooms       *fakeRooms
	confessions *fakeConfessions
	accounts    *fakeAccounts
	ledger      *fakeLedger
	engagements *fakeEngagements
}

func newFixture(balances map[string]int64) *fixture {
	f := &fixture{
		rooms:       newFakeRooms(),
		confessions: &fakeConfessions{},
		accounts:    &fakeAccounts{banned: map[string]bool{}},
		ledger:      newFakeLedger(balances),
		engagements: &fakeEngagements{},
	}
	f.svc = NewService(Dependencies{
		Rooms:       f.rooms,
		Confessions: f.confessions,
		Accounts:    f.accounts,
		Ledger:      f.ledger,
		Engagements: f.engagements,
		CreationFee: 50,
	})
	return f
}

func TestCreateRoomChargesFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(map[string]int64{"creator": 60})

	rec, err := f.svc.CreateRoom(ctx, CreateRoomInput{CreatorID: "creator", Name: "Night Owls"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if f.ledger.balances["creator"] != 10 {
		t.Fatalf("expected 50 charged, balance %d", f.ledger.balances["creator"])
	}
	if rec.InviteCode != nil {
		t.Fatal("public room must not have an invite code")
	}
	if rec.MemberCount != 1 {
		t.Fatalf("creator should be the first member, count %d", rec.MemberCount)
	}

	if _, err := f.svc.CreateRoom(ctx, CreateRoomInput{CreatorID: "creator", Name: "Second"}); !errors.Is(err, ledgersvc.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
}

func TestCreateRoomRefundsOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(map[string]int64{"creator": 60})
	f.rooms.createErr = errors.New("insert failed")

	if _, err := f.svc.CreateRoom(ctx, CreateRoomInput{CreatorID: "creator", Name: "Doomed"}); err == nil {
		t.Fatal("expected create to fail")
	}
	if f.ledger.balances["creator"] != 60 {
		t.Fatalf("expected fee refunded after failed insert, balance %d", f.ledger.balances["creator"])
	}
}

func TestPrivateRoomJoinsByInviteOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(map[string]int64{"creator": 100})

	rec, err := f.svc.CreateRoom(ctx, CreateRoomInput{CreatorID: "creator", Name: "Secret", IsPrivate: true})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if rec.InviteCode == nil || len(*rec.InviteCode) != 8 {
		t.Fatalf("expected 8-char invite code, got %v", rec.InviteCode)
	}

	if _, err := f.svc.JoinRoom(ctx, "guest", rec.ID); !errors.Is(err, ErrPrivateRoom) {
		t.Fatalf("expected ErrPrivateRoom, got %v", err)
	}

	joined, err := f.svc.JoinByInviteCode(ctx, "guest", *rec.InviteCode)
	if err != nil {
		t.Fatalf("join by invite: %v", err)
	}
	if joined.ID != rec.ID {
		t.Fatalf("joined the wrong room: %s", joined.ID)
	}

	if err := f.svc.CheckAccess(ctx, "guest", rec.ID); err != nil {
		t.Fatalf("expected member access, got %v", err)
	}
	if err := f.svc.CheckAccess(ctx, "stranger", rec.ID); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestBannedAccountsAreGated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(map[string]int64{"creator": 100, "outlaw": 100})
	f.accounts.banned["outlaw"] = true

	rec, err := f.svc.CreateRoom(ctx, CreateRoomInput{CreatorID: "creator", Name: "Lounge"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if _, err := f.svc.CreateRoom(ctx, CreateRoomInput{CreatorID: "outlaw", Name: "Hideout"}); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned on create, got %v", err)
	}
	if f.ledger.balances["outlaw"] != 100 {
		t.Fatalf("banned create must not charge, balance %d", f.ledger.balances["outlaw"])
	}
	if _, err := f.svc.JoinRoom(ctx, "outlaw", rec.ID); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned on join, got %v", err)
	}
	if _, err := f.svc.PostConfession(ctx, "outlaw", "I did it", ""); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned on confession, got %v", err)
	}
}

func TestPostConfession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(map[string]int64{"acc-1": 0})

	rec, err := f.svc.PostConfession(ctx, "acc-1", "  I still sleep with a nightlight  ", "")
	if err != nil {
		t.Fatalf("post confession: %v", err)
	}
	if rec.Content != "I still sleep with a nightlight" {
		t.Fatalf("expected trimmed content, got %q", rec.Content)
	}
	if rec.Category != "general" {
		t.Fatalf("expected default category, got %s", rec.Category)
	}

	if _, err := f.svc.PostConfession(ctx, "acc-1", "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty content, got %v", err)
	}

	feed, err := f.svc.ListConfessions(ctx, 10)
	if err != nil {
		t.Fatalf("list confessions: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("expected one confession, got %d", len(feed))
	}
}

func TestReactToConfessionCreditsAuthor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(map[string]int64{"author": 0})
	f.accounts.banned["outlaw"] = true

	rec, err := f.svc.PostConfession(ctx, "author", "I water my neighbor's plants", "")
	if err != nil {
		t.Fatalf("post confession: %v", err)
	}

	got, err := f.svc.ReactToConfession(ctx, "reader", rec.ID, enums.EngagementLike)
	if err != nil {
		t.Fatalf("react: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("reacted to the wrong confession: %s", got.ID)
	}
	if kinds := f.engagements.recorded["author"]; len(kinds) != 1 || kinds[0] != "like" {
		t.Fatalf("expected one like credited to the author, got %v", f.engagements.recorded)
	}
	if len(f.engagements.recorded["reader"]) != 0 {
		t.Fatal("the reactor must not be credited")
	}

	if _, err := f.svc.ReactToConfession(ctx, "reader", "no-such-id", enums.EngagementLike); !errors.Is(err, ErrConfessionNotFound) {
		t.Fatalf("expected ErrConfessionNotFound, got %v", err)
	}
	if _, err := f.svc.ReactToConfession(ctx, "outlaw", rec.ID, enums.EngagementLike); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
	if _, err := f.svc.ReactToConfession(ctx, "reader", rec.ID, enums.EngagementKind("upvote")); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown kind, got %v", err)
	}
}

package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	"github.com/zwakele57/chat-v2/internal/events"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
)

type fakeReports struct {
	mu      sync.Mutex
	records map[string]*pgrepo.ReportRecord
}

func newFakeReports() *fakeReports {
	return &fakeReports{records: map[string]*pgrepo.ReportRecord{}}
}

func (f *fakeReports) Create(_ context.Context, rec pgrepo.ReportRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := rec
	f.records[rec.ID] = &stored
	return nil
}

func (f *fakeReports) GetByID(_ context.Context, reportID string) (pgrepo.ReportRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[reportID]
	if !ok {
		return pgrepo.ReportRecord{}, pgrepo.ErrReportNotFound
	}
	return *rec, nil
}

func (f *fakeReports) ListPending(_ context.Context, _ int) ([]pgrepo.ReportRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []pgrepo.ReportRecord
	for _, rec := range f.records {
		if rec.Status == "pending" {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeReports) MarkResolved(_ context.Context, _ pgx.Tx, reportID, status string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[reportID]
	if !ok {
		return false, pgrepo.ErrReportNotFound
	}
	if rec.Status != "pending" {
		return false, nil
	}
	rec.Status = status
	return true, nil
}

type fakeAccounts struct {
	banned       map[string]bool
	streaksReset []string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{banned: map[string]bool{}}
}

func (f *fakeAccounts) IsBanned(_ context.Context, accountID string) (bool, error) {
	return f.banned[accountID], nil
}

func (f *fakeAccounts) SetBanned(_ context.Context, _ pgx.Tx, accountID string) error {
	f.banned[accountID] = true
	return nil
}

func (f *fakeAccounts) ResetReportStreak(_ context.Context, _ pgx.Tx, accountID string) error {
	f.streaksReset = append(f.streaksReset, accountID)
	return nil
}

type fakeBans struct {
	records []pgrepo.BanRecord
}

func (f *fakeBans) Create(_ context.Context, _ pgx.Tx, rec pgrepo.BanRecord) error {
	f.records = append(f.records, rec)
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	return fn(ctx, nil)
}

type fakeRate struct {
	counts map[string]int64
	err    error
}

func newFakeRate() *fakeRate {
	return &fakeRate{counts: map[string]int64{}}
}

func (f *fakeRate) IncrementWindow(_ context.Context, key string, _ time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.counts[key]++
	return f.counts[key], time.Minute, nil
}

type fakeMatchmaker struct {
	forceEnded []string
}

func (f *fakeMatchmaker) ForceEndActiveByAccount(_ context.Context, accountID string) error {
	f.forceEnded = append(f.forceEnded, accountID)
	return nil
}

type eventRecorder struct {
	published []events.Event
}

func (r *eventRecorder) Publish(event events.Event) {
	r.published = append(r.published, event)
}

type fixture struct {
	svc        *Service
	reports    *fakeReports
	accounts   *fakeAccounts
	bans       *fakeBans
	rate       *fakeRate
	matchmaker *fakeMatchmaker
	bus        *eventRecorder
}

func newFixture() *fixture {
	f := &fixture{
		reports:    newFakeReports(),
		accounts:   newFakeAccounts(),
		bans:       &fakeBans{},
		rate:       newFakeRate(),
		matchmaker: &fakeMatchmaker{},
		bus:        &eventRecorder{},
	}
	f.svc = NewService(Dependencies{
		Reports:    f.reports,
		Accounts:   f.accounts,
		Bans:       f.bans,
		TxRunner:   fakeTxRunner{},
		Rate:       f.rate,
		Matchmaker: f.matchmaker,
		Bus:        f.bus,
		MaxReports: 3,
	})
	return f
}

func validInput() FileReportInput {
	return FileReportInput{
		ReporterID:  "reporter-1",
		TargetType:  enums.TargetConfession,
		TargetID:    "conf-9",
		Reason:      "harassment",
		Description: "threatening message",
	}
}

func TestFileReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rec, err := f.svc.FileReport(ctx, validInput())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}
	if rec.Status != "pending" {
		t.Fatalf("expected pending status, got %s", rec.Status)
	}
	if rec.ReportedAccountID != nil {
		t.Fatalf("content report without account hint must not guess, got %v", *rec.ReportedAccountID)
	}

	userInput := validInput()
	userInput.TargetType = enums.TargetUser
	userInput.TargetID = "offender-3"
	userRec, err := f.svc.FileReport(ctx, userInput)
	if err != nil {
		t.Fatalf("file user report: %v", err)
	}
	if userRec.ReportedAccountID == nil || *userRec.ReportedAccountID != "offender-3" {
		t.Fatalf("expected user target to set reported account, got %v", userRec.ReportedAccountID)
	}
	if len(f.accounts.streaksReset) != 1 || f.accounts.streaksReset[0] != "offender-3" {
		t.Fatalf("expected clean streak reset on filing, got %v", f.accounts.streaksReset)
	}
}

func TestFileReportRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	self := validInput()
	self.TargetType = enums.TargetUser
	self.TargetID = self.ReporterID
	if _, err := f.svc.FileReport(ctx, self); !errors.Is(err, ErrSelfReport) {
		t.Fatalf("expected ErrSelfReport, got %v", err)
	}

	bad := validInput()
	bad.TargetType = enums.ReportTargetType("meme")
	if _, err := f.svc.FileReport(ctx, bad); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	f.accounts.banned["reporter-1"] = true
	if _, err := f.svc.FileReport(ctx, validInput()); !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
}

func TestFileReportRateLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	for i := 0; i < 3; i++ {
		if _, err := f.svc.FileReport(ctx, validInput()); err != nil {
			t.Fatalf("report %d: %v", i+1, err)
		}
	}

	_, err := f.svc.FileReport(ctx, validInput())
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on 4th report, got %v", err)
	}

	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("expected RateLimitError, got %T", err)
	}
	if rl.RetryAfter != time.Minute {
		t.Fatalf("expected the window's remaining ttl, got %s", rl.RetryAfter)
	}
}

func TestFileReportFailsClosedWithoutLimiter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.rate.err = errors.New("redis down")

	if _, err := f.svc.FileReport(ctx, validInput()); err == nil {
		t.Fatal("expected report to be rejected when the rate limiter is unavailable")
	}
	if len(f.reports.records) != 0 {
		t.Fatalf("expected no report stored, got %d", len(f.reports.records))
	}
}

func TestResolveDismissIsOneShot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rec, err := f.svc.FileReport(ctx, validInput())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}

	if _, err := f.svc.Resolve(ctx, rec.ID, enums.OutcomeDismiss); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := f.svc.Resolve(ctx, rec.ID, enums.OutcomeDismiss); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if _, err := f.svc.Resolve(ctx, rec.ID, enums.OutcomeBan); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved for flipped outcome, got %v", err)
	}
}

func TestConcurrentResolveIsOneShot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rec, err := f.svc.FileReport(ctx, validInput())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}

	const resolvers = 4
	var wg sync.WaitGroup
	errs := make(chan error, resolvers)
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Resolve(context.Background(), rec.ID, enums.OutcomeDismiss)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyResolved):
		default:
			t.Fatalf("unexpected resolve error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one resolver to win, got %d", successes)
	}
}

func TestResolveBanCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	input := validInput()
	input.TargetType = enums.TargetUser
	input.TargetID = "offender-3"
	rec, err := f.svc.FileReport(ctx, input)
	if err != nil {
		t.Fatalf("file report: %v", err)
	}

	result, err := f.svc.Resolve(ctx, rec.ID, enums.OutcomeBan)
	if err != nil {
		t.Fatalf("resolve ban: %v", err)
	}
	if result.BannedAccountID != "offender-3" {
		t.Fatalf("unexpected banned account: %s", result.BannedAccountID)
	}

	if !f.accounts.banned["offender-3"] {
		t.Fatal("expected offender flagged banned")
	}
	if len(f.accounts.streaksReset) != 2 || f.accounts.streaksReset[1] != "offender-3" {
		t.Fatalf("expected clean streak reset on file and on ban, got %v", f.accounts.streaksReset)
	}
	if len(f.bans.records) != 1 || f.bans.records[0].SourceReportID != rec.ID {
		t.Fatalf("expected ban record tied to report, got %+v", f.bans.records)
	}
	if len(f.matchmaker.forceEnded) != 1 || f.matchmaker.forceEnded[0] != "offender-3" {
		t.Fatalf("expected live chat state torn down, got %v", f.matchmaker.forceEnded)
	}

	var sawResolved, sawBanned bool
	for _, e := range f.bus.published {
		switch e.EventKind() {
		case events.KindReportResolved:
			sawResolved = true
		case events.KindAccountBanned:
			sawBanned = true
		}
	}
	if !sawResolved || !sawBanned {
		t.Fatalf("expected resolved and banned events, got %v", f.bus.published)
	}
}

func TestResolveBanWithoutTarget(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rec, err := f.svc.FileReport(ctx, validInput())
	if err != nil {
		t.Fatalf("file report: %v", err)
	}

	if _, err := f.svc.Resolve(ctx, rec.ID, enums.OutcomeBan); !errors.Is(err, ErrNoBanTarget) {
		t.Fatalf("expected ErrNoBanTarget, got %v", err)
	}

	pending, err := f.svc.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected report still pending, got %d pending", len(pending))
	}
}

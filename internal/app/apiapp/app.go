package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zwakele57/chat-v2/internal/config"
	"github.com/zwakele57/chat-v2/internal/events"
	natsinfra "github.com/zwakele57/chat-v2/internal/infra/nats"
	"github.com/zwakele57/chat-v2/internal/jobs/cleanup"
	"github.com/zwakele57/chat-v2/internal/jobs/streak"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
	redrepo "github.com/zwakele57/chat-v2/internal/repo/redis"
	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
	matchsvc "github.com/zwakele57/chat-v2/internal/services/matchmaking"
	membershipsvc "github.com/zwakele57/chat-v2/internal/services/membership"
	modsvc "github.com/zwakele57/chat-v2/internal/services/moderation"
	roomsvc "github.com/zwakele57/chat-v2/internal/services/rooms"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	nats       *natsinfra.Client
	bus        *events.Bus
	matchSvc   *matchsvc.Service
	sweepJob   *cleanup.Job
	streakJob  *streak.Job
	httpRouter http.Handler

	jobCancel context.CancelFunc
	jobWG     sync.WaitGroup
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pgrepo.Migrate(cfg.Postgres.DSN); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	bus := events.NewBus()

	var natsClient *natsinfra.Client
	if cfg.NATS.URL != "" {
		if c, err := natsinfra.NewClient(natsinfra.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name,
			ReconnectWait: cfg.NATS.ReconnectWait,
			MaxReconnects: cfg.NATS.MaxReconnects,
		}, log); err != nil {
			log.Warn("nats init failed, events stay in-process", zap.Error(err))
		} else {
			natsClient = c
			bus.AttachSink(c)
		}
	}

	ledgerRepo := pgrepo.NewLedgerRepo(pool)
	accountRepo := pgrepo.NewAccountRepo(pool)
	sessionRepo := pgrepo.NewMatchSessionRepo(pool)
	reportRepo := pgrepo.NewReportRepo(pool)
	banRepo := pgrepo.NewBanRepo(pool)
	roomRepo := pgrepo.NewRoomRepo(pool)
	confessionRepo := pgrepo.NewConfessionRepo(pool)
	txRunner := &pgrepo.Runner{Pool: pool}

	queueRepo := redrepo.NewQueueRepo(redisClient)
	pairRepo := redrepo.NewPairRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	ledgerService := ledgersvc.NewService(ledgersvc.Dependencies{
		Store: ledgerRepo,
		Bus:   bus,
	})
	membershipService := membershipsvc.NewService(membershipsvc.Dependencies{
		Accounts:          accountRepo,
		Ledger:            ledgerService,
		AdRewardAmount:    cfg.Economy.AdRewardAmount,
		VerificationBonus: cfg.Economy.VerificationBonus,
	})
	matchService := matchsvc.NewService(matchsvc.Dependencies{
		Queue:    queueRepo,
		Pairs:    pairRepo,
		Sessions: sessionRepo,
		Accounts: accountRepo,
		Ledger:   ledgerService,
		Bus:      bus,
		Config: matchsvc.Config{
			SearchFee:    cfg.Economy.SearchFee,
			SkipFee:      cfg.Economy.SkipFee,
			PairInterval: cfg.Matchmaking.PairInterval,
			PairCooldown: cfg.Matchmaking.PairCooldown,
			TicketTTL:    cfg.Matchmaking.TicketTTL,
		},
		Logger: log,
	})
	moderationService := modsvc.NewService(modsvc.Dependencies{
		Reports:    reportRepo,
		Accounts:   accountRepo,
		Bans:       banRepo,
		TxRunner:   txRunner,
		Rate:       rateRepo,
		Matchmaker: matchService,
		Bus:        bus,
		MaxReports: cfg.Moderation.ReportMaxPer10Min,
		Logger:     log,
	})
	roomService := roomsvc.NewService(roomsvc.Dependencies{
		Rooms:       roomRepo,
		Confessions: confessionRepo,
		Accounts:    accountRepo,
		Ledger:      ledgerService,
		Engagements: membershipService,
		CreationFee: cfg.Economy.RoomCreationFee,
	})

	sweepJob := cleanup.New(matchService, cfg.Matchmaking.SweepEvery, log)
	streakJob := streak.New(membershipService, cfg.Membership.StreakEvery, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		LedgerService:     ledgerService,
		MembershipService: membershipService,
		MatchService:      matchService,
		ModerationService: moderationService,
		RoomService:       roomService,
		Logger:            log,
		Config:            cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		nats:       natsClient,
		bus:        bus,
		matchSvc:   matchService,
		sweepJob:   sweepJob,
		streakJob:  streakJob,
		httpRouter: r,
	}, nil
}

// Run starts the background workers and serves HTTP until the listener is
// closed by Shutdown.
func (a *App) Run() error {
	jobCtx, cancel := context.WithCancel(context.Background())
	a.jobCancel = cancel

	a.jobWG.Add(3)
	go func() {
		defer a.jobWG.Done()
		a.matchSvc.Run(jobCtx)
	}()
	go func() {
		defer a.jobWG.Done()
		a.sweepJob.Start(jobCtx)
	}()
	go func() {
		defer a.jobWG.Done()
		a.streakJob.Start(jobCtx)
	}()

	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}

	if a.jobCancel != nil {
		a.jobCancel()
		a.jobWG.Wait()
	}

	if a.nats != nil {
		a.nats.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// Bus exposes the in-process event stream, mainly for tests and embedded use.
func (a *App) Bus() *events.Bus {
	return a.bus
}

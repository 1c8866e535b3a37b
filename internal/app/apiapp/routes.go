package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zwakele57/chat-v2/internal/config"
	"github.com/zwakele57/chat-v2/internal/metrics"
	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
	matchsvc "github.com/zwakele57/chat-v2/internal/services/matchmaking"
	membershipsvc "github.com/zwakele57/chat-v2/internal/services/membership"
	modsvc "github.com/zwakele57/chat-v2/internal/services/moderation"
	roomsvc "github.com/zwakele57/chat-v2/internal/services/rooms"
	"github.com/zwakele57/chat-v2/internal/transport/http/handlers"
)

type Dependencies struct {
	LedgerService     *ledgersvc.Service
	MembershipService *membershipsvc.Service
	MatchService      *matchsvc.Service
	ModerationService *modsvc.Service
	RoomService       *roomsvc.Service
	Logger            *zap.Logger
	Config            config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	meHandler := handlers.NewMeHandler(deps.MembershipService, deps.LedgerService)
	searchHandler := handlers.NewSearchHandler(deps.MatchService)
	reportHandler := handlers.NewReportHandler(deps.ModerationService)
	roomHandler := handlers.NewRoomHandler(deps.RoomService)
	adminReportHandler := handlers.NewAdminReportHandler(deps.ModerationService)
	adminLedgerHandler := handlers.NewAdminLedgerHandler(deps.LedgerService)

	identityMW := IdentityMiddleware(deps.MembershipService, deps.Logger)
	adminAuthMW := AdminAuthMiddleware(deps.Config.Admin, deps.Logger)

	r.Get("/healthz", healthHandler.Get)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.With(identityMW).Get("/me", meHandler.Profile)
		r.With(identityMW).Get("/me/balance", meHandler.Balance)
		r.With(identityMW).Post("/me/ads", meHandler.AdReward)
		r.With(identityMW).Post("/me/verification", meHandler.ClaimVerification)

		r.With(identityMW).Post("/search/start", searchHandler.Start)
		r.With(identityMW).Post("/search/cancel", searchHandler.Cancel)
		r.With(identityMW).Get("/search/status", searchHandler.Status)
		r.With(identityMW).Post("/search/skip", searchHandler.Skip)
		r.With(identityMW).Post("/session/end", searchHandler.EndSession)

		r.With(identityMW).Post("/reports", reportHandler.File)

		r.With(identityMW).Post("/rooms", roomHandler.Create)
		r.With(identityMW).Get("/rooms", roomHandler.List)
		r.With(identityMW).Get("/rooms/{id}", roomHandler.Get)
		r.With(identityMW).Post("/rooms/{id}/join", roomHandler.Join)
		r.With(identityMW).Post("/rooms/join", roomHandler.JoinByCode)

		r.With(identityMW).Post("/confessions", roomHandler.PostConfession)
		r.With(identityMW).Get("/confessions", roomHandler.ListConfessions)
		r.With(identityMW).Post("/confessions/{id}/react", roomHandler.React)
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(adminAuthMW)
		r.Get("/reports", adminReportHandler.ListPending)
		r.Post("/reports/{id}/resolve", adminReportHandler.Resolve)
		r.Post("/credits/grant", adminLedgerHandler.GrantCredits)
	})
}

package apiapp

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zwakele57/chat-v2/internal/config"
	membershipsvc "github.com/zwakele57/chat-v2/internal/services/membership"
	httperrors "github.com/zwakele57/chat-v2/internal/transport/http/errors"
	"github.com/zwakele57/chat-v2/internal/transport/http/identity"
)

func ApplyMiddlewares(r chiRouter, log *zap.Logger) {
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(log))
}

// IdentityMiddleware resolves the caller from the X-Account-ID header set by
// the fronting auth proxy. The account row is created lazily on first touch.
func IdentityMiddleware(membership *membershipsvc.Service, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID := strings.TrimSpace(r.Header.Get("X-Account-ID"))
			if accountID == "" {
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "missing account identity",
				})
				return
			}

			if membership != nil {
				if err := membership.Ensure(r.Context(), accountID); err != nil {
					if log != nil {
						log.Error("ensure account", zap.String("account_id", accountID), zap.Error(err))
					}
					httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{
						Code:    "INTERNAL_ERROR",
						Message: "failed to resolve account",
					})
					return
				}
			}

			ctx := identity.WithAccountID(r.Context(), accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuthMiddleware guards the moderation surface with a shared token. An
// empty configured token disables the surface entirely.
func AdminAuthMiddleware(cfg config.AdminConfig, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Token == "" {
				httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
					Code:    "NOT_FOUND",
					Message: "not found",
				})
				return
			}

			token, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				if log != nil {
					log.Debug("admin auth rejected", zap.String("path", r.URL.Path))
				}
				httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
					Code:    "UNAUTHORIZED",
					Message: "invalid admin token",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(value string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return parts[1], true
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			if log != nil {
				log.Info("http_request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Duration("duration", time.Since(start)),
				)
			}
		})
	}
}

type chiRouter interface {
	Use(middlewares ...func(http.Handler) http.Handler)
}

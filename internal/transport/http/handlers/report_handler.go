package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
	moderationsvc "github.com/zwakele57/chat-v2/internal/services/moderation"
	"github.com/zwakele57/chat-v2/internal/transport/http/dto"
	httperrors "github.com/zwakele57/chat-v2/internal/transport/http/errors"
	"github.com/zwakele57/chat-v2/internal/transport/http/identity"
)

type ReportHandler struct {
	service *moderationsvc.Service
}

func NewReportHandler(service *moderationsvc.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) File(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	var req dto.FileReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}
	targetType, ok := enums.ParseReportTargetType(req.TargetType)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "unknown target type")
		return
	}

	rec, err := h.service.FileReport(r.Context(), moderationsvc.FileReportInput{
		ReporterID:        accountID,
		TargetType:        targetType,
		TargetID:          req.TargetID,
		ReportedAccountID: req.ReportedAccountID,
		Reason:            req.Reason,
		Description:       req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, moderationsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
		case errors.Is(err, moderationsvc.ErrSelfReport):
			writeBadRequest(w, "SELF_REPORT", "you cannot report yourself")
		case errors.Is(err, moderationsvc.ErrBanned):
			writeForbidden(w, "ACCOUNT_BANNED", "banned accounts cannot file reports")
		case errors.Is(err, moderationsvc.ErrRateLimited):
			retryAfter := 600
			var rl *moderationsvc.RateLimitError
			if errors.As(err, &rl) && rl.RetryAfter > 0 {
				retryAfter = int((rl.RetryAfter + time.Second - 1) / time.Second)
			}
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "REPORT_RATE_LIMITED",
				Message:       "too many reports, slow down",
				RetryAfterSec: retryAfter,
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to file report")
		}
		return
	}

	httperrors.Write(w, http.StatusCreated, reportResponse(rec))
}

func reportResponse(rec pgrepo.ReportRecord) dto.ReportResponse {
	return dto.ReportResponse{
		ID:                rec.ID,
		TargetType:        rec.TargetType,
		TargetID:          rec.TargetID,
		ReportedAccountID: rec.ReportedAccountID,
		Reason:            rec.Reason,
		Description:       rec.Description,
		Status:            rec.Status,
		CreatedAt:         rec.CreatedAt,
	}
}

type AdminReportHandler struct {
	service *moderationsvc.Service
}

func NewAdminReportHandler(service *moderationsvc.Service) *AdminReportHandler {
	return &AdminReportHandler{service: service}
}

func (h *AdminReportHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	records, err := h.service.ListPending(r.Context(), 100)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list pending reports")
		return
	}

	out := dto.PendingReportsResponse{Reports: make([]dto.ReportResponse, 0, len(records))}
	for _, rec := range records {
		out.Reports = append(out.Reports, reportResponse(rec))
	}
	httperrors.Write(w, http.StatusOK, out)
}

func (h *AdminReportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "MODERATION_SERVICE_UNAVAILABLE", "moderation service is unavailable")
		return
	}

	reportID := chi.URLParam(r, "id")
	var req dto.ResolveReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}
	outcome, ok := enums.ParseResolveOutcome(req.Outcome)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "outcome must be ban or dismiss")
		return
	}

	result, err := h.service.Resolve(r.Context(), reportID, outcome)
	if err != nil {
		switch {
		case errors.Is(err, moderationsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
		case errors.Is(err, moderationsvc.ErrReportNotFound):
			writeNotFound(w, "REPORT_NOT_FOUND", "report not found")
		case errors.Is(err, moderationsvc.ErrAlreadyResolved):
			writeConflict(w, "ALREADY_RESOLVED", "report was already resolved")
		case errors.Is(err, moderationsvc.ErrNoBanTarget):
			writeBadRequest(w, "NO_BAN_TARGET", "report does not name an account to ban")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to resolve report")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ResolveReportResponse{
		ReportID:        result.ReportID,
		Outcome:         string(result.Outcome),
		BannedAccountID: result.BannedAccountID,
	})
}

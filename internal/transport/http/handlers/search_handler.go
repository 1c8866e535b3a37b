package handlers

import (
	"errors"
	"net/http"

	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
	matchsvc "github.com/zwakele57/chat-v2/internal/services/matchmaking"
	"github.com/zwakele57/chat-v2/internal/transport/http/dto"
	httperrors "github.com/zwakele57/chat-v2/internal/transport/http/errors"
	"github.com/zwakele57/chat-v2/internal/transport/http/identity"
)

type SearchHandler struct {
	service *matchsvc.Service
}

func NewSearchHandler(service *matchsvc.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) Start(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHMAKING_SERVICE_UNAVAILABLE", "matchmaking service is unavailable")
		return
	}

	status, err := h.service.StartSearch(r.Context(), accountID)
	if err != nil {
		handleSearchError(w, err)
		return
	}
	writeSearchStatus(w, status)
}

func (h *SearchHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHMAKING_SERVICE_UNAVAILABLE", "matchmaking service is unavailable")
		return
	}

	if err := h.service.CancelSearch(r.Context(), accountID); err != nil {
		handleSearchError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.CancelSearchResponse{OK: true})
}

func (h *SearchHandler) Status(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHMAKING_SERVICE_UNAVAILABLE", "matchmaking service is unavailable")
		return
	}

	status, err := h.service.Status(r.Context(), accountID)
	if err != nil {
		handleSearchError(w, err)
		return
	}
	writeSearchStatus(w, status)
}

func (h *SearchHandler) Skip(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHMAKING_SERVICE_UNAVAILABLE", "matchmaking service is unavailable")
		return
	}

	status, err := h.service.Skip(r.Context(), accountID)
	if err != nil {
		handleSearchError(w, err)
		return
	}
	writeSearchStatus(w, status)
}

func (h *SearchHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHMAKING_SERVICE_UNAVAILABLE", "matchmaking service is unavailable")
		return
	}

	if err := h.service.EndSession(r.Context(), accountID); err != nil {
		handleSearchError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, dto.EndSessionResponse{OK: true})
}

func writeSearchStatus(w http.ResponseWriter, status matchsvc.Status) {
	httperrors.Write(w, http.StatusOK, dto.SearchStatusResponse{
		State:      status.State,
		SessionID:  status.SessionID,
		PartnerID:  status.PartnerID,
		EnqueuedAt: status.EnqueuedAt,
	})
}

func handleSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matchsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, matchsvc.ErrBanned):
		writeForbidden(w, "ACCOUNT_BANNED", "banned accounts cannot search")
	case errors.Is(err, matchsvc.ErrAlreadyInSession):
		writeConflict(w, "ALREADY_IN_SESSION", "end the current chat before searching")
	case errors.Is(err, matchsvc.ErrNotSearching):
		writeNotFound(w, "NOT_SEARCHING", "no active search ticket")
	case errors.Is(err, matchsvc.ErrNoActiveSession):
		writeNotFound(w, "NO_ACTIVE_SESSION", "no active chat session")
	case errors.Is(err, ledgersvc.ErrInsufficientCredits):
		writePaymentRequired(w, "INSUFFICIENT_CREDITS", "not enough credits")
	case errors.Is(err, ledgersvc.ErrAccountNotFound):
		writeNotFound(w, "ACCOUNT_NOT_FOUND", "account not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "matchmaking request failed")
	}
}

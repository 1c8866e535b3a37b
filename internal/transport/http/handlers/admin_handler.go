package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
	"github.com/zwakele57/chat-v2/internal/transport/http/dto"
	httperrors "github.com/zwakele57/chat-v2/internal/transport/http/errors"
)

type AdminLedgerHandler struct {
	ledger *ledgersvc.Service
}

func NewAdminLedgerHandler(ledger *ledgersvc.Service) *AdminLedgerHandler {
	return &AdminLedgerHandler{ledger: ledger}
}

func (h *AdminLedgerHandler) GrantCredits(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	var req dto.GrantCreditsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}
	if strings.TrimSpace(req.AccountID) == "" || strings.TrimSpace(req.GrantID) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "account_id and grant_id are required")
		return
	}

	result, err := h.ledger.Credit(r.Context(), req.AccountID, req.Amount, enums.ReasonAdminGrant, "grant:"+req.GrantID)
	if err != nil {
		switch {
		case errors.Is(err, ledgersvc.ErrValidation), errors.Is(err, ledgersvc.ErrInvalidAmount):
			writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
		case errors.Is(err, ledgersvc.ErrAccountNotFound):
			writeNotFound(w, "ACCOUNT_NOT_FOUND", "account not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to grant credits")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.GrantCreditsResponse{
		AccountID:  result.AccountID,
		Amount:     result.Amount,
		NewBalance: result.NewBalance,
		Duplicate:  result.Idempotent,
	})
}

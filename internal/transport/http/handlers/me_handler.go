package handlers

import (
	"errors"
	"net/http"
	"strings"

	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
	membershipsvc "github.com/zwakele57/chat-v2/internal/services/membership"
	"github.com/zwakele57/chat-v2/internal/transport/http/dto"
	httperrors "github.com/zwakele57/chat-v2/internal/transport/http/errors"
	"github.com/zwakele57/chat-v2/internal/transport/http/identity"
)

type MeHandler struct {
	membership *membershipsvc.Service
	ledger     *ledgersvc.Service
}

func NewMeHandler(membership *membershipsvc.Service, ledger *ledgersvc.Service) *MeHandler {
	return &MeHandler{membership: membership, ledger: ledger}
}

func (h *MeHandler) Profile(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.membership == nil {
		writeInternal(w, "MEMBERSHIP_SERVICE_UNAVAILABLE", "membership service is unavailable")
		return
	}

	profile, err := h.membership.Profile(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, membershipsvc.ErrNotFound):
			writeNotFound(w, "ACCOUNT_NOT_FOUND", "account not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load profile")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ProfileResponse{
		AccountID:         profile.AccountID,
		Credits:           profile.Credits,
		IsVerified:        profile.IsVerified,
		IsBanned:          profile.IsBanned,
		DaysWithoutReport: profile.DaysWithoutReport,
		TotalLikes:        profile.TotalLikes,
		TotalDislikes:     profile.TotalDislikes,
		TotalComments:     profile.TotalComments,
		VerificationReady: profile.VerificationReady,
		CreatedAt:         profile.CreatedAt,
	})
}

func (h *MeHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.ledger == nil {
		writeInternal(w, "LEDGER_SERVICE_UNAVAILABLE", "ledger service is unavailable")
		return
	}

	balance, err := h.ledger.Balance(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, ledgersvc.ErrAccountNotFound):
			writeNotFound(w, "ACCOUNT_NOT_FOUND", "account not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load balance")
		}
		return
	}

	history, err := h.ledger.History(r.Context(), accountID, 50)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load transactions")
		return
	}

	out := dto.BalanceResponse{AccountID: accountID, Credits: balance}
	for _, rec := range history {
		out.Transactions = append(out.Transactions, dto.TransactionResponse{
			ID:            rec.ID,
			Delta:         rec.Delta,
			Reason:        rec.Reason,
			Kind:          string(rec.Kind),
			CorrelationID: rec.CorrelationID,
			CreatedAt:     rec.CreatedAt,
		})
	}
	httperrors.Write(w, http.StatusOK, out)
}

func (h *MeHandler) AdReward(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.membership == nil {
		writeInternal(w, "MEMBERSHIP_SERVICE_UNAVAILABLE", "membership service is unavailable")
		return
	}

	var req dto.AdRewardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}
	if strings.TrimSpace(req.ImpressionID) == "" {
		writeBadRequest(w, "VALIDATION_ERROR", "impression_id is required")
		return
	}

	result, err := h.membership.RecordAdReward(r.Context(), accountID, req.ImpressionID)
	if err != nil {
		switch {
		case errors.Is(err, membershipsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
		case errors.Is(err, membershipsvc.ErrNotFound):
			writeNotFound(w, "ACCOUNT_NOT_FOUND", "account not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to record ad reward")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdRewardResponse{
		Awarded:    result.Amount,
		NewBalance: result.NewBalance,
		Duplicate:  result.Duplicate,
	})
}

func (h *MeHandler) ClaimVerification(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.membership == nil {
		writeInternal(w, "MEMBERSHIP_SERVICE_UNAVAILABLE", "membership service is unavailable")
		return
	}

	result, err := h.membership.ClaimVerification(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, membershipsvc.ErrNotEligible):
			writeForbidden(w, "NOT_ELIGIBLE", "account does not qualify for verification")
		case errors.Is(err, membershipsvc.ErrNotFound):
			writeNotFound(w, "ACCOUNT_NOT_FOUND", "account not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to claim verification")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.VerificationResponse{
		Verified:        result.Verified,
		AlreadyVerified: result.AlreadyVerified,
		BonusAwarded:    result.BonusAwarded,
		NewBalance:      result.NewBalance,
	})
}

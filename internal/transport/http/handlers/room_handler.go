package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zwakele57/chat-v2/internal/domain/enums"
	pgrepo "github.com/zwakele57/chat-v2/internal/repo/postgres"
	ledgersvc "github.com/zwakele57/chat-v2/internal/services/ledger"
	roomsvc "github.com/zwakele57/chat-v2/internal/services/rooms"
	"github.com/zwakele57/chat-v2/internal/transport/http/dto"
	httperrors "github.com/zwakele57/chat-v2/internal/transport/http/errors"
	"github.com/zwakele57/chat-v2/internal/transport/http/identity"
)

type RoomHandler struct {
	service *roomsvc.Service
}

func NewRoomHandler(service *roomsvc.Service) *RoomHandler {
	return &RoomHandler{service: service}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}

	var req dto.CreateRoomRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	rec, err := h.service.CreateRoom(r.Context(), roomsvc.CreateRoomInput{
		CreatorID:   accountID,
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		handleRoomError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, roomResponse(rec, true))
}

func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.AccountIDFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}

	records, err := h.service.ListPublicRooms(r.Context(), 50)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list rooms")
		return
	}

	out := dto.RoomListResponse{Rooms: make([]dto.RoomResponse, 0, len(records))}
	for _, rec := range records {
		out.Rooms = append(out.Rooms, roomResponse(rec, false))
	}
	httperrors.Write(w, http.StatusOK, out)
}

func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}

	roomID := chi.URLParam(r, "id")
	if err := h.service.CheckAccess(r.Context(), accountID, roomID); err != nil {
		handleRoomError(w, err)
		return
	}

	rec, err := h.service.GetRoom(r.Context(), roomID)
	if err != nil {
		handleRoomError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, roomResponse(rec, rec.CreatorID == accountID))
}

func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}

	rec, err := h.service.JoinRoom(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		handleRoomError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, roomResponse(rec, false))
}

func (h *RoomHandler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}

	var req dto.JoinByCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	rec, err := h.service.JoinByInviteCode(r.Context(), accountID, req.InviteCode)
	if err != nil {
		handleRoomError(w, err)
		return
	}
	httperrors.Write(w, http.StatusOK, roomResponse(rec, false))
}

func (h *RoomHandler) PostConfession(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}

	var req dto.ConfessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	rec, err := h.service.PostConfession(r.Context(), accountID, req.Content, req.Category)
	if err != nil {
		handleRoomError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, dto.ConfessionResponse{
		ID:        rec.ID,
		Content:   rec.Content,
		Category:  rec.Category,
		CreatedAt: rec.CreatedAt,
	})
}

func (h *RoomHandler) ListConfessions(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.AccountIDFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}

	records, err := h.service.ListConfessions(r.Context(), 50)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list confessions")
		return
	}

	out := dto.ConfessionListResponse{Confessions: make([]dto.ConfessionResponse, 0, len(records))}
	for _, rec := range records {
		out.Confessions = append(out.Confessions, dto.ConfessionResponse{
			ID:        rec.ID,
			Content:   rec.Content,
			Category:  rec.Category,
			CreatedAt: rec.CreatedAt,
		})
	}
	httperrors.Write(w, http.StatusOK, out)
}

func (h *RoomHandler) React(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "ROOMS_SERVICE_UNAVAILABLE", "rooms service is unavailable")
		return
	}

	var req dto.ConfessionReactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	kind, valid := enums.ParseEngagementKind(req.Kind)
	if !valid {
		writeBadRequest(w, "VALIDATION_ERROR", "kind must be like, dislike or comment")
		return
	}

	rec, err := h.service.ReactToConfession(r.Context(), accountID, chi.URLParam(r, "id"), kind)
	if err != nil {
		handleRoomError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ConfessionReactionResponse{
		ConfessionID: rec.ID,
		Kind:         string(kind),
	})
}

// roomResponse hides the invite code from everyone but the creator.
func roomResponse(rec pgrepo.RoomRecord, includeInvite bool) dto.RoomResponse {
	out := dto.RoomResponse{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		CreatorID:   rec.CreatorID,
		IsPrivate:   rec.IsPrivate,
		MemberCount: rec.MemberCount,
		CreatedAt:   rec.CreatedAt,
	}
	if includeInvite && rec.InviteCode != nil {
		out.InviteCode = *rec.InviteCode
	}
	return out
}

func handleRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, roomsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "request validation failed")
	case errors.Is(err, roomsvc.ErrBanned):
		writeForbidden(w, "ACCOUNT_BANNED", "banned accounts cannot use rooms")
	case errors.Is(err, roomsvc.ErrRoomNotFound):
		writeNotFound(w, "ROOM_NOT_FOUND", "room not found")
	case errors.Is(err, roomsvc.ErrConfessionNotFound):
		writeNotFound(w, "CONFESSION_NOT_FOUND", "confession not found")
	case errors.Is(err, roomsvc.ErrPrivateRoom):
		writeForbidden(w, "PRIVATE_ROOM", "this room is invite only")
	case errors.Is(err, roomsvc.ErrNotMember):
		writeForbidden(w, "NOT_A_MEMBER", "join the room first")
	case errors.Is(err, ledgersvc.ErrInsufficientCredits):
		writePaymentRequired(w, "INSUFFICIENT_CREDITS", "not enough credits")
	case errors.Is(err, ledgersvc.ErrAccountNotFound):
		writeNotFound(w, "ACCOUNT_NOT_FOUND", "account not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "room request failed")
	}
}

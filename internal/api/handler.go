package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/ognivo/streak-api/internal/service"
)

// ErrUnknownAction is reported when the action name matches no handler.
var ErrUnknownAction = errors.New("Unknown action")

// Handler routes an {"action": ...} request to the matching streak
// operation. Every action is a POST to the root path; OPTIONS is the
// CORS preflight and short-circuits before any store access.
type Handler struct {
	service *service.StreakService
}

func New(s *service.StreakService) *Handler {
	return &Handler{service: s}
}

type registerRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
}

type inviteRequest struct {
	InviterTelegramID int64  `json:"inviter_telegram_id"`
	InviteeUsername   string `json:"invitee_username"`
}

type acceptInviteRequest struct {
	StreakID int64 `json:"streak_id"`
}

type sendMessageRequest struct {
	StreakID         int64  `json:"streak_id"`
	SenderTelegramID int64  `json:"sender_telegram_id"`
	MessageText      string `json:"message_text"`
}

type getStreaksRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

type restoreStreakRequest struct {
	StreakID int64 `json:"streak_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		preflight(w)
		return
	}
	if r.Method == http.MethodGet && r.ContentLength == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.fail(w, err)
		return
	}
	var envelope struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.dispatch(r, envelope.Action, body)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// dispatch decodes the action-specific payload and runs the operation.
// Exact, case-sensitive match on the action name.
func (h *Handler) dispatch(r *http.Request, action string, body []byte) (any, error) {
	ctx := r.Context()
	switch action {
	case "register":
		var req registerRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		return h.service.Register(ctx, req.TelegramID, req.Username, req.FirstName)
	case "invite":
		var req inviteRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		return h.service.Invite(ctx, req.InviterTelegramID, req.InviteeUsername)
	case "accept_invite":
		var req acceptInviteRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		return h.service.AcceptInvite(ctx, req.StreakID)
	case "send_message":
		var req sendMessageRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		return h.service.SendMessage(ctx, req.StreakID, req.SenderTelegramID, req.MessageText)
	case "get_streaks":
		var req getStreaksRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		return h.service.GetStreaks(ctx, req.TelegramID)
	case "restore_streak":
		var req restoreStreakRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, err
		}
		return h.service.RestoreStreak(ctx, req.StreakID)
	case "check_daily":
		return h.service.CheckDaily(ctx)
	default:
		return nil, ErrUnknownAction
	}
}

// fail writes the error result. Domain failures and the unknown-action
// fallthrough keep the 200 status the original handler used for them;
// everything else is an infrastructure fault and reports 500 with the
// raw error text.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if service.IsDomainError(err) || errors.Is(err, ErrUnknownAction) {
		status = http.StatusOK
	} else {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func preflight(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, X-User-Id")
	h.Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

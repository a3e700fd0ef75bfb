package api

import (
	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"chat-hub/observability"
	"chat-hub/services"
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	log      *slog.Logger
	auth     services.IAuthService
	users    services.IUserService
	registry contract.IRegistry
}

func NewHandler(log *slog.Logger, authService services.IAuthService, users services.IUserService, registry contract.IRegistry) *Handler {
	return &Handler{log: log, auth: authService, users: users, registry: registry}
}

type tokenResponse struct {
	Token string          `json:"token"`
	User  domain.UserView `json:"user"`
}

type HealthResponse struct {
	Status      string                     `json:"status"`
	Connections int                        `json:"connections"`
	Process     observability.ProcessStats `json:"process"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, errors.Invalid(err))
		return
	}
	token, user, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusCreated, tokenResponse{Token: token.String(), User: user.SelfView()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, errors.Invalid(err))
		return
	}
	token, user, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, tokenResponse{Token: token.String(), User: user.SelfView()})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.Error(w, errors.ErrUnauthenticated)
		return
	}
	view, err := h.users.Me(r.Context(), user.ID)
	if err != nil {
		h.Error(w, err)
		return
	}
	h.JSON(w, http.StatusOK, view)
}

// Health reports degraded, not failed, when the OS figures cannot be read.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	stats, err := observability.CurrentProcess()
	status := "healthy"
	if err != nil {
		h.log.Warn("Failed to read process stats", "error", err)
		status = "degraded"
	}
	h.JSON(w, http.StatusOK, HealthResponse{
		Status:      status,
		Connections: h.registry.Count(),
		Process:     stats,
	})
}

func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error maps err to its status. Internal errors are logged and never detailed.
func (h *Handler) Error(w http.ResponseWriter, err error) {
	code := errors.Code(err)
	if code == errors.CodeInternal {
		h.log.Error("Request failed", "error", err)
	}
	h.JSON(w, statusOf(code), map[string]any{
		"error": map[string]string{"code": code, "message": errors.Message(err)},
	})
}

func statusOf(code string) int {
	switch code {
	case "unauthenticated", "invalid_credentials":
		return http.StatusUnauthorized
	case "invalid_payload":
		return http.StatusBadRequest
	case "forbidden":
		return http.StatusForbidden
	case "user_not_found", "chat_not_found", "message_not_found":
		return http.StatusNotFound
	case "conflict", "username_taken", "email_taken":
		return http.StatusConflict
	case "rate_limited":
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

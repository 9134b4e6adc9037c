package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"eli-dashboard/internal/models"
	"eli-dashboard/internal/service"
	"eli-dashboard/internal/util"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	responder
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{responder: responder{logger: logger}, userService: userService}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{userID}", h.GetUser)
		r.Put("/{userID}", h.UpdateUser)
		r.Delete("/{userID}", h.DeleteUser)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.ListUsers(r.Context())
	if err != nil {
		h.respondWithError(w, r, err, "Users endpoint failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, nonNil(users))
}

// CreateUser handles user creation
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req models.UserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	user, err := h.userService.CreateUser(r.Context(), req)
	if err != nil {
		h.respondWithError(w, r, err, "Users endpoint failed")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, user)
	h.logger.Info("User created via HTTP",
		util.Int64("user_id", user.ID),
		util.Duration("duration", time.Since(startTime)),
	)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid user ID format"})
		return
	}
	user, err := h.userService.GetUser(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err, "Users endpoint failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid user ID format"})
		return
	}
	var req models.UserInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	user, err := h.userService.UpdateUser(r.Context(), id, req)
	if err != nil {
		h.respondWithError(w, r, err, "Users endpoint failed")
		return
	}
	h.respondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid user ID format"})
		return
	}
	if err := h.userService.DeleteUser(r.Context(), id); err != nil {
		h.respondWithError(w, r, err, "Users endpoint failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

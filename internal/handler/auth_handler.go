package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"eli-dashboard/internal/auth"
	"eli-dashboard/internal/service"
)

// AuthHandler serves /api/login and guards the private routes.
type AuthHandler struct {
	responder
	authService  *service.AuthService
	secureCookie bool
}

func NewAuthHandler(authService *service.AuthService, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		responder:    responder{logger: logger},
		authService:  authService,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.HandleFunc("/login", h.Login)
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login dispatches on method: POST signs in, GET checks the session,
// DELETE signs out.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.signIn(w, r)
	case http.MethodGet:
		h.sessionStatus(w, r)
	case http.MethodDelete:
		h.signOut(w, r)
	default:
		w.Header().Set("Allow", "POST, GET, DELETE")
		h.methodNotAllowed(w)
	}
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	// an unreadable body is treated as a missing password
	_ = json.NewDecoder(r.Body).Decode(&body)

	token, err := h.authService.Login(r.Context(), h.loginRequest(r, body.Password))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrUnauthorized):
		h.respondWithJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid password"})
		return
	case errors.Is(err, service.ErrRateLimited):
		h.respondWithJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Too many failed attempts, try again later"})
		return
	default:
		h.respondWithError(w, r, err, "Login failed")
		return
	}

	http.SetCookie(w, auth.SessionCookie(h.authService.CookieName(), token, h.authService.TokenTTL(), h.secureCookie))
	h.respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *AuthHandler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	token, err := auth.TokenFromRequest(r, h.authService.CookieName())
	if err == nil {
		err = h.authService.Authenticate(token)
	}
	if err != nil {
		h.respondWithJSON(w, http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]bool{"authenticated": true})
}

func (h *AuthHandler) signOut(w http.ResponseWriter, r *http.Request) {
	h.authService.Logout(r.Context(), h.loginRequest(r, ""))
	http.SetCookie(w, auth.SessionCookie(h.authService.CookieName(), "", 0, h.secureCookie))
	h.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) loginRequest(r *http.Request, password string) service.LoginRequest {
	return service.LoginRequest{
		Password:  password,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		RequestID: middleware.GetReqID(r.Context()),
	}
}

// RequireAuth rejects requests without a valid session token. Preflight
// requests always pass.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token, err := auth.TokenFromRequest(r, h.authService.CookieName())
		if err == nil {
			err = h.authService.Authenticate(token)
		}
		if err != nil {
			h.respondWithJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP relies on middleware.RealIP having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

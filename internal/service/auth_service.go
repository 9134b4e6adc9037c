package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"eli-dashboard/internal/auth"
	"eli-dashboard/internal/config"
	"eli-dashboard/internal/metrics"
	"eli-dashboard/internal/models"
)

const auditTimeout = 2 * time.Second

// LoginThrottle is implemented by redis.LoginLimiter.
type LoginThrottle interface {
	IsLocked(ctx context.Context, ip string) (bool, error)
	RecordFailure(ctx context.Context, ip string) (int, bool, error)
	Reset(ctx context.Context, ip string) error
}

// AuditRecorder is implemented by clickhouse.AuthAuditRepository.
type AuditRecorder interface {
	Record(ctx context.Context, events ...models.AuthEvent) error
}

// PasswordVerifier is implemented by hashing.Hasher.
type PasswordVerifier interface {
	VerifyPassword(password, encoded string) (bool, error)
}

// LoginRequest carries the password plus request metadata for the audit trail.
type LoginRequest struct {
	Password  string
	IP        string
	UserAgent string
	RequestID string
}

// AuthService checks the shared dashboard password and issues session tokens.
// Throttle and audit are optional.
type AuthService struct {
	cfg      config.AuthConfig
	verifier PasswordVerifier
	throttle LoginThrottle
	audit    AuditRecorder
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewAuthService(cfg config.AuthConfig, verifier PasswordVerifier, throttle LoginThrottle, audit AuditRecorder, m *metrics.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		cfg:      cfg,
		verifier: verifier,
		throttle: throttle,
		audit:    audit,
		metrics:  m,
		logger:   logger,
	}
}

// Login returns a signed session token. Wrong or missing passwords yield
// ErrUnauthorized; a locked client IP yields ErrRateLimited.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (string, error) {
	if s.throttle != nil && req.IP != "" {
		locked, err := s.throttle.IsLocked(ctx, req.IP)
		if err != nil {
			s.logger.Warn("Login throttle check failed", zap.Error(err))
		}
		if locked {
			s.record(ctx, req, models.LoginLocked, "")
			return "", fmt.Errorf("login from %s: %w", req.IP, ErrRateLimited)
		}
	}

	if req.Password == "" || !s.passwordMatches(req.Password) {
		detail := ""
		if s.throttle != nil && req.IP != "" {
			failures, locked, err := s.throttle.RecordFailure(ctx, req.IP)
			if err != nil {
				s.logger.Warn("Failed to record login failure", zap.Error(err))
			}
			detail = fmt.Sprintf("failures=%d locked=%t", failures, locked)
		}
		s.record(ctx, req, models.LoginFailure, detail)
		return "", fmt.Errorf("login: %w", ErrUnauthorized)
	}

	if s.cfg.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret: %w", ErrNotConfigured)
	}
	token, err := auth.GenerateToken([]byte(s.cfg.JWTSecret), s.cfg.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	if s.throttle != nil && req.IP != "" {
		if err := s.throttle.Reset(ctx, req.IP); err != nil {
			s.logger.Warn("Failed to reset login failures", zap.Error(err))
		}
	}
	s.record(ctx, req, models.LoginSuccess, "")
	return token, nil
}

// Logout only records the event; the caller clears the cookie.
func (s *AuthService) Logout(ctx context.Context, req LoginRequest) {
	s.record(ctx, req, models.LoginLogout, "")
}

// Authenticate validates a session token.
func (s *AuthService) Authenticate(token string) error {
	if token == "" || s.cfg.JWTSecret == "" {
		return ErrUnauthorized
	}
	if _, err := auth.ValidateToken(token, []byte(s.cfg.JWTSecret)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return nil
}

func (s *AuthService) CookieName() string {
	return s.cfg.CookieName
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.cfg.TokenTTL
}

// passwordMatches prefers the argon2id hash when one is configured.
func (s *AuthService) passwordMatches(password string) bool {
	if s.cfg.PasswordHash != "" && s.verifier != nil {
		ok, err := s.verifier.VerifyPassword(password, s.cfg.PasswordHash)
		if err != nil {
			s.logger.Error("Password hash verification failed", zap.Error(err))
			return false
		}
		return ok
	}
	if s.cfg.Password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
}

func (s *AuthService) record(ctx context.Context, req LoginRequest, outcome, details string) {
	s.metrics.IncLogin(outcome)
	s.logger.Info("Login attempt",
		zap.String("outcome", outcome),
		zap.String("ip", req.IP),
		zap.String("request_id", req.RequestID))

	if s.audit == nil {
		return
	}
	eventType := "login"
	if outcome == models.LoginLogout {
		eventType = "logout"
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	err := s.audit.Record(ctx, models.AuthEvent{
		EventID:   uuid.NewString(),
		EventTime: time.Now(),
		EventType: eventType,
		Outcome:   outcome,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
		RequestID: req.RequestID,
		Details:   details,
	})
	if err != nil {
		s.logger.Warn("Failed to write auth audit event", zap.Error(err))
	}
}

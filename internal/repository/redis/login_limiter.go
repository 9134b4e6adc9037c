package redis

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"eli-dashboard/internal/client"
	"eli-dashboard/internal/util"
)

const (
	opTimeout = 2 * time.Second

	loginFailurePrefix = "login_failures:"
	loginLockPrefix    = "login_lock:"
)

// LoginLimiter counts failed logins per client IP and locks the IP once
// the limit is hit inside the failure window.
type LoginLimiter struct {
	client        *client.RedisClient
	maxFailures   int
	failureWindow time.Duration
	lockDuration  time.Duration
}

func NewLoginLimiter(c *client.RedisClient, maxFailures int, failureWindow, lockDuration time.Duration) *LoginLimiter {
	return &LoginLimiter{
		client:        c,
		maxFailures:   maxFailures,
		failureWindow: failureWindow,
		lockDuration:  lockDuration,
	}
}

func (l *LoginLimiter) IsLocked(ctx context.Context, ip string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	locked, err := l.client.Exists(ctx, loginLockPrefix+ip)
	if err != nil {
		util.Error("Failed to check login lock", zap.String("ip", ip), zap.Error(err))
		return false, fmt.Errorf("failed to check login lock: %w", err)
	}
	return locked, nil
}

// RecordFailure bumps the failure counter and reports whether the IP is now locked.
func (l *LoginLimiter) RecordFailure(ctx context.Context, ip string) (int, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	count, err := l.client.IncrWithExpire(ctx, loginFailurePrefix+ip, l.failureWindow)
	if err != nil {
		util.Error("Failed to increment login failures", zap.String("ip", ip), zap.Error(err))
		return 0, false, fmt.Errorf("failed to increment login failures: %w", err)
	}

	if int(count) < l.maxFailures {
		util.Debug("Login failure recorded", zap.String("ip", ip), zap.Int64("count", count))
		return int(count), false, nil
	}

	if _, err := l.client.SetNX(ctx, loginLockPrefix+ip, "locked", l.lockDuration); err != nil {
		util.Error("Failed to set login lock", zap.String("ip", ip), zap.Error(err))
		return int(count), false, fmt.Errorf("failed to set login lock: %w", err)
	}
	util.Warn("Client locked after repeated login failures",
		zap.String("ip", ip),
		zap.Int64("failures", count),
		zap.Duration("lock", l.lockDuration))
	return int(count), true, nil
}

// Reset clears the counter and any lock after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, ip string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := l.client.Del(ctx, loginFailurePrefix+ip, loginLockPrefix+ip); err != nil {
		util.Error("Failed to reset login failures", zap.String("ip", ip), zap.Error(err))
		return fmt.Errorf("failed to reset login failures: %w", err)
	}
	return nil
}

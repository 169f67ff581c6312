package authcore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// mfaLimiter counts second-factor failures per account in a fixed Redis
// window. INCR is atomic, so concurrent failures never lose updates.
type mfaLimiter struct {
	redis  redis.UniversalClient
	prefix string
	cfg    MFAConfig
}

func newMFALimiter(client redis.UniversalClient, prefix string, cfg MFAConfig) *mfaLimiter {
	return &mfaLimiter{redis: client, prefix: prefix, cfg: cfg}
}

func (l *mfaLimiter) key(accountID string) string {
	return l.prefix + ":mfafail:" + accountID
}

// Locked reports whether the account is over the failure threshold.
func (l *mfaLimiter) Locked(ctx context.Context, accountID string) (bool, error) {
	count, err := l.redis.Get(ctx, l.key(accountID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return count >= int64(l.cfg.LockoutThreshold), nil
}

// RecordFailure increments the failure counter and returns whether the
// account is now locked. The window starts at the first failure.
func (l *mfaLimiter) RecordFailure(ctx context.Context, accountID string) (bool, error) {
	key := l.key(accountID)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.cfg.LockoutWindow).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	return count >= int64(l.cfg.LockoutThreshold), nil
}

// Reset clears the failure counter after a successful verification.
func (l *mfaLimiter) Reset(ctx context.Context, accountID string) error {
	if err := l.redis.Del(ctx, l.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

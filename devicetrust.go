package authcore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeviceTrustStore remembers which client devices have recently passed
// a second-factor check. Trust only gates the MFA challenge on login;
// it never substitutes for the credential check itself.
type DeviceTrustStore struct {
	redis  redis.UniversalClient
	prefix string
	window time.Duration
	now    func() time.Time
}

func NewDeviceTrustStore(client redis.UniversalClient, prefix string, window time.Duration) *DeviceTrustStore {
	if prefix == "" {
		prefix = "ps"
	}
	return &DeviceTrustStore{
		redis:  client,
		prefix: prefix,
		window: window,
		now:    time.Now,
	}
}

func (d *DeviceTrustStore) key(accountID, deviceID string) string {
	return d.prefix + ":dtrust:" + accountID + ":" + deviceID
}

// Trust records the device as remembered until now + window.
func (d *DeviceTrustStore) Trust(ctx context.Context, accountID, deviceID string) error {
	if accountID == "" || deviceID == "" {
		return fmt.Errorf("account id and device id are required")
	}

	until := d.now().Add(d.window)
	err := d.redis.Set(ctx, d.key(accountID, deviceID), until.Format(time.RFC3339), d.window).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// IsTrusted reports whether the device's trust entry exists and has not
// passed its trusted-until timestamp. The stored timestamp is checked
// in addition to the key TTL so a clock-skewed entry fails closed.
func (d *DeviceTrustStore) IsTrusted(ctx context.Context, accountID, deviceID string) (bool, error) {
	if accountID == "" || deviceID == "" {
		return false, nil
	}

	raw, err := d.redis.Get(ctx, d.key(accountID, deviceID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	until, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return false, nil
	}
	return d.now().Before(until), nil
}

// Forget drops the trust entry, forcing an MFA challenge on next login.
func (d *DeviceTrustStore) Forget(ctx context.Context, accountID, deviceID string) error {
	if err := d.redis.Del(ctx, d.key(accountID, deviceID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// ForgetAll drops every trust entry for the account.
func (d *DeviceTrustStore) ForgetAll(ctx context.Context, accountID string) error {
	pattern := d.prefix + ":dtrust:" + accountID + ":*"

	var cursor uint64
	for {
		keys, next, err := d.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if len(keys) > 0 {
			if err := d.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

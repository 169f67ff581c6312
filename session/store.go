package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrBackendUnavailable wraps Redis transport failures.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// ErrNotFound is returned when the referenced session does not exist.
var ErrNotFound = errors.New("session not found")

// ErrAlreadyRevoked is returned when revoking a session that is already
// revoked. Callers treat it as success; it is distinct so audit records
// can tell the two apart.
var ErrAlreadyRevoked = errors.New("session already revoked")

// reclaimGrace is added to the Redis key TTL beyond the session expiry.
// Reclamation is the authoritative deleter; the key TTL is only a
// backstop against a store whose reclamation job never runs.
const reclaimGrace = 24 * time.Hour

// Store persists sessions in Redis. Layout: one JSON blob per session,
// a per-account set of session IDs, and one global set over all session
// IDs that reclamation walks.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "ps"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) sessionKey(id string) string {
	return s.prefix + ":sess:" + id
}

func (s *Store) accountKey(accountID string) string {
	return s.prefix + ":acct:" + accountID
}

func (s *Store) indexKey() string {
	return s.prefix + ":index"
}

// Create persists a new session. The caller supplies ID, timestamps, and
// expiry; a just-created session is always unrevoked with an expiry in
// the future, which is what keeps it safe from a concurrent Reclaim.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" || sess.AccountID == "" {
		return errors.New("session id and account id are required")
	}
	if !sess.ExpiresAt.After(s.now()) {
		return errors.New("session expiry must be in the future")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	ttl := time.Until(sess.ExpiresAt) + reclaimGrace

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.sessionKey(sess.ID), data, ttl)
		pipe.SAdd(ctx, s.accountKey(sess.AccountID), sess.ID)
		pipe.SAdd(ctx, s.indexKey(), sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return nil
}

// Get returns the stored session record, revoked or not. Callers decide
// what revocation and expiry mean for their flow.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Touch updates the session's last-activity timestamp.
func (s *Store) Touch(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.LastActiveAt = s.now()
	return s.save(ctx, sess)
}

// List returns all live (unrevoked, unexpired) sessions for an account,
// each annotated with whether it is currentID. Stale index members whose
// blob has been reclaimed or TTL-evicted are pruned as a side effect.
func (s *Store) List(ctx context.Context, accountID, currentID string) ([]View, error) {
	ids, err := s.redis.SMembers(ctx, s.accountKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []View{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if len(ids) == 0 {
		return []View{}, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, s.sessionKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	now := s.now()
	views := make([]View, 0, len(ids))
	var stale []interface{}
	for i, cmd := range cmds {
		data, cmdErr := cmd.Bytes()
		if cmdErr != nil {
			if errors.Is(cmdErr, redis.Nil) {
				stale = append(stale, ids[i])
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, cmdErr)
		}

		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", ids[i], err)
		}
		if !sess.Live(now) {
			continue
		}
		views = append(views, View{Session: sess, IsCurrent: sess.ID == currentID})
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, s.accountKey(accountID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	return views, nil
}

// Revoke marks a session revoked. Revoking a session that is already
// revoked returns ErrAlreadyRevoked; physical deletion is left to
// Reclaim so the record stays observable until then.
func (s *Store) Revoke(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Revoked {
		return ErrAlreadyRevoked
	}

	sess.Revoked = true
	return s.save(ctx, sess)
}

// RevokeAllExcept revokes every live session of the account other than
// keepID and returns the number revoked. keepID is never touched.
func (s *Store) RevokeAllExcept(ctx context.Context, accountID, keepID string) (int, error) {
	views, err := s.List(ctx, accountID, keepID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, v := range views {
		if v.IsCurrent {
			continue
		}
		if err := s.Revoke(ctx, v.ID); err != nil {
			if errors.Is(err, ErrAlreadyRevoked) || errors.Is(err, ErrNotFound) {
				continue
			}
			return revoked, err
		}
		revoked++
	}

	return revoked, nil
}

// Reclaim deletes every session that is expired or revoked and returns
// the count removed. Index members whose blob is already gone are pruned
// without counting. Sessions that are live at the time of the read are
// never deleted, so Reclaim is safe to run concurrently with Create.
func (s *Store) Reclaim(ctx context.Context) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	now := s.now()
	removed := 0
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				if err := s.redis.SRem(ctx, s.indexKey(), id).Err(); err != nil {
					return removed, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
				}
				continue
			}
			return removed, err
		}

		if sess.Live(now) {
			continue
		}

		if err := s.delete(ctx, sess); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

func (s *Store) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	ttl := time.Until(sess.ExpiresAt) + reclaimGrace
	if ttl < time.Second {
		ttl = time.Second
	}

	if err := s.redis.Set(ctx, s.sessionKey(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, sess *Session) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.sessionKey(sess.ID))
		pipe.SRem(ctx, s.accountKey(sess.AccountID), sess.ID)
		pipe.SRem(ctx, s.indexKey(), sess.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

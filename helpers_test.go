package authcore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeAccounts struct {
	mu       sync.Mutex
	byID     map[string]*AccountRecord
	byHandle map[string]string
	nextID   int
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		byID:     make(map[string]*AccountRecord),
		byHandle: make(map[string]string),
	}
}

func (f *fakeAccounts) HasAccounts(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID) > 0, nil
}

func (f *fakeAccounts) GetByHandle(ctx context.Context, handle string) (*AccountRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byHandle[handle]
	if !ok {
		return nil, ErrAccountNotFound
	}
	clone := *f.byID[id]
	return &clone, nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, id string) (*AccountRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byID[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeAccounts) Create(ctx context.Context, account *AccountRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byHandle[account.Handle]; exists {
		return ErrHandleTaken
	}
	f.nextID++
	account.ID = fmt.Sprintf("acct-%d", f.nextID)
	stored := *account
	f.byID[account.ID] = &stored
	f.byHandle[account.Handle] = account.ID
	return nil
}

func (f *fakeAccounts) UpdateProfile(ctx context.Context, id string, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	rec.Email = email
	return nil
}

func (f *fakeAccounts) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	rec.PasswordHash = hash
	return nil
}

func (f *fakeAccounts) IncrementLoginCount(ctx context.Context, id string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byID[id]
	if !ok {
		return 0, ErrAccountNotFound
	}
	rec.LoginCount++
	return rec.LoginCount, nil
}

func (f *fakeAccounts) SetMFAEnabled(ctx context.Context, id string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	rec.MFAEnabled = enabled
	return nil
}

func (f *fakeAccounts) SetFirstSetupDone(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byID[id]
	if !ok {
		return ErrAccountNotFound
	}
	rec.FirstSetup = false
	return nil
}

type fakeTFAStore struct {
	mu    sync.Mutex
	creds map[string]*TFACredential
}

func newFakeTFAStore() *fakeTFAStore {
	return &fakeTFAStore{creds: make(map[string]*TFACredential)}
}

func (f *fakeTFAStore) GetTFACredential(ctx context.Context, accountID string) (*TFACredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.creds[accountID]
	if !ok {
		return nil, nil
	}
	clone := *cred
	clone.BackupCodeHashes = append([]string(nil), cred.BackupCodeHashes...)
	return &clone, nil
}

func (f *fakeTFAStore) SaveTFACredential(ctx context.Context, accountID string, cred *TFACredential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *cred
	stored.BackupCodeHashes = append([]string(nil), cred.BackupCodeHashes...)
	f.creds[accountID] = &stored
	return nil
}

func (f *fakeTFAStore) DeleteTFACredential(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.creds, accountID)
	return nil
}

// plainVerifier avoids argon2 cost in tests; the real verifier has its
// own package tests.
type plainVerifier struct{}

func (plainVerifier) Hash(secret string) (string, error) { return "plain:" + secret, nil }

func (plainVerifier) Verify(secret, encoded string) (bool, error) {
	return encoded == "plain:"+secret, nil
}

// slowVerifier hangs until the context would have long expired; used to
// exercise the fail-closed verification timeout.
type slowVerifier struct {
	delay time.Duration
}

func (s slowVerifier) Hash(secret string) (string, error) { return "plain:" + secret, nil }

func (s slowVerifier) Verify(secret, encoded string) (bool, error) {
	time.Sleep(s.delay)
	return true, nil
}

type testEnv struct {
	mgr      *Manager
	accounts *fakeAccounts
	tfaStore *fakeTFAStore
	redis    *miniredis.Miniredis
}

func newTestEnv(t *testing.T, mutate func(*Config), verifier CredentialVerifier) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultConfig()
	cfg.VerifyTimeout = 250 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	accounts := newFakeAccounts()
	tfaStore := newFakeTFAStore()

	if verifier == nil {
		verifier = plainVerifier{}
	}

	mgr, err := NewBuilder().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountProvider(accounts).
		WithTFAProvider(tfaStore).
		WithCredentialVerifier(verifier).
		WithTokenKey([]byte("0123456789abcdef0123456789abcdef"), nil).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(mgr.Close)

	return &testEnv{mgr: mgr, accounts: accounts, tfaStore: tfaStore, redis: mr}
}

func (e *testEnv) start(t *testing.T) {
	t.Helper()
	if _, err := e.mgr.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
}

func (e *testEnv) seedAccount(t *testing.T, handle, secret string, mfaEnabled bool) *AccountRecord {
	t.Helper()
	account := &AccountRecord{
		Handle:       handle,
		Email:        handle + "@example.test",
		PasswordHash: "plain:" + secret,
		Role:         "operator",
		MFAEnabled:   mfaEnabled,
	}
	if err := e.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("seed account failed: %v", err)
	}
	return account
}

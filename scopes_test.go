package authcore

import (
	"context"
	"errors"
	"testing"
)

func apiToken(scopes map[string]interface{}) *APIToken {
	return &APIToken{
		Key:             "tok-1",
		AccountID:       "acct-1",
		IntegrationType: IntegrationTypeAPI,
		Scopes:          scopes,
	}
}

func TestAuthorizeGrantedAction(t *testing.T) {
	v := NewScopedTokenValidator()
	tok := apiToken(map[string]interface{}{"host": []string{"get", "put"}})

	if err := v.Authorize(tok, "host", "get"); err != nil {
		t.Fatalf("get on host should be authorized, got %v", err)
	}
	if err := v.Authorize(tok, "host", "put"); err != nil {
		t.Fatalf("put on host should be authorized, got %v", err)
	}
}

func TestAuthorizeDeniesUngranted(t *testing.T) {
	v := NewScopedTokenValidator()
	tok := apiToken(map[string]interface{}{"host": []string{"get", "put"}})

	if err := v.Authorize(tok, "host", "delete"); !errors.Is(err, ErrScopeDenied) {
		t.Fatalf("delete on host: expected ErrScopeDenied, got %v", err)
	}
	if err := v.Authorize(tok, "package", "get"); !errors.Is(err, ErrScopeDenied) {
		t.Fatalf("absent resource: expected ErrScopeDenied, got %v", err)
	}
}

func TestAuthorizeNoWildcards(t *testing.T) {
	v := NewScopedTokenValidator()
	tok := apiToken(map[string]interface{}{"host": []string{"*"}})

	if err := v.Authorize(tok, "host", "get"); !errors.Is(err, ErrScopeDenied) {
		t.Fatalf("wildcard must not expand, got %v", err)
	}
}

func TestAuthorizeMalformedGrantFailsClosed(t *testing.T) {
	v := NewScopedTokenValidator()

	cases := map[string]*APIToken{
		"nil scope map":     apiToken(nil),
		"non-list grant":    apiToken(map[string]interface{}{"host": "get"}),
		"numeric grant":     apiToken(map[string]interface{}{"host": 42}),
		"non-string action": apiToken(map[string]interface{}{"host": []interface{}{"get", 7}}),
	}

	for name, tok := range cases {
		if err := v.Authorize(tok, "host", "get"); !errors.Is(err, ErrScopeConfigInvalid) {
			t.Fatalf("%s: expected ErrScopeConfigInvalid, got %v", name, err)
		}
	}

	if err := v.Authorize(nil, "host", "get"); !errors.Is(err, ErrScopeConfigInvalid) {
		t.Fatalf("nil token: expected ErrScopeConfigInvalid, got %v", err)
	}
}

func TestAuthorizeJSONShapedGrant(t *testing.T) {
	v := NewScopedTokenValidator()
	tok := apiToken(map[string]interface{}{"host": []interface{}{"get", "put"}})

	if err := v.Authorize(tok, "host", "get"); err != nil {
		t.Fatalf("JSON-decoded grant should be authorized, got %v", err)
	}
}

func TestAuthorizeSkipsNonProgrammaticTokens(t *testing.T) {
	v := NewScopedTokenValidator()
	tok := &APIToken{
		Key:             "tok-ui",
		IntegrationType: "web",
		// Even a malformed grant is irrelevant for interactive tokens.
		Scopes: map[string]interface{}{"host": 42},
	}

	if err := v.Authorize(tok, "host", "delete"); err != nil {
		t.Fatalf("non-programmatic token must skip validation, got %v", err)
	}
}

func TestManagerAuthorizeTokenCountsDecisions(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.start(t)

	tok := apiToken(map[string]interface{}{"host": []string{"get"}})

	if err := env.mgr.AuthorizeToken(context.Background(), tok, "host", "get"); err != nil {
		t.Fatalf("expected authorization, got %v", err)
	}
	if err := env.mgr.AuthorizeToken(context.Background(), tok, "host", "delete"); !errors.Is(err, ErrScopeDenied) {
		t.Fatalf("expected ErrScopeDenied, got %v", err)
	}
	if err := env.mgr.AuthorizeToken(context.Background(), apiToken(nil), "host", "get"); !errors.Is(err, ErrScopeConfigInvalid) {
		t.Fatalf("expected ErrScopeConfigInvalid, got %v", err)
	}

	snap := env.mgr.MetricsSnapshot()
	if snap["authcore_scope_allowed_total"] != 1 {
		t.Fatalf("expected 1 allowed, got %d", snap["authcore_scope_allowed_total"])
	}
	if snap["authcore_scope_denied_total"] != 1 {
		t.Fatalf("expected 1 denied, got %d", snap["authcore_scope_denied_total"])
	}
	if snap["authcore_scope_config_invalid_total"] != 1 {
		t.Fatalf("expected 1 config-invalid, got %d", snap["authcore_scope_config_invalid_total"])
	}
}

package authcore

import "fmt"

// ScopedTokenValidator authorizes programmatic API tokens against a
// resource/action scope grant. Interactive tokens (any integration type
// other than "api") are authorized purely by session validity and skip
// scope validation entirely.
//
// Validation fails closed: a structurally malformed grant denies the
// request with ErrScopeConfigInvalid rather than allowing it.
type ScopedTokenValidator struct{}

func NewScopedTokenValidator() *ScopedTokenValidator {
	return &ScopedTokenValidator{}
}

// Authorize checks whether the token permits action on resource.
func (v *ScopedTokenValidator) Authorize(token *APIToken, resource, action string) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrScopeConfigInvalid)
	}
	if token.IntegrationType != IntegrationTypeAPI {
		return nil
	}
	if resource == "" || action == "" {
		return fmt.Errorf("%w: empty resource or action", ErrScopeDenied)
	}

	if token.Scopes == nil {
		return fmt.Errorf("%w: missing scope map", ErrScopeConfigInvalid)
	}

	grant, ok := token.Scopes[resource]
	if !ok {
		return fmt.Errorf("%w: resource %q not granted", ErrScopeDenied, resource)
	}

	actions, err := scopeActions(grant)
	if err != nil {
		return err
	}

	for _, a := range actions {
		if a == action {
			return nil
		}
	}
	return fmt.Errorf("%w: action %q not granted on %q", ErrScopeDenied, action, resource)
}

// scopeActions coerces a grant value into its action list. Grants
// arrive from JSON configuration, so both []string and []interface{}
// shapes are accepted; anything else is malformed.
func scopeActions(grant interface{}) ([]string, error) {
	switch v := grant.(type) {
	case []string:
		return v, nil
	case []interface{}:
		actions := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: non-string action in grant", ErrScopeConfigInvalid)
			}
			actions = append(actions, s)
		}
		return actions, nil
	default:
		return nil, fmt.Errorf("%w: grant is not an action list", ErrScopeConfigInvalid)
	}
}

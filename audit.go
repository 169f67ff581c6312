package authcore

import (
	"context"
	"time"

	"github.com/pulseboard/authcore/internal/audit"
)

// Audit event types emitted by the identity core.
const (
	EventLogin            = "auth.login"
	EventLoginMFARequired = "auth.login.mfa_required"
	EventMFAVerify        = "auth.mfa.verify"
	EventMFALocked        = "auth.mfa.locked"
	EventLogout           = "auth.logout"
	EventSignup           = "auth.signup"
	EventSessionRevoke    = "auth.session.revoke"
	EventSessionRevokeAll = "auth.session.revoke_all"
	EventSessionReclaim   = "auth.session.reclaim"
	EventPasswordChange   = "auth.password.change"
	EventProfileUpdate    = "auth.profile.update"
	EventTFASetup         = "auth.tfa.setup"
	EventTFAEnable        = "auth.tfa.enable"
	EventTFADisable       = "auth.tfa.disable"
	EventBackupRegenerate = "auth.tfa.backup_regenerate"
	EventDeviceTrusted    = "auth.device.trusted"
	EventScopeDecision    = "auth.scope.decision"
	EventSessionRestored  = "auth.session.restored"
)

func (m *Manager) emitAudit(ctx context.Context, eventType, accountID, sessionID string, success bool, opErr error, meta map[string]string) {
	if m.dispatcher == nil {
		return
	}

	event := audit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		AccountID: accountID,
		SessionID: sessionID,
		DeviceID:  DeviceIDFromContext(ctx),
		IP:        ClientIPFromContext(ctx),
		Success:   success,
		Metadata:  meta,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}

	m.dispatcher.Emit(ctx, event)
}

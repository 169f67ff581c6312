package authcore

import "context"

type contextKey int

const (
	ctxKeyClientIP contextKey = iota
	ctxKeyUserAgent
	ctxKeyGeoHint
	ctxKeyDeviceID
)

// WithClientIP attaches the caller's IP for session metadata and audit.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// WithUserAgent attaches the caller's user-agent string.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// WithGeoHint attaches a resolved geolocation hint ("Berlin, DE").
func WithGeoHint(ctx context.Context, hint string) context.Context {
	return context.WithValue(ctx, ctxKeyGeoHint, hint)
}

// WithDeviceID attaches the client-persisted device identifier.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, ctxKeyDeviceID, deviceID)
}

// ClientIPFromContext returns the attached client IP, if any.
func ClientIPFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyClientIP).(string)
	return v
}

// UserAgentFromContext returns the attached user agent, if any.
func UserAgentFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserAgent).(string)
	return v
}

// GeoHintFromContext returns the attached geolocation hint, if any.
func GeoHintFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyGeoHint).(string)
	return v
}

// DeviceIDFromContext returns the attached device identifier, if any.
func DeviceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyDeviceID).(string)
	return v
}

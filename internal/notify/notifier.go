package notify

import "context"

// Notifier is the in-app/push notification boundary. Delivery mechanics live
// in a separate consumer; callers treat Notify as fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, tenantID int64, typ, title, message string, data map[string]any)
}

// Noop discards notifications. Used in tests and when Kafka is not configured.
type Noop struct{}

func (Noop) Notify(context.Context, int64, string, string, string, map[string]any) {}

package model

// NotificationEnvelope is the payload published to the notifications topic.
// In-app/push delivery is handled by a separate consumer.
type NotificationEnvelope struct {
	TenantID int64          `json:"tenant_id"`
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

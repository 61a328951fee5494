package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Webhook event types a tenant may subscribe to.
const (
	EventLeadCreated        = "lead.created"
	EventLeadUpdated        = "lead.updated"
	EventAppointmentCreated = "appointment.created"
	EventAppointmentUpdated = "appointment.updated"
)

// EventSet is the subscribed event-type list, stored as a JSON array column.
type EventSet []string

func (s EventSet) Contains(eventType string) bool {
	for _, e := range s {
		if e == eventType {
			return true
		}
	}
	return false
}

func (s EventSet) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *EventSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("event set: cannot scan %T", src)
	}
}

// WebhookSubscription is a tenant's single outbound endpoint configuration.
type WebhookSubscription struct {
	TenantID        int64      `db:"tenant_id"`
	URL             string     `db:"url"`
	Secret          *string    `db:"secret"`
	Events          EventSet   `db:"events"`
	IsActive        bool       `db:"is_active"`
	LastTriggeredAt *time.Time `db:"last_triggered_at"`
	FailureCount    int64      `db:"failure_count"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// ChallengeBody is the first message of the challenge/ack handshake. No tenant
// data leaves the system until the destination echoes the nonce back.
type ChallengeBody struct {
	Type      string `json:"type"` // always "webhook_challenge"
	Nonce     string `json:"nonce"`
	Timestamp string `json:"timestamp"` // ISO-8601
}

// ChallengeAck is the accepted JSON response body for a challenge.
type ChallengeAck struct {
	Ack   bool   `json:"ack"`
	Nonce string `json:"nonce"`
}

// DeliveryBody wraps the event payload sent after a successful handshake.
type DeliveryBody struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"` // ISO-8601
	Data      any    `json:"data"`
}

// LeadEventData is the data shape for lead.created / lead.updated.
type LeadEventData struct {
	LeadID  string  `json:"leadId"`
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Summary *string `json:"summary"`
	Status  string  `json:"status"`
}

// AppointmentEventData is the data shape for appointment.created / appointment.updated.
// Appointments are managed outside this service; it only carries their events.
type AppointmentEventData struct {
	AppointmentID string  `json:"appointmentId"`
	LeadID        string  `json:"leadId"`
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Type          string  `json:"type"`
	StartTime     string  `json:"startTime"`
	EndTime       string  `json:"endTime"`
	Status        string  `json:"status"`
	LeadName      *string `json:"leadName"`
	LeadPhone     *string `json:"leadPhone"`
}

// LeadEvent builds the webhook payload for a lead record.
func LeadEvent(l Lead) LeadEventData {
	return LeadEventData{
		LeadID:  l.ID,
		Name:    l.Name,
		Phone:   l.Phone,
		Email:   l.Email,
		Summary: l.Summary,
		Status:  l.Status.String(),
	}
}

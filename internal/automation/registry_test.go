package automation

import (
	"context"
	"testing"

	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
)

func TestRegisterRejectsUnknownPairs(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, Event) {}

	if err := r.Register(Trigger("lead.deleted"), ActionWebhook, noop); err == nil {
		t.Fatalf("unknown trigger must be rejected")
	}
	if err := r.Register(TriggerLeadCreated, Action("email"), noop); err == nil {
		t.Fatalf("unknown action must be rejected")
	}
	if err := r.Register(TriggerLeadCreated, ActionWebhook, noop); err != nil {
		t.Fatalf("valid pair rejected: %v", err)
	}
}

func TestFireRunsOnlyMatchingTrigger(t *testing.T) {
	r := NewRegistry()
	var created, updated, notified int

	_ = r.Register(TriggerLeadCreated, ActionWebhook, func(context.Context, Event) { created++ })
	_ = r.Register(TriggerLeadUpdated, ActionWebhook, func(context.Context, Event) { updated++ })
	_ = r.Register(TriggerLeadCreated, ActionNotification, func(context.Context, Event) { notified++ })

	r.Fire(context.Background(), Event{TenantID: 1, Trigger: TriggerLeadCreated, Lead: model.Lead{ID: "01H"}})

	if created != 1 || notified != 1 || updated != 0 {
		t.Fatalf("created=%d updated=%d notified=%d", created, updated, notified)
	}
}

package automation

import (
	"context"
	"fmt"

	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
)

// Trigger is a state-change event that can fire automations.
type Trigger string

// Action is what an automation does when its trigger fires.
type Action string

const (
	TriggerLeadCreated Trigger = model.EventLeadCreated
	TriggerLeadUpdated Trigger = model.EventLeadUpdated
)

const (
	ActionWebhook      Action = "webhook"
	ActionNotification Action = "notification"
)

func (t Trigger) Valid() bool {
	return t == TriggerLeadCreated || t == TriggerLeadUpdated
}

func (a Action) Valid() bool {
	return a == ActionWebhook || a == ActionNotification
}

// Event is what handlers receive when a trigger fires.
type Event struct {
	TenantID int64
	Trigger  Trigger
	Lead     model.Lead
}

type Handler func(ctx context.Context, ev Event)

type key struct {
	trigger Trigger
	action  Action
}

// Registry maps (trigger, action) pairs to handlers. The pair space is
// closed: registering an unknown trigger or action is an error, so the full
// action table stays exhaustively checkable.
type Registry struct {
	handlers map[key][]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[key][]Handler)}
}

func (r *Registry) Register(t Trigger, a Action, h Handler) error {
	if !t.Valid() {
		return fmt.Errorf("automation: unknown trigger %q", t)
	}
	if !a.Valid() {
		return fmt.Errorf("automation: unknown action %q", a)
	}
	k := key{trigger: t, action: a}
	r.handlers[k] = append(r.handlers[k], h)
	return nil
}

// Fire runs every handler registered for the event's trigger, across all
// action types. Handlers are fire-and-forget from the caller's perspective;
// they must not return errors to the capture path.
func (r *Registry) Fire(ctx context.Context, ev Event) {
	for _, a := range []Action{ActionWebhook, ActionNotification} {
		for _, h := range r.handlers[key{trigger: ev.Trigger, action: a}] {
			h(ctx, ev)
		}
	}
}

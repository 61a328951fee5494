package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
)

type fakeSubsRepo struct {
	mu        sync.Mutex
	sub       *model.WebhookSubscription
	failures  int
	delivered int
}

func (f *fakeSubsRepo) GetByTenant(context.Context, int64) (*model.WebhookSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub == nil {
		return nil, nil
	}
	cp := *f.sub
	return &cp, nil
}

func (f *fakeSubsRepo) Upsert(context.Context, model.WebhookSubscription) error { return nil }

func (f *fakeSubsRepo) RecordFailure(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	return nil
}

func (f *fakeSubsRepo) RecordDelivered(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delivered++
	return nil
}

func (f *fakeSubsRepo) counts() (failures, delivered int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures, f.delivered
}

type recordedRequest struct {
	body      []byte
	signature string
}

// endpoint is a scripted destination: it answers the challenge per mode and
// records every request it receives.
type endpoint struct {
	mu       sync.Mutex
	requests []recordedRequest
	mode     string // header-ack | body-ack | reject | wrong-nonce
}

func (e *endpoint) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		e.mu.Lock()
		e.requests = append(e.requests, recordedRequest{
			body:      body,
			signature: r.Header.Get(SignatureHeader),
		})
		e.mu.Unlock()

		var challenge model.ChallengeBody
		isChallenge := json.Unmarshal(body, &challenge) == nil && challenge.Type == "webhook_challenge"
		if !isChallenge {
			w.WriteHeader(http.StatusOK)
			return
		}

		switch e.mode {
		case "header-ack":
			w.Header().Set(AckHeader, challenge.Nonce)
			w.WriteHeader(http.StatusOK)
		case "body-ack":
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(model.ChallengeAck{Ack: true, Nonce: challenge.Nonce})
		case "wrong-nonce":
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(model.ChallengeAck{Ack: true, Nonce: "deadbeef"})
		default: // reject
			w.WriteHeader(http.StatusForbidden)
		}
	}
}

func (e *endpoint) recorded() []recordedRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]recordedRequest, len(e.requests))
	copy(out, e.requests)
	return out
}

func strp(s string) *string { return &s }

func newTestDispatcher(repo *fakeSubsRepo) *Dispatcher {
	return NewDispatcher(repo, Options{
		WorkerCount:    2,
		QueueSize:      16,
		RequestTimeout: 2 * time.Second,
	})
}

func subscription(url string, events ...string) *model.WebhookSubscription {
	return &model.WebhookSubscription{
		TenantID: 1,
		URL:      url,
		Secret:   strp("abc123"),
		Events:   model.EventSet(events),
		IsActive: true,
	}
}

func TestDispatchHandshakeThenDelivery(t *testing.T) {
	ep := &endpoint{mode: "header-ack"}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	repo := &fakeSubsRepo{sub: subscription(srv.URL, model.EventLeadCreated)}
	d := newTestDispatcher(repo)

	d.Dispatch(1, model.EventLeadCreated, model.LeadEventData{LeadID: "01H", Status: "new"})
	d.Close()

	reqs := ep.recorded()
	if len(reqs) != 2 {
		t.Fatalf("expected exactly challenge + delivery, got %d requests", len(reqs))
	}

	// challenge body shape and its own signature
	var challenge model.ChallengeBody
	if err := json.Unmarshal(reqs[0].body, &challenge); err != nil {
		t.Fatalf("challenge body: %v", err)
	}
	if challenge.Type != "webhook_challenge" || challenge.Nonce == "" || challenge.Timestamp == "" {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	if !VerifySignature("abc123", reqs[0].body, reqs[0].signature) {
		t.Fatalf("challenge signature invalid")
	}

	// delivery body carries the event, freshly signed over its own bytes
	var delivery model.DeliveryBody
	if err := json.Unmarshal(reqs[1].body, &delivery); err != nil {
		t.Fatalf("delivery body: %v", err)
	}
	if delivery.Event != model.EventLeadCreated {
		t.Fatalf("delivery event = %s", delivery.Event)
	}
	if !VerifySignature("abc123", reqs[1].body, reqs[1].signature) {
		t.Fatalf("delivery signature invalid")
	}
	if reqs[0].signature == reqs[1].signature {
		t.Fatalf("challenge and delivery must be signed independently")
	}

	failures, delivered := repo.counts()
	if failures != 0 || delivered != 1 {
		t.Fatalf("failures=%d delivered=%d", failures, delivered)
	}
}

func TestDispatchAcceptsBodyAck(t *testing.T) {
	ep := &endpoint{mode: "body-ack"}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	repo := &fakeSubsRepo{sub: subscription(srv.URL, model.EventLeadUpdated)}
	d := newTestDispatcher(repo)

	d.Dispatch(1, model.EventLeadUpdated, model.LeadEventData{LeadID: "01H"})
	d.Close()

	if got := len(ep.recorded()); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
	failures, delivered := repo.counts()
	if failures != 0 || delivered != 1 {
		t.Fatalf("failures=%d delivered=%d", failures, delivered)
	}
}

func TestRejectedChallengeBlocksDelivery(t *testing.T) {
	ep := &endpoint{mode: "reject"}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	repo := &fakeSubsRepo{sub: subscription(srv.URL, model.EventLeadCreated)}
	d := newTestDispatcher(repo)

	d.Dispatch(1, model.EventLeadCreated, model.LeadEventData{LeadID: "01H"})
	d.Close()

	if got := len(ep.recorded()); got != 1 {
		t.Fatalf("tenant data must not leave after a failed handshake; got %d requests", got)
	}
	failures, delivered := repo.counts()
	if failures != 1 || delivered != 0 {
		t.Fatalf("failures=%d delivered=%d", failures, delivered)
	}
}

func TestMismatchedNonceBlocksDelivery(t *testing.T) {
	ep := &endpoint{mode: "wrong-nonce"}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	repo := &fakeSubsRepo{sub: subscription(srv.URL, model.EventLeadCreated)}
	d := newTestDispatcher(repo)

	d.Dispatch(1, model.EventLeadCreated, model.LeadEventData{LeadID: "01H"})
	d.Close()

	if got := len(ep.recorded()); got != 1 {
		t.Fatalf("expected only the challenge, got %d requests", got)
	}
	failures, _ := repo.counts()
	if failures != 1 {
		t.Fatalf("handshake failure must increment failure count, got %d", failures)
	}
}

func TestUnsubscribedOrInactiveIsNoop(t *testing.T) {
	ep := &endpoint{mode: "header-ack"}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	// subscribed to lead.updated only
	repo := &fakeSubsRepo{sub: subscription(srv.URL, model.EventLeadUpdated)}
	d := newTestDispatcher(repo)
	d.Dispatch(1, model.EventLeadCreated, model.LeadEventData{LeadID: "01H"})
	d.Close()

	if got := len(ep.recorded()); got != 0 {
		t.Fatalf("unsubscribed event must not reach the endpoint, got %d requests", got)
	}

	// inactive subscription
	repo2 := &fakeSubsRepo{sub: subscription(srv.URL, model.EventLeadCreated)}
	repo2.sub.IsActive = false
	d2 := newTestDispatcher(repo2)
	d2.Dispatch(1, model.EventLeadCreated, model.LeadEventData{LeadID: "01H"})
	d2.Close()

	if got := len(ep.recorded()); got != 0 {
		t.Fatalf("inactive subscription must not dispatch, got %d requests", got)
	}

	failures, delivered := repo.counts()
	if failures != 0 || delivered != 0 {
		t.Fatalf("noop must not touch counters: failures=%d delivered=%d", failures, delivered)
	}
}

func TestDispatchWithoutSecretSendsNoSignature(t *testing.T) {
	ep := &endpoint{mode: "header-ack"}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	repo := &fakeSubsRepo{sub: subscription(srv.URL, model.EventLeadCreated)}
	repo.sub.Secret = nil
	d := newTestDispatcher(repo)

	d.Dispatch(1, model.EventLeadCreated, model.LeadEventData{LeadID: "01H"})
	d.Close()

	reqs := ep.recorded()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	for i, r := range reqs {
		if r.signature != "" {
			t.Fatalf("request %d should carry no signature, got %q", i, r.signature)
		}
	}
}

func TestAppointmentEventPayloadShape(t *testing.T) {
	ep := &endpoint{mode: "header-ack"}
	srv := httptest.NewServer(ep.handler())
	defer srv.Close()

	repo := &fakeSubsRepo{sub: subscription(srv.URL, model.EventAppointmentCreated)}
	d := newTestDispatcher(repo)

	d.Dispatch(1, model.EventAppointmentCreated, model.AppointmentEventData{
		AppointmentID: "A1",
		LeadID:        "01H",
		Title:         "Visita",
		Type:          "visit",
		StartTime:     "2024-05-01T10:00:00Z",
		EndTime:       "2024-05-01T11:00:00Z",
		Status:        "scheduled",
	})
	d.Close()

	reqs := ep.recorded()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	var delivery struct {
		Event string `json:"event"`
		Data  struct {
			AppointmentID string `json:"appointmentId"`
			LeadID        string `json:"leadId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(reqs[1].body, &delivery); err != nil {
		t.Fatalf("delivery body: %v", err)
	}
	if delivery.Event != model.EventAppointmentCreated || delivery.Data.AppointmentID != "A1" || delivery.Data.LeadID != "01H" {
		t.Fatalf("unexpected delivery: %+v", delivery)
	}
}

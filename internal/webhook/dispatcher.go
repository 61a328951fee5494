package webhook

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rafaelccorrea/back-plugin-sub000/internal/logger"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/metrics"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/repository"
	"go.uber.org/zap"
)

// AckHeader is the challenge-response header a destination may use instead of
// the JSON ack body.
const AckHeader = "X-Webhook-Ack"

const (
	defaultWorkers        = 8
	defaultQueueSize      = 256
	defaultRequestTimeout = 12 * time.Second

	nonceBytes    = 16
	maxAckBody    = 64 << 10 // ack bodies past 64KB are not worth parsing
	challengeType = "webhook_challenge"
)

type job struct {
	tenantID  int64
	eventType string
	payload   any
}

// Dispatcher fans lead/appointment events out to tenant endpoints. Dispatch
// never blocks its caller: jobs run on a fixed-size worker pool, and a full
// queue drops the event rather than applying backpressure to request handlers.
//
// Per job the dispatcher performs the two-phase protocol: a nonce challenge
// that must be acknowledged before any tenant data is transmitted, then a
// single signed delivery. There is no retry loop; failures only increment the
// subscription's failure_count.
type Dispatcher struct {
	subs    repository.WebhooksRepository
	client  *http.Client
	timeout time.Duration

	jobs chan job
	wg   sync.WaitGroup
	once sync.Once
}

type Options struct {
	WorkerCount    int
	QueueSize      int
	RequestTimeout time.Duration
	Client         *http.Client // optional, for tests
}

func NewDispatcher(subs repository.WebhooksRepository, opts Options) *Dispatcher {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.RequestTimeout}
	}

	d := &Dispatcher{
		subs:    subs,
		client:  client,
		timeout: opts.RequestTimeout,
		jobs:    make(chan job, opts.QueueSize),
	}

	for i := 0; i < opts.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch enqueues one event for a tenant and returns immediately. The
// outcome is never surfaced to the caller.
func (d *Dispatcher) Dispatch(tenantID int64, eventType string, payload any) {
	select {
	case d.jobs <- job{tenantID: tenantID, eventType: eventType, payload: payload}:
		metrics.WebhookDispatchTotal.WithLabelValues("enqueue", "ok").Inc()
	default:
		metrics.WebhookDispatchTotal.WithLabelValues("enqueue", "dropped").Inc()
		logger.Log.Warn("webhook queue full, event dropped",
			zap.Int64("tenant_id", tenantID), zap.String("event", eventType))
	}
}

// Close stops accepting events and waits for in-flight dispatches to finish.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.process(context.Background(), j)
	}
}

func (d *Dispatcher) process(ctx context.Context, j job) {
	sub, err := d.subs.GetByTenant(ctx, j.tenantID)
	if err != nil {
		logger.Log.Error("webhook subscription load failed",
			zap.Int64("tenant_id", j.tenantID), zap.Error(err))
		return
	}
	if sub == nil || !sub.IsActive || !sub.Events.Contains(j.eventType) {
		metrics.WebhookDispatchTotal.WithLabelValues("challenge", "skipped").Inc()
		return
	}

	nonce, err := newNonce()
	if err != nil {
		logger.Log.Error("webhook nonce generation failed", zap.Error(err))
		return
	}

	if err := d.challenge(ctx, sub, nonce); err != nil {
		metrics.WebhookDispatchTotal.WithLabelValues("challenge", "failed").Inc()
		logger.Log.Warn("webhook handshake failed",
			zap.Int64("tenant_id", j.tenantID),
			zap.String("event", j.eventType),
			zap.Error(err))
		d.recordFailure(ctx, j.tenantID)
		return
	}
	metrics.WebhookDispatchTotal.WithLabelValues("challenge", "ok").Inc()

	if err := d.deliver(ctx, sub, j.eventType, j.payload); err != nil {
		metrics.WebhookDispatchTotal.WithLabelValues("delivery", "failed").Inc()
		logger.Log.Warn("webhook delivery failed",
			zap.Int64("tenant_id", j.tenantID),
			zap.String("event", j.eventType),
			zap.Error(err))
		d.recordFailure(ctx, j.tenantID)
		return
	}
	metrics.WebhookDispatchTotal.WithLabelValues("delivery", "ok").Inc()

	if err := d.subs.RecordDelivered(ctx, j.tenantID); err != nil {
		logger.Log.Error("webhook delivered-at update failed",
			zap.Int64("tenant_id", j.tenantID), zap.Error(err))
	}
}

func (d *Dispatcher) recordFailure(ctx context.Context, tenantID int64) {
	if err := d.subs.RecordFailure(ctx, tenantID); err != nil {
		logger.Log.Error("webhook failure-count update failed",
			zap.Int64("tenant_id", tenantID), zap.Error(err))
	}
}

func newNonce() (string, error) {
	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// challenge POSTs the nonce and requires the destination to echo it back,
// either via the ack header or the JSON ack body, with a 2xx status.
func (d *Dispatcher) challenge(ctx context.Context, sub *model.WebhookSubscription, nonce string) error {
	body, err := json.Marshal(model.ChallengeBody{
		Type:      challengeType,
		Nonce:     nonce,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	res, resBody, err := d.post(ctx, sub, body)
	if err != nil {
		return err
	}

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("challenge status=%d", res.StatusCode)
	}

	if res.Header.Get(AckHeader) == nonce {
		return nil
	}

	var ack model.ChallengeAck
	if err := json.Unmarshal(resBody, &ack); err != nil {
		return fmt.Errorf("challenge ack parse: %w", err)
	}
	if !ack.Ack || ack.Nonce != nonce {
		return fmt.Errorf("challenge nonce not acknowledged")
	}
	return nil
}

// deliver sends the real event payload, freshly signed over its own body.
func (d *Dispatcher) deliver(ctx context.Context, sub *model.WebhookSubscription, eventType string, payload any) error {
	body, err := json.Marshal(model.DeliveryBody{
		Event:     eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      payload,
	})
	if err != nil {
		return err
	}

	res, _, err := d.post(ctx, sub, body)
	if err != nil {
		return err
	}
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("delivery status=%d", res.StatusCode)
	}
	return nil
}

func (d *Dispatcher) post(ctx context.Context, sub *model.WebhookSubscription, body []byte) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if sub.Secret != nil && *sub.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(*sub.Secret, body))
	}

	res, err := d.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(io.LimitReader(res.Body, maxAckBody))
	if err != nil {
		return nil, nil, err
	}
	return res, resBody, nil
}

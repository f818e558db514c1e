package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/circuitbreaker"
	"github.com/drift-pay/drift-gateway/pkg/logger"
	"github.com/drift-pay/drift-gateway/pkg/metrics"
	"github.com/drift-pay/drift-gateway/pkg/models"
)

const (
	HeaderEvent     = "X-Drift-Event"
	HeaderPaymentID = "X-Drift-Payment-Id"
)

// Service posts step transitions to the intent's subscribers. Delivery never blocks the saga.
type Service struct {
	httpClient *http.Client
	policy     RetryPolicy
	breakers   *circuitbreaker.Registry
	logger     logger.Logger
	now        func() time.Time

	mu     sync.Mutex
	queues map[string]*queue
	wg     sync.WaitGroup
}

// delivery is one event bound for one subscriber
type delivery struct {
	target    string
	paymentID string
	event     string
	body      []byte
	attempts  int
}

// queue holds the pending deliveries of one payment to one subscriber, drained in order by a single goroutine
type queue struct {
	pending []delivery
}

// NewService creates a new webhook service
func NewService(timeout time.Duration, policy RetryPolicy, breakers *circuitbreaker.Registry, logger logger.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		httpClient: createHTTPClient(timeout),
		policy:     policy,
		breakers:   breakers,
		logger:     logger,
		now:        time.Now,
		queues:     make(map[string]*queue),
	}
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Notify queues one delivery per subscriber and returns immediately.
// Events for the same payment and subscriber are delivered in the order they were notified.
func (s *Service) Notify(intent *models.PaymentIntent, step models.StepName, status models.StepStatus, txHash string, stepErr error) {
	if len(intent.WebhookURLs) == 0 {
		return
	}

	payload := NewPayload(intent, step, status, txHash, stepErr, s.now())
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Payment %s: failed to encode webhook payload: %v", intent.ID, err)
		return
	}

	event := models.EventName(step, status)
	attempts := s.policy.Attempts(step, status)
	for _, target := range intent.WebhookURLs {
		s.enqueue(delivery{target: target, paymentID: intent.ID, event: event, body: body, attempts: attempts})
	}
}

func (s *Service) enqueue(d delivery) {
	key := d.paymentID + "|" + d.target

	s.mu.Lock()
	q, running := s.queues[key]
	if !running {
		q = &queue{}
		s.queues[key] = q
	}
	q.pending = append(q.pending, d)
	s.wg.Add(1)
	s.mu.Unlock()

	if !running {
		go s.drain(key, q)
	}
}

// drain delivers queued events one at a time until the queue is empty
func (s *Service) drain(key string, q *queue) {
	for {
		s.mu.Lock()
		if len(q.pending) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		d := q.pending[0]
		q.pending = q.pending[1:]
		s.mu.Unlock()

		s.deliver(d.target, d.paymentID, d.event, d.body, d.attempts)
		s.wg.Done()
	}
}

// NewPayload builds the body posted for a step transition
func NewPayload(intent *models.PaymentIntent, step models.StepName, status models.StepStatus, txHash string, stepErr error, now time.Time) models.WebhookPayload {
	payload := models.WebhookPayload{
		PaymentID:       intent.ID,
		Status:          intent.Status,
		Step:            step,
		StepStatus:      status,
		Timestamp:       now.UTC(),
		TransactionHash: txHash,
		ViaFallback:     intent.Steps.Get(step).ViaFallback,
	}
	if intent.Status == models.IntentStatusCompleted && intent.FinalTransactionHash != nil {
		payload.FinalTransactionHash = *intent.FinalTransactionHash
	}
	if stepErr != nil {
		payload.Error = stepErr.Error()
	}
	return payload
}

func (s *Service) deliver(target string, paymentID string, event string, body []byte, attempts int) {
	breaker := s.breakers.Get(hostOf(target))

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// An open circuit skips retries, never the first attempt
			if breaker.IsOpen() {
				metrics.WebhookDeliveries.WithLabelValues("retry_skipped").Inc()
				s.logger.Notice("Payment %s: circuit open for %s, skipping %s retry", paymentID, hostOf(target), event)
				return
			}
			time.Sleep(s.policy.Backoff)
		}

		err := s.post(target, paymentID, event, body)
		if err == nil {
			metrics.WebhookDeliveries.WithLabelValues("success").Inc()
			s.logger.Debug("Payment %s: delivered %s to %s", paymentID, event, target)
			return
		}

		breaker.RecordFailure()
		metrics.WebhookDeliveries.WithLabelValues("failure").Inc()
		s.logger.Error("Payment %s: webhook %s to %s failed (attempt %d/%d): %v",
			paymentID, event, target, attempt, attempts, err)
	}
}

func (s *Service) post(target string, paymentID string, event string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, event)
	req.Header.Set(HeaderPaymentID, paymentID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %v", err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			s.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// Wait blocks until every in-flight delivery has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return target
	}
	return u.Host
}

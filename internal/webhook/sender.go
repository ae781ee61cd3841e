package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/orrn/printqueue/internal/core"
	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/logging"
)

type Event string

const (
	EventJobCreated   Event = "job_created"
	EventJobUpdated   Event = "job_updated"
	EventJobCompleted Event = "job_completed"
	EventJobDeleted   Event = "job_deleted"
)

var Events = []Event{EventJobCreated, EventJobUpdated, EventJobCompleted, EventJobDeleted}

func (e Event) Valid() bool {
	for _, known := range Events {
		if e == known {
			return true
		}
	}
	return false
}

type Payload struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Signature string    `json:"signature,omitempty"`
}

type JobEventData struct {
	JobID   string         `json:"jobId"`
	Title   string         `json:"title"`
	Status  core.JobStatus `json:"status"`
	Hot     bool           `json:"hot"`
	PressID string         `json:"pressId,omitempty"`
}

type Config struct {
	RetryCount  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	WorkerCount int
	QueueSize   int
}

// Store is the subset of webhook persistence the sender reads.
type Store interface {
	ListActiveWebhooksForEvent(ctx context.Context, event string) ([]db.Webhook, error)
	GetWebhookByID(ctx context.Context, id int64) (*db.Webhook, error)
}

type task struct {
	webhookID int64
	event     Event
	payload   *Payload
	attempt   int
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http error: %d", e.code)
}

type Sender struct {
	store      Store
	logger     *logging.Logger
	httpClient *http.Client
	retryCount int
	retryDelay time.Duration
	workers    int
	queue      chan *task
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewSender(store Store, logger *logging.Logger, config Config) *Sender {
	if config.RetryCount <= 0 {
		config.RetryCount = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 5 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 3
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}

	return &Sender{
		store:  store,
		logger: logger.With("component", "webhook"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		retryCount: config.RetryCount,
		retryDelay: config.RetryDelay,
		workers:    config.WorkerCount,
		queue:      make(chan *task, config.QueueSize),
		stopCh:     make(chan struct{}),
	}
}

func (s *Sender) Start() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *Sender) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// JobEvent queues delivery of a job event to every enabled webhook
// subscribed to it. Deliveries are dropped when the queue is full.
func (s *Sender) JobEvent(event Event, job *core.Job) {
	s.enqueue(event, &JobEventData{
		JobID:   job.ID,
		Title:   job.Title,
		Status:  job.Status,
		Hot:     job.Hot,
		PressID: job.PressID,
	})
}

func (s *Sender) enqueue(event Event, data any) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	webhooks, err := s.store.ListActiveWebhooksForEvent(ctx, string(event))
	if err != nil {
		s.logger.Error("failed to get webhooks for event", "event", event, "error", err)
		return
	}

	for _, w := range webhooks {
		t := &task{
			webhookID: w.ID,
			event:     event,
			payload: &Payload{
				Event:     string(event),
				Timestamp: time.Now().UTC(),
				Data:      data,
			},
		}

		select {
		case s.queue <- t:
		default:
			s.logger.Warn("queue full, dropping delivery", "webhook_id", w.ID, "event", event)
		}
	}
}

func (s *Sender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			if err := s.sendWithRetry(t); err != nil {
				s.logger.Warn("delivery failed",
					"worker", id, "webhook_id", t.webhookID, "event", t.event, "attempts", t.attempt, "error", err)
			}
		}
	}
}

func (s *Sender) sendWithRetry(t *task) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	w, err := s.store.GetWebhookByID(ctx, t.webhookID)
	cancel()
	if err != nil {
		return fmt.Errorf("get webhook: %w", err)
	}

	var lastErr error
	for t.attempt < s.retryCount {
		t.attempt++

		err := s.sendRequest(w, t.payload)
		if err == nil {
			return nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.code >= 400 && se.code < 500 {
			return err
		}

		if t.attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(t.attempt-1))
			s.logger.Debug("retrying delivery",
				"webhook_id", w.ID, "attempt", t.attempt, "backoff", backoff, "error", err)

			select {
			case <-s.stopCh:
				return fmt.Errorf("shutdown requested")
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *Sender) sendRequest(w *db.Webhook, payload *Payload) error {
	dataBytes, err := json.Marshal(payload.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	if w.Secret != "" {
		payload.Signature = Sign(dataBytes, w.Secret)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", payload.Signature)
	req.Header.Set("X-Webhook-Event", payload.Event)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

// SendTest delivers one test payload to w, without retries.
func (s *Sender) SendTest(w *db.Webhook) error {
	return s.sendRequest(w, &Payload{
		Event:     "test",
		Timestamp: time.Now().UTC(),
		Data:      map[string]any{"test": true, "webhookId": w.ID, "message": "Test webhook from PrintQueue"},
	})
}

// Sign returns the hex HMAC-SHA256 of data keyed by secret.
func Sign(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

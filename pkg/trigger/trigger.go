// Package trigger notifies downstream automation about domain events over
// HTTP. Calls never block the caller and failures are only logged.
package trigger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/sony/gobreaker"
	"github.com/wingmentor/wingmentor-api/pkg/circuitbreaker"
	"github.com/wingmentor/wingmentor-api/pkg/httpclient"
	"github.com/wingmentor/wingmentor-api/pkg/logger"
	"go.uber.org/zap"
)

// Event is the webhook body
type Event struct {
	Type     string `json:"type"`
	RecordID string `json:"recordId"`
}

// Trigger posts events to a single URL behind a circuit breaker
type Trigger struct {
	name    string
	url     string
	client  httpclient.Client
	breaker *gobreaker.CircuitBreaker
	wg      sync.WaitGroup
}

// New returns a trigger for url; an empty url disables it
func New(name, url string, client httpclient.Client) *Trigger {
	return &Trigger{
		name:    name,
		url:     url,
		client:  client,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(name)),
	}
}

// Enabled reports whether a URL is configured
func (t *Trigger) Enabled() bool {
	return t != nil && t.url != ""
}

// Name identifies the trigger in logs and health output
func (t *Trigger) Name() string {
	return t.name
}

// CircuitOpen reports whether the breaker is currently rejecting calls
func (t *Trigger) CircuitOpen() bool {
	return t.Enabled() && circuitbreaker.IsCircuitOpen(t.breaker)
}

// CallAsync posts the event in the background
func (t *Trigger) CallAsync(eventType, recordID string) {
	if !t.Enabled() {
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.Call(eventType, recordID); err != nil {
			logger.LogError(err, "Failed to call trigger URL",
				zap.String("trigger", t.name),
				zap.String("url", t.url),
				zap.String("event", eventType),
				zap.String("record_id", recordID))
			return
		}
		logger.Info("Trigger URL called successfully",
			zap.String("url", t.url),
			zap.String("event", eventType),
			zap.String("record_id", recordID))
	}()
}

// Call posts the event synchronously
func (t *Trigger) Call(eventType, recordID string) error {
	body, err := json.Marshal(Event{Type: eventType, RecordID: recordID})
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	_, err = circuitbreaker.Execute(t.breaker, func() (int, error) {
		resp, err := t.client.Post(t.url, "application/json", bytes.NewReader(body))
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return resp.StatusCode, fmt.Errorf("trigger returned status %d", resp.StatusCode)
		}
		return resp.StatusCode, nil
	})
	return err
}

// Wait blocks until in-flight calls finish, used on shutdown and in tests
func (t *Trigger) Wait() {
	if t == nil {
		return
	}
	t.wg.Wait()
}

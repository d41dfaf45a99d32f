// Package webhooks notifies configured HTTP endpoints when a migration run
// finishes. Delivery is best effort: failures are logged and never change
// the outcome of the run.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lherron/schoolmig/internal/session"
	"go.uber.org/zap"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultConcurrency = 4
)

// Payload is the webhook payload for a finished run.
type Payload struct {
	SessionID string          `json:"session_id"`
	Status    string          `json:"status"`
	DryRun    bool            `json:"dry_run"`
	Summary   session.Summary `json:"summary"`
}

// Notifier posts run payloads to a fixed list of URL templates.
type Notifier struct {
	urls    []string
	client  *http.Client
	log     *zap.Logger
	workers int
}

// NewNotifier returns a Notifier for the given URL templates. Templates may
// contain {session_id} and {status}.
func NewNotifier(urls []string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		urls:    urls,
		client:  &http.Client{Timeout: defaultTimeout},
		log:     logger,
		workers: defaultConcurrency,
	}
}

// Result counts delivered and failed notifications.
type Result struct {
	Sent   int
	Failed int
}

// ResolveTargets templates, normalizes, and de-dupes webhook URLs.
// Non-http(s) URLs are skipped.
func (n *Notifier) ResolveTargets(payload Payload) []string {
	if len(n.urls) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(n.urls))
	var normalized []string

	for _, raw := range n.urls {
		templated := strings.TrimSpace(applyTemplate(strings.TrimSpace(raw), payload))
		templated = strings.TrimRight(templated, "/")
		if templated == "" {
			continue
		}
		if !isValidWebhookURL(templated) {
			n.log.Warn("webhooks: skipping invalid url", zap.String("url", templated))
			continue
		}
		if _, ok := seen[templated]; ok {
			continue
		}
		seen[templated] = struct{}{}
		normalized = append(normalized, templated)
	}

	return normalized
}

func applyTemplate(raw string, payload Payload) string {
	result := strings.ReplaceAll(raw, "{session_id}", url.PathEscape(payload.SessionID))
	result = strings.ReplaceAll(result, "{status}", url.PathEscape(payload.Status))
	return result
}

func isValidWebhookURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host == "" {
		return false
	}
	return true
}

// Notify posts payload to every resolved target with bounded concurrency.
func (n *Notifier) Notify(ctx context.Context, payload Payload) Result {
	urls := n.ResolveTargets(payload)
	if len(urls) == 0 {
		return Result{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error("webhooks: failed to encode payload", zap.Error(err))
		return Result{Failed: len(urls)}
	}

	workers := n.workers
	if len(urls) < workers {
		workers = len(urls)
	}

	var sent, failed atomic.Int32
	jobs := make(chan string)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for endpoint := range jobs {
				if err := n.send(ctx, endpoint, body); err != nil {
					failed.Add(1)
					n.log.Warn("webhooks: delivery failed", zap.String("url", endpoint), zap.Error(err))
					continue
				}
				sent.Add(1)
			}
		}()
	}

	for _, endpoint := range urls {
		jobs <- endpoint
	}
	close(jobs)
	wg.Wait()

	return Result{Sent: int(sent.Load()), Failed: int(failed.Load())}
}

func (n *Notifier) send(ctx context.Context, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

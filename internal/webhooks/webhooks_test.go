package webhooks_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/lherron/schoolmig/internal/webhooks"
)

func TestResolveTargets(t *testing.T) {
	n := webhooks.NewNotifier([]string{
		"http://example.com/hook/{session_id}",
		"ftp://invalid.example.com/hook",
		"http://example.com/hook/{session_id}/",
		"  ",
		"https://example.com/status/{status}",
	}, nil)

	urls := n.ResolveTargets(webhooks.Payload{SessionID: "migration_20250115_093000", Status: "completed"})

	expected := []string{
		"http://example.com/hook/migration_20250115_093000",
		"https://example.com/status/completed",
	}
	if !reflect.DeepEqual(urls, expected) {
		t.Fatalf("unexpected urls\nexpected: %v\nactual:   %v", expected, urls)
	}
}

func TestNotifyPostsPayload(t *testing.T) {
	var (
		mu       sync.Mutex
		received []webhooks.Payload
	)
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhooks.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	}))
	defer ok.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	n := webhooks.NewNotifier([]string{ok.URL + "/{session_id}", broken.URL}, nil)
	res := n.Notify(context.Background(), webhooks.Payload{SessionID: "s1", Status: "completed_with_errors"})

	if res.Sent != 1 || res.Failed != 1 {
		t.Fatalf("Notify() = %+v, want 1 sent 1 failed", res)
	}
	if len(received) != 1 || received[0].SessionID != "s1" || received[0].Status != "completed_with_errors" {
		t.Errorf("received = %+v", received)
	}
}

func TestNotifyWithoutTargets(t *testing.T) {
	n := webhooks.NewNotifier(nil, nil)
	if res := n.Notify(context.Background(), webhooks.Payload{}); res != (webhooks.Result{}) {
		t.Errorf("Notify() = %+v, want zero", res)
	}
}

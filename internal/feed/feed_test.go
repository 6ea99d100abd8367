package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticSessions string

func (s staticSessions) Session(string) (string, error) { return string(s), nil }

type failingSessions struct{}

func (failingSessions) Session(string) (string, error) {
	return "", errors.New("keyring locked")
}

func TestFetch(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.RequestURI()
		w.Write([]byte(`{"EventID": "E2", "More": 1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acc-1", staticSessions("tok-123"), Options{})
	resp, err := c.Fetch(context.Background(), "E1")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if resp.EventID != "E2" || !resp.HasMore() {
		t.Errorf("resp = %+v, want EventID E2 with more", resp)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want Bearer tok-123", gotAuth)
	}
	if gotPath != "/events?cursor=E1" {
		t.Errorf("path = %q, want /events?cursor=E1", gotPath)
	}
}

func TestFetch_EscapesCursor(t *testing.T) {
	var gotCursor string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCursor = r.URL.Query().Get("cursor")
		w.Write([]byte(`{"EventID": "E2"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acc-1", staticSessions("tok"), Options{})
	if _, err := c.Fetch(context.Background(), "E1/with spaces&such"); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if gotCursor != "E1/with spaces&such" {
		t.Errorf("cursor = %q, not round-tripped through escaping", gotCursor)
	}
}

func TestLatestEventID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/latest" {
			t.Errorf("path = %q, want /events/latest", r.URL.Path)
		}
		w.Write([]byte(`{"EventID": "E900"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acc-1", staticSessions("tok"), Options{})
	head, err := c.LatestEventID(context.Background())
	if err != nil {
		t.Fatalf("LatestEventID() error: %v", err)
	}
	if head != "E900" {
		t.Errorf("head = %q, want E900", head)
	}
}

func TestFetch_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acc-1", staticSessions("tok"), Options{})
	if _, err := c.Fetch(context.Background(), "E1"); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"More": 1}`)) // no EventID
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acc-1", staticSessions("tok"), Options{})
	if _, err := c.Fetch(context.Background(), "E1"); err == nil {
		t.Fatal("expected error for page without EventID")
	}
}

func TestFetch_SessionFailure(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "acc-1", failingSessions{}, Options{})
	if _, err := c.Fetch(context.Background(), "E1"); err == nil {
		t.Fatal("expected session resolution error")
	}
	if called {
		t.Error("request sent despite missing session")
	}
}

func TestFetch_RespectsContextViaLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"EventID": "E2"}`))
	}))
	defer srv.Close()

	// 1 req/s with an exhausted burst: the second call must block until
	// the cancelled context aborts the limiter wait.
	c := NewClient(srv.URL, "acc-1", staticSessions("tok"), Options{RequestsPerSecond: 1})
	if _, err := c.Fetch(context.Background(), "E1"); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, "E2"); err == nil {
		t.Fatal("expected context cancellation error")
	}
}

package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/tree"
)

func TestFetchTree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/folders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"folders":[{"id":"folder_srv_1","type":"folder","name":"Work","children":[{"id":"note_srv_1","type":"note","title":"Plan"}]}]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "secret", srv.Client())
	items, err := c.FetchTree(context.Background())
	if err != nil {
		t.Fatalf("FetchTree: %v", err)
	}
	if len(items) != 1 || items[0].ID != "folder_srv_1" {
		t.Fatalf("items = %+v", items)
	}
	if len(items[0].Children) != 1 || items[0].Children[0].Title != "Plan" {
		t.Errorf("children = %+v", items[0].Children)
	}
}

func TestCreateItemWirePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/folders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["type"] != "note" || body["title"] != "Plan" || body["parentId"] != "folder_srv_1" {
			t.Errorf("body = %v", body)
		}
		if _, ok := body["name"]; ok {
			t.Error("note payload carries folder name field")
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"item":{"id":"note_srv_7","type":"note","title":"Plan"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", srv.Client())
	item := &tree.Item{ID: "local_note_1", Type: tree.TypeNote, Title: "Plan", IsLocal: true}
	got, err := c.CreateItem(context.Background(), item, "folder_srv_1")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if got.ID != "note_srv_7" {
		t.Errorf("id = %q, want server-assigned", got.ID)
	}
}

func TestUpdateItemOmitsType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/folders/note_srv_7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["type"]; ok {
			t.Error("update payload carries type")
		}
		_, _ = w.Write([]byte(`{"item":{"id":"note_srv_7","type":"note","title":"Plan","content":"body"}}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", srv.Client())
	item := &tree.Item{ID: "note_srv_7", Type: tree.TypeNote, Title: "Plan", Content: "body"}
	got, err := c.UpdateItem(context.Background(), "note_srv_7", item)
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if got.Content != "body" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "try later", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"folders":[]}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", srv.Client())
	if _, err := c.FetchTree(context.Background()); err != nil {
		t.Fatalf("FetchTree after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"type is required"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", srv.Client())
	_, err := c.CreateItem(context.Background(), &tree.Item{Type: tree.TypeNote}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %T, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest || httpErr.Message != "type is required" {
		t.Errorf("err = %+v", httpErr)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", got)
	}
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"item not found"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", srv.Client())
	if err := c.DeleteItem(context.Background(), "gone"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestContextCancelStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewHTTPClient(srv.URL, "", srv.Client())
	if _, err := c.FetchTree(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

package rubygems

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/relwatch/relwatch/internal/core"
)

func TestFetchVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/versions/rails.json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(404)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"number": "7.1.2"},
			{"number": "7.1.1"},
			{"number": "7.0.0"}
		]`))
	}))
	defer server.Close()

	b := New(server.URL, core.DefaultClient())
	p := &core.Project{Name: "rails", Ecosystem: ecosystem, FetchTimeout: 5 * time.Second}

	got, err := b.FetchVersions(context.Background(), p)
	if err != nil {
		t.Fatalf("FetchVersions failed: %v", err)
	}

	want := []string{"7.1.2", "7.1.1", "7.0.0"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	// Upstream order must be preserved; dedup is the caller's concern.
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("version[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFetchVersions_Malformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	}))
	defer server.Close()

	b := New(server.URL, core.DefaultClient())
	p := &core.Project{Name: "rails", Ecosystem: ecosystem, FetchTimeout: 5 * time.Second}

	if _, err := b.FetchVersions(context.Background(), p); err == nil {
		t.Fatal("expected decode error for malformed payload")
	}
}

package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/relwatch/relwatch/internal/core"
)

func TestSplitRepo(t *testing.T) {
	tests := []struct {
		locator string
		owner   string
		repo    string
		wantErr bool
	}{
		{"psf/requests", "psf", "requests", false},
		{"https://github.com/psf/requests", "psf", "requests", false},
		{"https://github.com/psf/requests.git", "psf", "requests", false},
		{"https://github.com/psf/requests/", "psf", "requests", false},
		{"requests", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		owner, repo, err := splitRepo(tt.locator)
		if (err != nil) != tt.wantErr {
			t.Errorf("splitRepo(%q) error = %v, wantErr %v", tt.locator, err, tt.wantErr)
			continue
		}
		if owner != tt.owner || repo != tt.repo {
			t.Errorf("splitRepo(%q) = %q/%q, want %q/%q", tt.locator, owner, repo, tt.owner, tt.repo)
		}
	}
}

func TestFetchVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/psf/requests/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(404)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name": "v2.31.0"},
			{"name": "v2.30.0"},
			{"name": ""}
		]`))
	}))
	defer server.Close()

	b := New(server.URL, core.DefaultClient())
	p := &core.Project{
		Name:         "requests",
		VersionURL:   "psf/requests",
		Ecosystem:    ecosystem,
		FetchTimeout: 5 * time.Second,
	}

	got, err := b.FetchVersions(context.Background(), p)
	if err != nil {
		t.Fatalf("FetchVersions failed: %v", err)
	}

	want := []string{"v2.31.0", "v2.30.0"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFetchVersions_BadLocator(t *testing.T) {
	b := New("", core.DefaultClient())
	p := &core.Project{Name: "requests", Ecosystem: ecosystem}
	if _, err := b.FetchVersions(context.Background(), p); err == nil {
		t.Fatal("expected error for locator without owner")
	}
}

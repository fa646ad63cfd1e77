package core

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/relwatch/relwatch/client"
)

// Backend is the interface implemented by all upstream fetchers.
type Backend interface {
	// Ecosystem returns the ecosystem identifier this backend serves
	// (e.g. "pypi", "npm", "folder").
	Ecosystem() string

	// FetchVersions returns the currently published raw version strings
	// for the project, in whatever order the upstream provides. Ordering
	// and dedup are the caller's responsibility. The project's insecure
	// flag and timeout are read from p on every call.
	FetchVersions(ctx context.Context, p *Project) ([]string, error)

	// URLs returns the URL builder for this backend.
	URLs() client.URLBuilder
}

// VersionCleaner is implemented by backends whose upstreams append packaging
// noise to version strings (e.g. the Debian ".orig" marker). The returned
// pattern is removed before generic normalization.
type VersionCleaner interface {
	VersionCleanup() *regexp.Regexp
}

// Factory creates a backend instance for a given base URL.
type Factory func(baseURL string, c *client.Client) Backend

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a backend factory to the global registry.
// ecosystem is the identifier (e.g. "pypi", "npm", "github").
// defaultURL is the default upstream URL for the ecosystem.
func Register(ecosystem string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[ecosystem] = factory
	defaults[ecosystem] = defaultURL
}

// New creates a backend for the given ecosystem.
// If baseURL is empty, the default upstream URL is used.
func New(ecosystem string, baseURL string, c *client.Client) (Backend, error) {
	mu.RLock()
	factory, ok := factories[ecosystem]
	defaultURL := defaults[ecosystem]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown ecosystem %q: %w", ecosystem, ErrNotFound)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}

	if c == nil {
		c = client.DefaultClient()
	}

	return factory(baseURL, c), nil
}

// DefaultBackendFor returns the default backend variant for an ecosystem.
func DefaultBackendFor(ecosystem string, c *client.Client) (Backend, error) {
	return New(ecosystem, "", c)
}

// BackendFor resolves the backend for a project: its explicit backend
// variant when set, otherwise the ecosystem default.
func BackendFor(p *Project, c *client.Client) (Backend, error) {
	variant := p.Backend
	if variant == "" {
		variant = p.Ecosystem
	}
	return New(variant, "", c)
}

// SupportedEcosystems returns all registered ecosystem identifiers.
func SupportedEcosystems() []string {
	mu.RLock()
	defer mu.RUnlock()

	ecosystems := make([]string, 0, len(factories))
	for eco := range factories {
		ecosystems = append(ecosystems, eco)
	}
	return ecosystems
}

// DefaultURL returns the default upstream URL for an ecosystem.
func DefaultURL(ecosystem string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[ecosystem]
}

// ValidateUnique checks that (name, ecosystem) does not collide with any
// existing project. Returns a ConflictError on collision, never swallowing
// the duplicate condition.
func ValidateUnique(name, ecosystem string, existing []Project) error {
	for i := range existing {
		if existing[i].Name == name && existing[i].Ecosystem == ecosystem {
			return &ConflictError{Name: name, Ecosystem: ecosystem}
		}
	}
	return nil
}

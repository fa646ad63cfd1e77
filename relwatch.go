// Package relwatch monitors upstream projects for new releases.
//
// The package queries package ecosystems (PyPI, npm, crates.io, RubyGems,
// GitHub, SourceForge, Debian, plain folder listings) for published version
// strings, normalizes them into a total order, and reports when a project
// has released something strictly newer than the last known version.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/relwatch/relwatch"
//		_ "github.com/relwatch/relwatch/all"
//	)
//
//	backend, err := relwatch.DefaultBackendFor("pypi", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	raw, err := backend.FetchVersions(context.Background(),
//		&relwatch.Project{Name: "requests", Ecosystem: "pypi"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// To register individual backends instead of all of them, blank-import the
// internal ecosystem packages directly.
package relwatch

import (
	"github.com/git-pkgs/purl"

	"github.com/relwatch/relwatch/client"
	"github.com/relwatch/relwatch/internal/core"
	"github.com/relwatch/relwatch/internal/versions"
)

// Re-export types from internal/core
type (
	// Project is one monitored upstream project.
	Project = core.Project

	// VersionRecord is one discovered version of a project.
	VersionRecord = core.VersionRecord

	// Backend is the interface implemented by all upstream fetchers.
	Backend = core.Backend

	// Factory creates a backend instance for a given base URL.
	Factory = core.Factory

	// Store persists projects and their version history.
	Store = core.Store

	// Publisher receives new-release events.
	Publisher = core.Publisher

	// Reporter receives pass reports and per-project diagnostics.
	Reporter = core.Reporter

	// ProjectFilter restricts project listings.
	ProjectFilter = core.ProjectFilter

	// Outcome classifies one check runner invocation.
	Outcome = core.Outcome

	// CheckResult is the outcome of checking one project.
	CheckResult = core.CheckResult

	// RunReport aggregates all CheckResults of one scheduler pass.
	RunReport = core.RunReport

	// NewReleaseEvent is handed to publishers at most once per new version.
	NewReleaseEvent = core.NewReleaseEvent
)

// Re-export types from client
type (
	// Client is the HTTP client backends fetch with.
	Client = client.Client

	// URLBuilder constructs URLs for a backend.
	URLBuilder = client.URLBuilder

	// FetchConfig carries the per-project fetch settings.
	FetchConfig = client.FetchConfig
)

// Re-export constants
const (
	OutcomeNoChange     = core.OutcomeNoChange
	OutcomeNewVersion   = core.OutcomeNewVersion
	OutcomeFetchError   = core.OutcomeFetchError
	OutcomeParseError   = core.OutcomeParseError
	OutcomeStorageError = core.OutcomeStorageError
)

// Re-export errors
var (
	ErrNotFound = core.ErrNotFound
)

// Error types
type (
	FetchError    = core.FetchError
	ParseError    = core.ParseError
	ConflictError = core.ConflictError
	HTTPError     = client.HTTPError
)

// Version is a parsed, comparable version string.
type Version = versions.Version

// VersionOptions controls version parsing.
type VersionOptions = versions.Options

// ParseVersion normalizes one raw version string.
func ParseVersion(raw string, opts VersionOptions) (Version, error) {
	return versions.Parse(raw, opts)
}

// CompareVersions orders two parsed versions: negative, zero, or positive.
func CompareVersions(a, b Version) int {
	return versions.Compare(a, b)
}

// MaxVersion returns the greatest of the candidates, false when empty.
func MaxVersion(candidates []Version) (Version, bool) {
	return versions.Max(candidates)
}

// Register adds a backend factory to the global registry.
func Register(ecosystem string, defaultURL string, factory Factory) {
	core.Register(ecosystem, defaultURL, factory)
}

// New creates a backend for the given ecosystem.
// If baseURL is empty, the default upstream URL is used.
// If c is nil, DefaultClient() is used.
func New(ecosystem string, baseURL string, c *Client) (Backend, error) {
	return core.New(ecosystem, baseURL, c)
}

// DefaultBackendFor returns the default backend variant for an ecosystem.
func DefaultBackendFor(ecosystem string, c *Client) (Backend, error) {
	return core.DefaultBackendFor(ecosystem, c)
}

// BackendFor resolves the backend for a project: its explicit backend
// variant when set, otherwise the ecosystem default.
func BackendFor(p *Project, c *Client) (Backend, error) {
	return core.BackendFor(p, c)
}

// DefaultClient returns a client with sensible defaults:
// - 20s timeout
// - cached DNS resolution
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// Option configures a Client.
type Option = client.Option

// WithTimeout sets the default fetch timeout.
var WithTimeout = client.WithTimeout

// WithUserAgent sets the User-Agent header.
var WithUserAgent = client.WithUserAgent

// SupportedEcosystems returns all registered ecosystem identifiers.
// Note: ecosystems must be imported to be registered.
func SupportedEcosystems() []string {
	return core.SupportedEcosystems()
}

// DefaultURL returns the default upstream URL for an ecosystem.
func DefaultURL(ecosystem string) string {
	return core.DefaultURL(ecosystem)
}

// ValidateUnique checks that (name, ecosystem) does not collide with any
// existing project.
func ValidateUnique(name, ecosystem string, existing []Project) error {
	return core.ValidateUnique(name, ecosystem, existing)
}

// BuildURLs returns a map of all non-empty URLs for a project.
// Keys are "project", "releases", and "purl".
func BuildURLs(urls URLBuilder, name, version string) map[string]string {
	return client.BuildURLs(urls, name, version)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:pypi/requests) and version PURLs
// (pkg:pypi/requests@2.31.0).
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// ProjectFromPURL builds a project skeleton from a Package URL. The purl
// type selects the ecosystem; a repository_url qualifier overrides the
// fetch location.
func ProjectFromPURL(purlStr string) (*Project, error) {
	return core.ProjectFromPURL(purlStr)
}

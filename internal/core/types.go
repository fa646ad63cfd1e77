// Package core provides shared types, the backend registry, and the
// collaborator contracts for the release-check engine.
package core

import "time"

// Project is one monitored upstream project.
//
// Identity fields are set through the management surface; the latest-known
// fields are mutated only by the check runner after the regression guard
// has confirmed a strictly newer version.
type Project struct {
	ID        int64
	Name      string
	Homepage  string
	Ecosystem string
	Backend   string

	// VersionURL overrides the fetch locator when the upstream location
	// cannot be derived from the project name (folder listings, forges).
	VersionURL string

	// VersionRegex is the pattern folder-style backends scrape listings
	// with. Empty means the backend default.
	VersionRegex string

	// VersionPrefix is stripped from raw version strings exactly once,
	// anchored at the start (e.g. a "foo-" tag prefix).
	VersionPrefix string

	// VersionScheme selects the comparison scheme: "generic" (default)
	// or "semver".
	VersionScheme string

	// Insecure permits certificate-validation bypass for this project.
	// Read fresh on every fetch so a toggle applies on the next check.
	Insecure bool

	// FetchTimeout bounds one backend round trip. Zero means the
	// process-wide default.
	FetchTimeout time.Duration

	LatestVersion    string // normalized
	LatestRawVersion string
	LastChecked      time.Time
}

// Locator returns the identifier a backend should fetch with.
func (p *Project) Locator() string {
	if p.VersionURL != "" {
		return p.VersionURL
	}
	return p.Name
}

// VersionRecord is one discovered version of a project. Immutable.
type VersionRecord struct {
	ProjectID    int64
	Raw          string
	Version      string // normalized ordering key
	DiscoveredAt time.Time
}

// Ecosystem is read-only reference data mapping an ecosystem identifier to
// its default backend and registry URL.
type Ecosystem struct {
	ID         string
	DefaultURL string
}

// Outcome classifies one check runner invocation.
type Outcome string

const (
	OutcomeNoChange   Outcome = "no_change"
	OutcomeNewVersion Outcome = "new_version"
	OutcomeFetchError Outcome = "fetch_error"
	OutcomeParseError Outcome = "parse_error"

	// OutcomeStorageError marks a confirmed new version that could not be
	// persisted for a reason other than losing a write race.
	OutcomeStorageError Outcome = "storage_error"
)

// CheckResult is the outcome of checking one project. Transient; consumed
// by the scheduler's aggregation and never persisted.
type CheckResult struct {
	ProjectID   int64
	ProjectName string
	Outcome     Outcome
	NewVersion  *VersionRecord
	Err         error
}

// NewReleaseEvent is handed to the publishing collaborator at most once per
// distinct new version per project per pass.
type NewReleaseEvent struct {
	ProjectID    int64     `json:"project_id"`
	Project      string    `json:"project"`
	Ecosystem    string    `json:"ecosystem"`
	Version      string    `json:"version"`
	Raw          string    `json:"raw"`
	Homepage     string    `json:"homepage,omitempty"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// RunReport aggregates all CheckResults of one scheduler pass.
type RunReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Aborted    bool

	Total         int
	NoChange      int
	NewVersions   int
	FetchErrors   int
	ParseErrors   int
	StorageErrors int

	Releases []NewReleaseEvent
}

// Record folds one result into the report counters. Not safe for concurrent
// use; the scheduler serializes aggregation.
func (r *RunReport) Record(res CheckResult) {
	r.Total++
	switch res.Outcome {
	case OutcomeNoChange:
		r.NoChange++
	case OutcomeNewVersion:
		r.NewVersions++
	case OutcomeFetchError:
		r.FetchErrors++
	case OutcomeParseError:
		r.ParseErrors++
	case OutcomeStorageError:
		r.StorageErrors++
	}
}

// Failures returns the number of checks that did not complete cleanly.
func (r *RunReport) Failures() int {
	return r.FetchErrors + r.ParseErrors + r.StorageErrors
}

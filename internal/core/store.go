package core

import "context"

// ProjectFilter narrows ListProjects. Zero value lists everything.
type ProjectFilter struct {
	Ecosystem string
	Backend   string

	// MissingEcosystem selects legacy projects with no ecosystem assigned
	// (reconciliation input).
	MissingEcosystem bool
}

// Store is the persistence collaborator. Implementations must be safe under
// concurrent callers for distinct projects and must serialize same-project
// updates; UpdateLatestVersion returns a ConflictError on a stale write.
type Store interface {
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]Project, error)

	// CreateProject persists a new project. Returns a ConflictError when
	// the (name, ecosystem) pair already exists.
	CreateProject(ctx context.Context, p *Project) error

	// UpdateLatestVersion records rec and advances the project's
	// latest-known fields, guarded by prevVersion: the write applies only
	// if the stored normalized version still equals prevVersion.
	UpdateLatestVersion(ctx context.Context, id int64, rec VersionRecord, prevVersion string) error

	// TouchLastChecked records a completed check that found no change.
	TouchLastChecked(ctx context.Context, id int64) error

	// ListVersions returns a project's version records, newest first.
	ListVersions(ctx context.Context, projectID int64) ([]VersionRecord, error)

	// SetEcosystem assigns an ecosystem to a legacy project
	// (reconciliation only).
	SetEcosystem(ctx context.Context, id int64, ecosystem string) error
}

// Publisher is the notification collaborator. Fire-and-forget from the
// core's perspective; the scheduler calls it at most once per distinct new
// version per project per pass.
type Publisher interface {
	Publish(ctx context.Context, event NewReleaseEvent) error
}

// Reporter is the diagnostics collaborator.
type Reporter interface {
	// Report receives the finalized report of one pass.
	Report(report *RunReport)

	// LogDiagnostic records a non-fatal per-project anomaly, such as a
	// version string that failed to normalize.
	LogDiagnostic(projectID int64, kind string, detail string)
}

// Package check implements the per-project release check: one backend
// round trip, normalization, and the guarded latest-version update.
package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/client"
	"github.com/relwatch/relwatch/internal/core"
	"github.com/relwatch/relwatch/internal/versions"
)

// Config wires a Runner.
type Config struct {
	Client   *client.Client
	Store    core.Store
	Reporter core.Reporter
	Breakers *client.BreakerGroup

	// DefaultTimeout applies to projects without their own FetchTimeout.
	DefaultTimeout time.Duration

	// MaxRetries is the number of additional fetch attempts for retryable
	// failures. Backends themselves never retry.
	MaxRetries uint64

	Logger zerolog.Logger
}

// Runner checks one project at a time. Safe for concurrent use across
// distinct projects.
type Runner struct {
	client   *client.Client
	store    core.Store
	reporter core.Reporter
	breakers *client.BreakerGroup
	timeout  time.Duration
	retries  uint64
	log      zerolog.Logger
}

// New creates a Runner, filling in defaults for missing config.
func New(cfg Config) *Runner {
	if cfg.Client == nil {
		cfg.Client = client.DefaultClient()
	}
	if cfg.Breakers == nil {
		cfg.Breakers = client.NewBreakerGroup()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 20 * time.Second
	}
	return &Runner{
		client:   cfg.Client,
		store:    cfg.Store,
		reporter: cfg.Reporter,
		breakers: cfg.Breakers,
		timeout:  cfg.DefaultTimeout,
		retries:  cfg.MaxRetries,
		log:      cfg.Logger,
	}
}

// Run performs one check of p. Failures are contained: the returned
// CheckResult carries the error, the project record is only mutated when a
// strictly newer version was confirmed, and a stale fetch can never
// overwrite a known-newer version.
func (r *Runner) Run(ctx context.Context, p *core.Project) core.CheckResult {
	result := core.CheckResult{ProjectID: p.ID, ProjectName: p.Name}

	// Work on a snapshot with the timeout default applied; the project's
	// own configuration is re-read from p on every fetch.
	proj := *p
	if proj.FetchTimeout <= 0 {
		proj.FetchTimeout = r.timeout
	}

	backend, err := core.BackendFor(&proj, r.client)
	if err != nil {
		result.Outcome = core.OutcomeFetchError
		result.Err = err
		r.diagnostic(p.ID, "unknown_backend", err.Error())
		return result
	}

	fetchURL := proj.VersionURL
	if fetchURL == "" {
		fetchURL = backend.URLs().Releases(proj.Name)
	}

	raw, fetchErr := r.fetch(ctx, backend, &proj, fetchURL)
	if fetchErr != nil {
		result.Outcome = core.OutcomeFetchError
		result.Err = fetchErr
		r.diagnostic(p.ID, "fetch_error", fetchErr.Error())
		return result
	}

	candidates, lastParseErr := r.normalize(backend, &proj, raw)
	if len(candidates) == 0 {
		if lastParseErr == nil {
			lastParseErr = &core.ParseError{Kind: core.ParseEmpty}
		}
		result.Outcome = core.OutcomeParseError
		result.Err = lastParseErr
		return result
	}

	max, _ := versions.Max(candidates)

	if !isNewer(max, proj.LatestVersion, proj.VersionScheme) {
		if ctx.Err() == nil {
			if err := r.store.TouchLastChecked(ctx, p.ID); err != nil {
				r.diagnostic(p.ID, "storage_error", err.Error())
			}
		}
		result.Outcome = core.OutcomeNoChange
		return result
	}

	// Cancellation observed: abandon without mutating.
	if ctx.Err() != nil {
		result.Outcome = core.OutcomeFetchError
		result.Err = core.WrapFetch(fetchURL, ctx.Err())
		return result
	}

	rec := core.VersionRecord{
		ProjectID:    p.ID,
		Raw:          max.Raw,
		Version:      max.Norm,
		DiscoveredAt: time.Now().UTC(),
	}

	applied, err := r.apply(ctx, &proj, max, rec)
	if err != nil {
		if core.IsConflict(err) {
			// A concurrent writer keeps advancing the record; their
			// state wins.
			r.diagnostic(p.ID, "storage_conflict", err.Error())
			result.Outcome = core.OutcomeNoChange
			return result
		}
		r.diagnostic(p.ID, "storage_error", err.Error())
		result.Outcome = core.OutcomeStorageError
		result.Err = err
		return result
	}
	if !applied {
		// A concurrent writer already recorded this or a newer version.
		result.Outcome = core.OutcomeNoChange
		return result
	}

	r.log.Info().
		Str("project", p.Name).
		Str("ecosystem", p.Ecosystem).
		Str("version", rec.Version).
		Msg("new version found")

	result.Outcome = core.OutcomeNewVersion
	result.NewVersion = &rec
	return result
}

// fetch performs the backend round trip under the per-host circuit breaker,
// re-attempting retryable failures with exponential backoff.
func (r *Runner) fetch(ctx context.Context, backend core.Backend, p *core.Project, fetchURL string) ([]string, *core.FetchError) {
	host := client.HostKey(fetchURL)

	var raw []string
	attempt := func() error {
		return r.breakers.Call(host, func() error {
			vs, err := backend.FetchVersions(ctx, p)
			if err != nil {
				return err
			}
			raw = vs
			return nil
		})
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.retries), ctx)

	err := backoff.Retry(func() error {
		err := attempt()
		if err == nil {
			return nil
		}
		if errors.Is(err, client.ErrCircuitOpen) {
			return backoff.Permanent(err)
		}
		if fe := core.WrapFetch(fetchURL, err); !fe.Retryable() {
			return backoff.Permanent(fe)
		}
		return err
	}, policy)

	if err != nil {
		return nil, core.WrapFetch(fetchURL, err)
	}
	return raw, nil
}

// normalize parses every distinct raw string, discarding unparseable ones
// as diagnostics rather than failing the whole check.
func (r *Runner) normalize(backend core.Backend, p *core.Project, raw []string) ([]versions.Version, error) {
	opts := parseOptions(p, backend)

	seen := make(map[string]bool, len(raw))
	candidates := make([]versions.Version, 0, len(raw))
	var lastErr error

	for _, s := range raw {
		if seen[s] {
			continue
		}
		seen[s] = true

		v, err := versions.Parse(s, opts)
		if err != nil {
			lastErr = err
			r.diagnostic(p.ID, "parse_error", fmt.Sprintf("discarding %q: %v", s, err))
			continue
		}
		candidates = append(candidates, v)
	}
	return candidates, lastErr
}

// isNewer applies the regression guard: only a strictly greater version
// counts as new. The stored value is already normalized; only the scheme
// matters when re-parsing it. An uncomparable stored version never blocks
// progress.
func isNewer(max versions.Version, latest, scheme string) bool {
	if latest == "" {
		return true
	}
	current, err := versions.Parse(latest, versions.Options{Scheme: scheme})
	if err != nil {
		return true
	}
	return versions.Compare(max, current) > 0
}

// apply writes the update, retrying once with a fresh read when the store
// reports a concurrent-write conflict. Returns applied=false with a nil
// error when the fresh state already holds this or a newer version.
func (r *Runner) apply(ctx context.Context, p *core.Project, max versions.Version, rec core.VersionRecord) (bool, error) {
	err := r.store.UpdateLatestVersion(ctx, p.ID, rec, p.LatestVersion)
	if err == nil {
		return true, nil
	}
	if !core.IsConflict(err) {
		return false, err
	}

	fresh, getErr := r.store.GetProject(ctx, p.ID)
	if getErr != nil {
		return false, getErr
	}

	if !isNewer(max, fresh.LatestVersion, fresh.VersionScheme) {
		return false, nil
	}

	if err := r.store.UpdateLatestVersion(ctx, fresh.ID, rec, fresh.LatestVersion); err != nil {
		return false, err
	}
	return true, nil
}

func parseOptions(p *core.Project, backend core.Backend) versions.Options {
	opts := versions.Options{
		Prefix: p.VersionPrefix,
		Scheme: p.VersionScheme,
	}
	if cleaner, ok := backend.(core.VersionCleaner); ok {
		opts.Cleanup = cleaner.VersionCleanup()
	}
	return opts
}

func (r *Runner) diagnostic(projectID int64, kind, detail string) {
	if r.reporter != nil {
		r.reporter.LogDiagnostic(projectID, kind, detail)
	}
}

// Package reconcile assigns ecosystems to projects that were imported
// without one, deriving the ecosystem from the configured backend.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/core"
)

// Result summarizes one reconciliation run.
type Result struct {
	Scanned  int
	Assigned int
	Skipped  int

	// Conflicts lists projects whose derived ecosystem would collide with
	// an existing (name, ecosystem) pair. They are reported, never
	// silently merged.
	Conflicts []error
}

// Reconciler performs the one-shot assignment. Safe to run repeatedly:
// a second run over reconciled state changes nothing.
type Reconciler struct {
	store core.Store
	log   zerolog.Logger
}

func New(store core.Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// Run scans projects without an ecosystem and assigns the one implied by
// their backend, when that backend is a registered ecosystem.
func (r *Reconciler) Run(ctx context.Context) (*Result, error) {
	missing, err := r.store.ListProjects(ctx, core.ProjectFilter{MissingEcosystem: true})
	if err != nil {
		return nil, fmt.Errorf("listing unassigned projects: %w", err)
	}
	all, err := r.store.ListProjects(ctx, core.ProjectFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	registered := make(map[string]bool)
	for _, eco := range core.SupportedEcosystems() {
		registered[eco] = true
	}

	result := &Result{}
	for i := range missing {
		p := &missing[i]
		result.Scanned++

		eco := p.Backend
		if eco == "" || !registered[eco] {
			result.Skipped++
			continue
		}

		if err := core.ValidateUnique(p.Name, eco, all); err != nil {
			result.Conflicts = append(result.Conflicts, err)
			r.log.Warn().
				Str("project", p.Name).
				Str("ecosystem", eco).
				Msg("reconcile conflict")
			continue
		}

		if err := r.store.SetEcosystem(ctx, p.ID, eco); err != nil {
			if core.IsConflict(err) {
				result.Conflicts = append(result.Conflicts, err)
				continue
			}
			return result, fmt.Errorf("assigning ecosystem for %q: %w", p.Name, err)
		}

		// Keep the snapshot current so in-batch duplicates stay loud.
		for j := range all {
			if all[j].ID == p.ID {
				all[j].Ecosystem = eco
			}
		}

		result.Assigned++
		r.log.Info().
			Str("project", p.Name).
			Str("ecosystem", eco).
			Msg("ecosystem assigned")
	}

	return result, nil
}

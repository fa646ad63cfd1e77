// Package scheduler runs check passes over the monitored project set with a
// bounded worker pool. One failing project never takes down a pass.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/relwatch/relwatch/internal/check"
	"github.com/relwatch/relwatch/internal/core"
	"github.com/relwatch/relwatch/internal/metrics"
)

// ErrPassRunning is returned when Run is called while a pass is in flight.
var ErrPassRunning = errors.New("scheduler: pass already running")

// State is the scheduler's lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

// Config wires a Scheduler.
type Config struct {
	Store     core.Store
	Runner    *check.Runner
	Publisher core.Publisher
	Reporter  core.Reporter
	Metrics   *metrics.Metrics

	// Workers bounds concurrent checks per pass. Defaults to 10.
	Workers int

	// Filter restricts the pass to a subset of projects.
	Filter core.ProjectFilter

	Logger zerolog.Logger
}

// Scheduler drives passes. At most one pass runs at a time.
type Scheduler struct {
	store     core.Store
	runner    *check.Runner
	publisher core.Publisher
	reporter  core.Reporter
	metrics   *metrics.Metrics
	workers   int
	filter    core.ProjectFilter
	log       zerolog.Logger

	state atomic.Int32
}

func New(cfg Config) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.Runner == nil {
		cfg.Runner = check.New(check.Config{Store: cfg.Store, Reporter: cfg.Reporter, Logger: cfg.Logger})
	}
	return &Scheduler{
		store:     cfg.Store,
		runner:    cfg.Runner,
		publisher: cfg.Publisher,
		reporter:  cfg.Reporter,
		metrics:   cfg.Metrics,
		workers:   cfg.Workers,
		filter:    cfg.Filter,
		log:       cfg.Logger,
	}
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run executes one full pass: every matching project is checked exactly once,
// results are aggregated into a RunReport, and each confirmed new version is
// published at most once. Cancelling ctx stops dispatching new checks; checks
// already in flight drain before Run returns with Aborted set.
func (s *Scheduler) Run(ctx context.Context) (*core.RunReport, error) {
	for {
		cur := s.state.Load()
		if State(cur) == StateRunning {
			return nil, ErrPassRunning
		}
		if s.state.CompareAndSwap(cur, int32(StateRunning)) {
			break
		}
	}

	report := &core.RunReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	projects, err := s.store.ListProjects(ctx, s.filter)
	if err != nil {
		s.state.Store(int32(StateAborted))
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	s.log.Info().
		Str("pass", report.ID).
		Int("projects", len(projects)).
		Int("workers", s.workers).
		Msg("pass started")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		sem       = make(chan struct{}, s.workers)
		published = make(map[string]bool)
	)

dispatch:
	for i := range projects {
		select {
		case <-ctx.Done():
			report.Aborted = true
			break dispatch
		case sem <- struct{}{}:
		}

		p := projects[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			res := s.check(ctx, &p)

			mu.Lock()
			report.Record(res)
			if res.Outcome == core.OutcomeNewVersion && res.NewVersion != nil {
				key := fmt.Sprintf("%d@%s", p.ID, res.NewVersion.Version)
				if !published[key] {
					published[key] = true
					event := core.NewReleaseEvent{
						ProjectID:    p.ID,
						Project:      p.Name,
						Ecosystem:    p.Ecosystem,
						Version:      res.NewVersion.Version,
						Raw:          res.NewVersion.Raw,
						Homepage:     p.Homepage,
						DiscoveredAt: res.NewVersion.DiscoveredAt,
					}
					report.Releases = append(report.Releases, event)
					mu.Unlock()
					s.publish(ctx, event)
					mu.Lock()
				}
			}
			mu.Unlock()

			s.observe(res)
		}()
	}

	wg.Wait()
	report.FinishedAt = time.Now().UTC()

	if report.Aborted || ctx.Err() != nil {
		report.Aborted = true
		s.state.Store(int32(StateAborted))
	} else {
		s.state.Store(int32(StateCompleted))
	}

	if s.metrics != nil {
		s.metrics.PassDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
	if s.reporter != nil {
		s.reporter.Report(report)
	}

	s.log.Info().
		Str("pass", report.ID).
		Int("total", report.Total).
		Int("new_versions", report.NewVersions).
		Int("failures", report.Failures()).
		Bool("aborted", report.Aborted).
		Msg("pass finished")

	return report, nil
}

// check isolates one project: a panicking backend becomes a failed result
// instead of killing the pass.
func (s *Scheduler) check(ctx context.Context, p *core.Project) (res core.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("project", p.Name).
				Interface("panic", r).
				Msg("check panicked")
			res = core.CheckResult{
				ProjectID:   p.ID,
				ProjectName: p.Name,
				Outcome:     core.OutcomeFetchError,
				Err:         fmt.Errorf("check panicked: %v", r),
			}
		}
	}()
	return s.runner.Run(ctx, p)
}

func (s *Scheduler) publish(ctx context.Context, event core.NewReleaseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().
			Str("project", event.Project).
			Str("version", event.Version).
			Err(err).
			Msg("publish failed")
	}
}

func (s *Scheduler) observe(res core.CheckResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.ChecksTotal.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome == core.OutcomeNewVersion {
		s.metrics.NewVersionsTotal.Inc()
	}
}

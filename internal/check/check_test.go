package check

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relwatch/relwatch/client"
	"github.com/relwatch/relwatch/internal/core"
	_ "github.com/relwatch/relwatch/internal/pypi"
)

// stubBackend is a controllable backend registered under a unique
// ecosystem id per test.
type stubBackend struct {
	eco      string
	versions []string
	err      error
	calls    int
}

func (s *stubBackend) Ecosystem() string { return s.eco }

func (s *stubBackend) FetchVersions(ctx context.Context, p *core.Project) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.versions, nil
}

func (s *stubBackend) URLs() client.URLBuilder { return &client.BaseURLs{} }

var stubSeq int

func registerStub(t *testing.T) *stubBackend {
	t.Helper()
	stubSeq++
	s := &stubBackend{eco: fmt.Sprintf("stub%d", stubSeq)}
	core.Register(s.eco, "", func(baseURL string, c *core.Client) core.Backend { return s })
	return s
}

// memStore is an in-memory core.Store with injectable update conflicts.
type memStore struct {
	mu            sync.Mutex
	projects      map[int64]*core.Project
	records       []core.VersionRecord
	touched       int
	conflictsLeft int
	updateErr     error
}

func newMemStore(ps ...*core.Project) *memStore {
	m := &memStore{projects: make(map[int64]*core.Project)}
	for _, p := range ps {
		cp := *p
		m.projects[p.ID] = &cp
	}
	return m
}

func (m *memStore) GetProject(_ context.Context, id int64) (*core.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListProjects(_ context.Context, _ core.ProjectFilter) ([]core.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Project
	for _, p := range m.projects {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) CreateProject(_ context.Context, p *core.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

func (m *memStore) UpdateLatestVersion(_ context.Context, id int64, rec core.VersionRecord, prev string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return &core.ConflictError{Name: "project", Reason: "stale latest version"}
	}
	p, ok := m.projects[id]
	if !ok {
		return core.ErrNotFound
	}
	if p.LatestVersion != prev {
		return &core.ConflictError{Name: p.Name, Ecosystem: p.Ecosystem, Reason: "stale latest version"}
	}
	p.LatestVersion = rec.Version
	p.LatestRawVersion = rec.Raw
	p.LastChecked = rec.DiscoveredAt
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) TouchLastChecked(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched++
	if p, ok := m.projects[id]; ok {
		p.LastChecked = time.Now().UTC()
	}
	return nil
}

func (m *memStore) ListVersions(_ context.Context, projectID int64) ([]core.VersionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.VersionRecord
	for _, r := range m.records {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) SetEcosystem(_ context.Context, id int64, ecosystem string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		p.Ecosystem = ecosystem
	}
	return nil
}

func (m *memStore) latest(id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projects[id].LatestVersion
}

func runner(store core.Store) *Runner {
	return New(Config{Store: store})
}

func TestRun_NewVersionFound(t *testing.T) {
	stub := registerStub(t)
	stub.versions = []string{"foo-1.2.0", "foo-1.3.0", "foo-1.2.0rc1"}

	p := &core.Project{
		ID:            1,
		Name:          "foo",
		Ecosystem:     stub.eco,
		VersionPrefix: "foo-",
		LatestVersion: "1.2.0",
	}
	store := newMemStore(p)

	res := runner(store).Run(context.Background(), p)

	require.Equal(t, core.OutcomeNewVersion, res.Outcome)
	require.NotNil(t, res.NewVersion)
	assert.Equal(t, "1.3.0", res.NewVersion.Version)
	assert.Equal(t, "foo-1.3.0", res.NewVersion.Raw)
	assert.Equal(t, "1.3.0", store.latest(1))
}

func TestRun_Idempotent(t *testing.T) {
	stub := registerStub(t)
	stub.versions = []string{"1.3.0", "1.2.0"}

	p := &core.Project{ID: 1, Name: "foo", Ecosystem: stub.eco}
	store := newMemStore(p)
	r := runner(store)

	first := r.Run(context.Background(), p)
	require.Equal(t, core.OutcomeNewVersion, first.Outcome)

	// Second run against the refreshed record: no upstream change.
	fresh, err := store.GetProject(context.Background(), 1)
	require.NoError(t, err)

	second := r.Run(context.Background(), fresh)
	assert.Equal(t, core.OutcomeNoChange, second.Outcome)
	assert.Equal(t, "1.3.0", store.latest(1))
}

func TestRun_RegressionGuard(t *testing.T) {
	stub := registerStub(t)
	stub.versions = []string{"1.9.0"}

	p := &core.Project{ID: 1, Name: "foo", Ecosystem: stub.eco, LatestVersion: "2.0.0"}
	store := newMemStore(p)

	// A stale listing must never overwrite a known-newer version, even
	// when it repeats.
	for i := 0; i < 3; i++ {
		res := runner(store).Run(context.Background(), p)
		assert.Equal(t, core.OutcomeNoChange, res.Outcome)
		assert.Equal(t, "2.0.0", store.latest(1))
	}
	assert.Equal(t, 3, store.touched)
}

func TestRun_FetchErrorContained(t *testing.T) {
	stub := registerStub(t)
	stub.err = fmt.Errorf("connection refused")

	p := &core.Project{ID: 1, Name: "foo", Ecosystem: stub.eco, LatestVersion: "1.0"}
	store := newMemStore(p)

	res := runner(store).Run(context.Background(), p)
	assert.Equal(t, core.OutcomeFetchError, res.Outcome)
	assert.Error(t, res.Err)
	assert.Equal(t, "1.0", store.latest(1))
	assert.Zero(t, store.touched)
}

func TestRun_UnparseableDiscarded(t *testing.T) {
	stub := registerStub(t)
	stub.versions = []string{"---", "1.0.0"}

	p := &core.Project{ID: 1, Name: "foo", Ecosystem: stub.eco}
	store := newMemStore(p)

	res := runner(store).Run(context.Background(), p)
	require.Equal(t, core.OutcomeNewVersion, res.Outcome)
	assert.Equal(t, "1.0.0", res.NewVersion.Version)
}

func TestRun_AllUnparseable(t *testing.T) {
	stub := registerStub(t)
	stub.versions = []string{"---", "..."}

	p := &core.Project{ID: 1, Name: "foo", Ecosystem: stub.eco}
	store := newMemStore(p)

	res := runner(store).Run(context.Background(), p)
	assert.Equal(t, core.OutcomeParseError, res.Outcome)
	assert.Error(t, res.Err)
}

func TestRun_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	p := &core.Project{
		ID:           1,
		Name:         "slowpkg",
		Ecosystem:    "pypi",
		VersionURL:   server.URL + "/pypi/slowpkg/json",
		FetchTimeout: 100 * time.Millisecond,
	}
	store := newMemStore(p)

	start := time.Now()
	res := runner(store).Run(context.Background(), p)
	elapsed := time.Since(start)

	require.Equal(t, core.OutcomeFetchError, res.Outcome)
	fe := core.WrapFetch("", res.Err)
	assert.Equal(t, core.FetchTimeout, fe.Kind)
	assert.Less(t, elapsed, 1500*time.Millisecond, "timeout must not hang the worker")
}

func TestRun_ConflictRetriedOnce(t *testing.T) {
	stub := registerStub(t)
	stub.versions = []string{"2.0.0"}

	p := &core.Project{ID: 1, Name: "foo", Ecosystem: stub.eco, LatestVersion: "1.0.0"}
	store := newMemStore(p)
	store.conflictsLeft = 1

	res := runner(store).Run(context.Background(), p)
	require.Equal(t, core.OutcomeNewVersion, res.Outcome)
	assert.Equal(t, "2.0.0", store.latest(1))
}

func TestRun_StorageFailureIsNotSuccess(t *testing.T) {
	stub := registerStub(t)
	stub.versions = []string{"2.0.0"}

	p := &core.Project{ID: 1, Name: "foo", Ecosystem: stub.eco, LatestVersion: "1.0.0"}
	store := newMemStore(p)
	store.updateErr = fmt.Errorf("disk I/O error")

	res := runner(store).Run(context.Background(), p)
	require.Equal(t, core.OutcomeStorageError, res.Outcome)
	assert.Error(t, res.Err)
	assert.Equal(t, "1.0.0", store.latest(1))

	// A pass report must count this as a failure, not a quiet pass.
	var report core.RunReport
	report.Record(res)
	assert.Equal(t, 1, report.Failures())
	assert.Equal(t, 0, report.NoChange)
}

func TestRun_ConflictPersists(t *testing.T) {
	stub := registerStub(t)
	stub.versions = []string{"2.0.0"}

	p := &core.Project{ID: 1, Name: "foo", Ecosystem: stub.eco, LatestVersion: "1.0.0"}
	store := newMemStore(p)
	store.conflictsLeft = 2

	res := runner(store).Run(context.Background(), p)
	assert.Equal(t, core.OutcomeNoChange, res.Outcome)
	assert.Equal(t, "1.0.0", store.latest(1))
}

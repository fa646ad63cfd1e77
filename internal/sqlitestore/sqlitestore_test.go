package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relwatch/relwatch/internal/core"
)

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "relwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	p := &core.Project{
		Name:          "requests",
		Homepage:      "https://requests.readthedocs.io",
		Ecosystem:     "pypi",
		VersionPrefix: "v",
		Insecure:      true,
		FetchTimeout:  15 * time.Second,
	}
	require.NoError(t, s.CreateProject(ctx, p))
	require.NotZero(t, p.ID)

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "requests", got.Name)
	assert.Equal(t, "pypi", got.Ecosystem)
	assert.Equal(t, "v", got.VersionPrefix)
	assert.True(t, got.Insecure)
	assert.Equal(t, 15*time.Second, got.FetchTimeout)
	assert.True(t, got.LastChecked.IsZero())
}

func TestGetProject_NotFound(t *testing.T) {
	s := open(t)
	_, err := s.GetProject(context.Background(), 999)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCreateProject_DuplicateConflict(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProject(ctx, &core.Project{Name: "foo", Ecosystem: "pypi"}))

	err := s.CreateProject(ctx, &core.Project{Name: "foo", Ecosystem: "pypi"})
	require.Error(t, err)
	assert.True(t, core.IsConflict(err))

	// Same name in a different ecosystem is a distinct project.
	assert.NoError(t, s.CreateProject(ctx, &core.Project{Name: "foo", Ecosystem: "npm"}))
}

func TestUpdateLatestVersion_Guarded(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	p := &core.Project{Name: "foo", Ecosystem: "pypi"}
	require.NoError(t, s.CreateProject(ctx, p))

	rec := core.VersionRecord{
		ProjectID:    p.ID,
		Raw:          "foo-1.3.0",
		Version:      "1.3.0",
		DiscoveredAt: time.Now().UTC(),
	}
	require.NoError(t, s.UpdateLatestVersion(ctx, p.ID, rec, ""))

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", got.LatestVersion)
	assert.Equal(t, "foo-1.3.0", got.LatestRawVersion)
	assert.False(t, got.LastChecked.IsZero())

	// A writer holding the stale previous value must conflict, not win.
	stale := core.VersionRecord{ProjectID: p.ID, Raw: "1.2.9", Version: "1.2.9", DiscoveredAt: time.Now().UTC()}
	err = s.UpdateLatestVersion(ctx, p.ID, stale, "")
	require.Error(t, err)
	assert.True(t, core.IsConflict(err))

	versions, err := s.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "1.3.0", versions[0].Version)
}

func TestUpdateLatestVersion_HistoryDedup(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	p := &core.Project{Name: "foo", Ecosystem: "pypi"}
	require.NoError(t, s.CreateProject(ctx, p))

	rec := core.VersionRecord{ProjectID: p.ID, Raw: "1.0.0", Version: "1.0.0", DiscoveredAt: time.Now().UTC()}
	require.NoError(t, s.UpdateLatestVersion(ctx, p.ID, rec, ""))

	rec2 := core.VersionRecord{ProjectID: p.ID, Raw: "1.0.0", Version: "1.0.0", DiscoveredAt: time.Now().UTC()}
	require.NoError(t, s.UpdateLatestVersion(ctx, p.ID, rec2, "1.0.0"))

	versions, err := s.ListVersions(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestUpdateLatestVersion_MissingProject(t *testing.T) {
	s := open(t)
	rec := core.VersionRecord{ProjectID: 12, Raw: "1.0", Version: "1.0", DiscoveredAt: time.Now().UTC()}
	err := s.UpdateLatestVersion(context.Background(), 12, rec, "")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestListProjects_Filters(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProject(ctx, &core.Project{Name: "a", Ecosystem: "pypi"}))
	require.NoError(t, s.CreateProject(ctx, &core.Project{Name: "b", Ecosystem: "npm"}))
	require.NoError(t, s.CreateProject(ctx, &core.Project{Name: "c", Backend: "folder"}))

	all, err := s.ListProjects(ctx, core.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	pypi, err := s.ListProjects(ctx, core.ProjectFilter{Ecosystem: "pypi"})
	require.NoError(t, err)
	require.Len(t, pypi, 1)
	assert.Equal(t, "a", pypi[0].Name)

	missing, err := s.ListProjects(ctx, core.ProjectFilter{MissingEcosystem: true})
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "c", missing[0].Name)
}

func TestSetEcosystem(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	p := &core.Project{Name: "orphan"}
	require.NoError(t, s.CreateProject(ctx, p))
	require.NoError(t, s.SetEcosystem(ctx, p.ID, "cargo"))

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "cargo", got.Ecosystem)

	assert.ErrorIs(t, s.SetEcosystem(ctx, 999, "cargo"), core.ErrNotFound)
}

func TestSetEcosystem_Conflict(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	require.NoError(t, s.CreateProject(ctx, &core.Project{Name: "dup", Ecosystem: "gem"}))
	orphan := &core.Project{Name: "dup"}
	require.NoError(t, s.CreateProject(ctx, orphan))

	err := s.SetEcosystem(ctx, orphan.ID, "gem")
	require.Error(t, err)
	assert.True(t, core.IsConflict(err))
}

func TestTouchLastChecked(t *testing.T) {
	s := open(t)
	ctx := context.Background()

	p := &core.Project{Name: "foo", Ecosystem: "pypi"}
	require.NoError(t, s.CreateProject(ctx, p))
	require.NoError(t, s.TouchLastChecked(ctx, p.ID))

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.LastChecked.IsZero())
	assert.Equal(t, "", got.LatestVersion)
}

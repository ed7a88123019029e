package deprovision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demoforge/demoforge/internal/demo"
	"github.com/demoforge/demoforge/internal/provider"
	"github.com/demoforge/demoforge/internal/vercel"
)

// callLog records cross-collaborator call order.
type callLog struct {
	calls []string
}

func (l *callLog) add(call string) { l.calls = append(l.calls, call) }

type fakeDeployHost struct {
	log        *callLog
	team       bool
	listing    []vercel.Project
	listErr    error
	teamErr    error
	deleteErr  error
	deleted    []string
	listCalls  int
	notFoundOn map[string]bool
}

func (f *fakeDeployHost) TeamConfigured() bool { return f.team }

func (f *fakeDeployHost) ListProjects(ctx context.Context) (*vercel.Listing, error) {
	f.listCalls++
	f.log.add("vercel.list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &vercel.Listing{Projects: f.listing, Scope: vercel.ScopePersonal}, nil
}

func (f *fakeDeployHost) ListProjectsScoped(ctx context.Context, scope vercel.Scope) ([]vercel.Project, error) {
	if scope == vercel.ScopeTeam && f.teamErr != nil {
		return nil, f.teamErr
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listing, nil
}

func (f *fakeDeployHost) DeleteProject(ctx context.Context, idOrName string) error {
	f.log.add("vercel.delete")
	if f.notFoundOn[idOrName] {
		return provider.FromStatus("vercel", 404, "not found")
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, idOrName)
	return nil
}

type fakeRepoDeleter struct {
	log   *callLog
	err   error
	calls []string
}

func (f *fakeRepoDeleter) DeleteRepo(ctx context.Context, owner, name string) error {
	f.log.add("github.delete")
	f.calls = append(f.calls, owner+"/"+name)
	return f.err
}

type fakeRepo struct {
	log       *callLog
	demos     map[string]demo.Demo
	deleteErr error
}

func (r *fakeRepo) Create(ctx context.Context, d demo.Demo) (demo.Demo, error) {
	r.demos[d.ID] = d
	return d, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (demo.Demo, error) {
	d, ok := r.demos[id]
	if !ok {
		return demo.Demo{}, demo.ErrNotFound
	}
	return d, nil
}

func (r *fakeRepo) ListByOwner(ctx context.Context, ownerID string) ([]demo.Demo, error) {
	return nil, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.log.add("db.delete")
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.demos, id)
	return nil
}

type harness struct {
	log        *callLog
	repo       *fakeRepo
	deployHost *fakeDeployHost
	repoDel    *fakeRepoDeleter
}

func strptr(s string) *string { return &s }

func newHarness() *harness {
	log := &callLog{}
	return &harness{
		log:        log,
		repo:       &fakeRepo{log: log, demos: map[string]demo.Demo{}},
		deployHost: &fakeDeployHost{log: log, notFoundOn: map[string]bool{}},
		repoDel:    &fakeRepoDeleter{log: log},
	}
}

func (h *harness) service() *Service {
	factory := func(token string) (RepoDeleter, error) { return h.repoDel, nil }
	return NewService(h.repo, h.deployHost, factory, Config{DeployDomain: "vercel.app"}, slog.New(slog.DiscardHandler))
}

const (
	frontendName = "demo-acme-frontend-1712000000000-a1b2c3"
	backendName  = "demo-acme-backend-1712000000000-a1b2c3"
)

func (h *harness) seedFullDemo() {
	h.repo.demos["demo_1"] = demo.Demo{
		ID:          "demo_1",
		OwnerID:     "user_1",
		Name:        "Acme",
		FrontendURL: strptr(fmt.Sprintf("https://%s.vercel.app", frontendName)),
		BackendURL:  strptr(fmt.Sprintf("https://%s.vercel.app", backendName)),
		RepoURL:     strptr("https://github.com/octocat/demo-acme-repo-1712000000000-a1b2c3"),
	}
	h.deployHost.listing = []vercel.Project{
		{ID: "prj_f", Name: frontendName},
		{ID: "prj_b", Name: backendName},
	}
}

func TestDeleteDeploymentsHappyPath(t *testing.T) {
	h := newHarness()
	h.seedFullDemo()

	result, err := h.service().DeleteDeployments(context.Background(), "demo_1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, []string{"prj_f", "prj_b"}, h.deployHost.deleted)
}

func TestDeleteDeploymentsIdempotent(t *testing.T) {
	h := newHarness()
	h.seedFullDemo()
	svc := h.service()

	_, err := svc.DeleteDeployments(context.Background(), "demo_1")
	require.NoError(t, err)

	// Second call: listing is pre-cleared, direct name fallback hits 404.
	h.deployHost.listing = nil
	h.deployHost.notFoundOn[frontendName] = true
	h.deployHost.notFoundOn[backendName] = true

	result, err := svc.DeleteDeployments(context.Background(), "demo_1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 2, h.deployHost.listCalls, "listing must be fetched fresh per attempt")
}

func TestDeleteDeploymentsUnknownDemo(t *testing.T) {
	h := newHarness()

	_, err := h.service().DeleteDeployments(context.Background(), "missing")
	require.ErrorIs(t, err, demo.ErrNotFound)
	assert.Empty(t, h.log.calls, "no provider calls on unknown demo id")
}

func TestDeleteDeploymentsNoURLsSucceedsTrivially(t *testing.T) {
	h := newHarness()
	h.repo.demos["demo_1"] = demo.Demo{ID: "demo_1", Name: "Acme"}

	result, err := h.service().DeleteDeployments(context.Background(), "demo_1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, h.deployHost.listCalls)
}

func TestDeleteDeploymentsOneFailureDoesNotBlockTheOther(t *testing.T) {
	h := newHarness()
	h.seedFullDemo()
	h.deployHost.notFoundOn["prj_f"] = false
	h.deployHost.deleteErr = nil

	// Force the frontend delete to fail with a transient error.
	failing := &failFirstDeleteHost{fakeDeployHost: h.deployHost}
	factory := func(token string) (RepoDeleter, error) { return h.repoDel, nil }
	svc := NewService(h.repo, failing, factory, Config{DeployDomain: "vercel.app"}, slog.New(slog.DiscardHandler))

	result, err := svc.DeleteDeployments(context.Background(), "demo_1")
	require.NoError(t, err)
	assert.True(t, result.Success, "provider failures do not change the call outcome")
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, []string{"prj_b"}, h.deployHost.deleted, "backend still deleted after frontend failure")
}

type failFirstDeleteHost struct {
	*fakeDeployHost
	failed bool
}

func (f *failFirstDeleteHost) DeleteProject(ctx context.Context, idOrName string) error {
	if !f.failed {
		f.failed = true
		f.log.add("vercel.delete")
		return provider.FromStatus("vercel", 503, "upstream error")
	}
	return f.fakeDeployHost.DeleteProject(ctx, idOrName)
}

func TestDeleteDataSkipsRepoWhenURLNil(t *testing.T) {
	h := newHarness()
	h.repo.demos["demo_1"] = demo.Demo{ID: "demo_1", Name: "Acme"}

	result, err := h.service().DeleteData(context.Background(), "demo_1", "ghp_tok")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, h.repoDel.calls, "repository branch must be skipped entirely")

	_, err = h.repo.GetByID(context.Background(), "demo_1")
	assert.ErrorIs(t, err, demo.ErrNotFound, "record must still be deleted")
}

func TestDeleteDataRepoFailureSwallowed(t *testing.T) {
	h := newHarness()
	h.seedFullDemo()
	h.repoDel.err = provider.FromStatus("github", 403, "forbidden")

	result, err := h.service().DeleteData(context.Background(), "demo_1", "ghp_tok")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Warnings)

	_, err = h.repo.GetByID(context.Background(), "demo_1")
	assert.ErrorIs(t, err, demo.ErrNotFound, "database row gone despite repository failure")
}

func TestDeleteDataRecordDeleteFailureIsFatal(t *testing.T) {
	h := newHarness()
	h.seedFullDemo()
	h.repo.deleteErr = errors.New("connection refused")

	_, err := h.service().DeleteData(context.Background(), "demo_1", "ghp_tok")
	require.Error(t, err)
	require.NotErrorIs(t, err, demo.ErrNotFound)
}

func TestDeleteDataRequiresToken(t *testing.T) {
	h := newHarness()
	h.seedFullDemo()

	_, err := h.service().DeleteData(context.Background(), "demo_1", "")
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, h.log.calls)
}

func TestDeleteAllOrdering(t *testing.T) {
	h := newHarness()
	h.seedFullDemo()

	result, err := h.service().DeleteAll(context.Background(), "demo_1", "ghp_tok")
	require.NoError(t, err)
	assert.True(t, result.Success)

	// Deployment deletions strictly before repository deletion, which is
	// strictly before the record delete.
	require.Equal(t, []string{
		"vercel.list",
		"vercel.delete",
		"vercel.delete",
		"github.delete",
		"db.delete",
	}, h.log.calls)
}

func TestDeleteAllIdempotentOnRepeat(t *testing.T) {
	h := newHarness()
	h.seedFullDemo()
	svc := h.service()

	_, err := svc.DeleteAll(context.Background(), "demo_1", "ghp_tok")
	require.NoError(t, err)

	// Record is gone now; the repeat reports not-found at lookup.
	_, err = svc.DeleteAll(context.Background(), "demo_1", "ghp_tok")
	require.ErrorIs(t, err, demo.ErrNotFound)
}

func TestConnectionPrefersTeamScope(t *testing.T) {
	h := newHarness()
	h.deployHost.team = true
	h.deployHost.listing = []vercel.Project{{ID: "prj_1", Name: "a"}, {ID: "prj_2", Name: "b"}}

	report, err := h.service().TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, "team", report.EndpointUsed)
	assert.Equal(t, 2, report.ProjectCount)
}

func TestConnectionFallsBackToPersonal(t *testing.T) {
	h := newHarness()
	h.deployHost.team = true
	h.deployHost.teamErr = provider.FromStatus("vercel", 403, "not a member")
	h.deployHost.listing = []vercel.Project{{ID: "prj_1", Name: "a"}}

	report, err := h.service().TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "personal", report.EndpointUsed)
	assert.Equal(t, 1, report.ProjectCount)
}

func TestConnectionAllScopesFail(t *testing.T) {
	h := newHarness()
	h.deployHost.team = true
	h.deployHost.teamErr = provider.FromStatus("vercel", 401, "bad token")
	h.deployHost.listErr = provider.FromStatus("vercel", 401, "bad token")

	_, err := h.service().TestConnection(context.Background())
	require.Error(t, err)
}

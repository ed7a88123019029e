package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demoforge/demoforge/internal/demo"
	"github.com/demoforge/demoforge/internal/deprovision"
	"github.com/demoforge/demoforge/internal/github"
	"github.com/demoforge/demoforge/internal/provision"
)

type mockProvisioner struct {
	result *provision.Result
	err    error
	gotReq provision.Request
}

func (m *mockProvisioner) Provision(_ context.Context, req provision.Request) (*provision.Result, error) {
	m.gotReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockDeprovisioner struct {
	result *deprovision.Result
	report *deprovision.ConnectionReport
	err    error

	gotDemoID string
	gotToken  string
	called    string
}

func (m *mockDeprovisioner) DeleteDeployments(_ context.Context, demoID string) (*deprovision.Result, error) {
	m.called = "deployments"
	m.gotDemoID = demoID
	return m.result, m.err
}

func (m *mockDeprovisioner) DeleteData(_ context.Context, demoID, githubToken string) (*deprovision.Result, error) {
	m.called = "data"
	m.gotDemoID = demoID
	m.gotToken = githubToken
	return m.result, m.err
}

func (m *mockDeprovisioner) DeleteAll(_ context.Context, demoID, githubToken string) (*deprovision.Result, error) {
	m.called = "all"
	m.gotDemoID = demoID
	m.gotToken = githubToken
	return m.result, m.err
}

func (m *mockDeprovisioner) TestConnection(_ context.Context) (*deprovision.ConnectionReport, error) {
	m.called = "status"
	return m.report, m.err
}

type mockDemoRepo struct {
	demos []demo.Demo
	err   error
}

func (m *mockDemoRepo) Create(_ context.Context, d demo.Demo) (demo.Demo, error) { return d, nil }
func (m *mockDemoRepo) GetByID(context.Context, string) (demo.Demo, error) {
	return demo.Demo{}, demo.ErrNotFound
}
func (m *mockDemoRepo) ListByOwner(_ context.Context, ownerID string) ([]demo.Demo, error) {
	return m.demos, m.err
}
func (m *mockDemoRepo) Delete(context.Context, string) error { return nil }

type mockRepoLister struct {
	repos []github.Repo
	err   error
}

func (m *mockRepoLister) ListRepos(context.Context) ([]github.Repo, error) {
	return m.repos, m.err
}

type mockHealth struct{ err error }

func (m *mockHealth) Health() error { return m.err }

type fixture struct {
	provisioner   *mockProvisioner
	deprovisioner *mockDeprovisioner
	repo          *mockDemoRepo
	lister        *mockRepoLister
	listerErr     error
	health        *mockHealth
	router        chi.Router
}

func newFixture() *fixture {
	f := &fixture{
		provisioner:   &mockProvisioner{},
		deprovisioner: &mockDeprovisioner{},
		repo:          &mockDemoRepo{},
		lister:        &mockRepoLister{},
		health:        &mockHealth{},
	}
	factory := func(token string) (RepoLister, error) {
		if f.listerErr != nil {
			return nil, f.listerErr
		}
		return f.lister, nil
	}
	h := NewHandlers(f.provisioner, f.deprovisioner, f.repo, factory, f.health, slog.New(slog.DiscardHandler))
	f.router = chi.NewRouter()
	h.RegisterRoutes(f.router)
	return f
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandleProvision(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture()
		f.provisioner.result = &provision.Result{
			DemoID:      "demo-1",
			FrontendURL: "https://demo-acme-frontend-1-a.vercel.app",
			BackendURL:  "https://demo-acme-backend-1-a.vercel.app",
			RepoURL:     "https://github.com/octocat/demo-acme-repo-1-a",
		}

		rec := f.do(http.MethodPost, "/api/demos", map[string]string{
			"name": "Acme", "ownerId": "u1", "writeKey": "wk",
			"profileToken": "pt", "spaceId": "sp", "githubToken": "tok",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Acme", f.provisioner.gotReq.Name)
		assert.Equal(t, "tok", f.provisioner.gotReq.GithubToken)

		var got provision.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "demo-1", got.DemoID)
	})

	t.Run("invalid body", func(t *testing.T) {
		f := newFixture()
		req := httptest.NewRequest(http.MethodPost, "/api/demos", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		f := newFixture()
		f.provisioner.err = fmt.Errorf("%w: name is required", provision.ErrValidation)
		rec := f.do(http.MethodPost, "/api/demos", map[string]string{"ownerId": "u1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("internal error maps to 500", func(t *testing.T) {
		f := newFixture()
		f.provisioner.err = errors.New("generation failed")
		rec := f.do(http.MethodPost, "/api/demos", map[string]string{"name": "Acme"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleListDemos(t *testing.T) {
	t.Run("returns owner demos", func(t *testing.T) {
		f := newFixture()
		url := "https://demo-acme-frontend-1-a.vercel.app"
		f.repo.demos = []demo.Demo{{
			ID:          "demo-1",
			Name:        "Acme",
			FrontendURL: &url,
			CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}}

		rec := f.do(http.MethodGet, "/api/demos?ownerId=u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Demos []demoResponse `json:"demos"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Demos, 1)
		assert.Equal(t, "demo-1", got.Demos[0].ID)
		assert.Equal(t, "2026-03-01T12:00:00Z", got.Demos[0].CreatedAt)
		require.NotNil(t, got.Demos[0].FrontendURL)
		assert.Nil(t, got.Demos[0].BackendURL)
	})

	t.Run("missing ownerId", func(t *testing.T) {
		f := newFixture()
		rec := f.do(http.MethodGet, "/api/demos", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty list is an empty array", func(t *testing.T) {
		f := newFixture()
		rec := f.do(http.MethodGet, "/api/demos?ownerId=u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"demos":[]}`, rec.Body.String())
	})
}

func TestHandleDeleteRoutes(t *testing.T) {
	t.Run("delete deployments", func(t *testing.T) {
		f := newFixture()
		f.deprovisioner.result = &deprovision.Result{Success: true, Message: "deployments removed"}

		rec := f.do(http.MethodDelete, "/api/demos/demo-1/deployments", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "deployments", f.deprovisioner.called)
		assert.Equal(t, "demo-1", f.deprovisioner.gotDemoID)
	})

	t.Run("delete data passes token", func(t *testing.T) {
		f := newFixture()
		f.deprovisioner.result = &deprovision.Result{Success: true}

		rec := f.do(http.MethodDelete, "/api/demos/demo-1/data", map[string]string{"githubToken": "tok"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "data", f.deprovisioner.called)
		assert.Equal(t, "tok", f.deprovisioner.gotToken)
	})

	t.Run("delete all", func(t *testing.T) {
		f := newFixture()
		f.deprovisioner.result = &deprovision.Result{Success: true, Warnings: []string{"repository already removed"}}

		rec := f.do(http.MethodDelete, "/api/demos/demo-1", map[string]string{"githubToken": "tok"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "all", f.deprovisioner.called)

		var got deprovision.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, []string{"repository already removed"}, got.Warnings)
	})

	t.Run("unknown demo maps to 404", func(t *testing.T) {
		f := newFixture()
		f.deprovisioner.err = fmt.Errorf("loading demo: %w", demo.ErrNotFound)

		rec := f.do(http.MethodDelete, "/api/demos/nope/deployments", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"demo not found"}`, rec.Body.String())
	})

	t.Run("missing token maps to 400", func(t *testing.T) {
		f := newFixture()
		f.deprovisioner.err = fmt.Errorf("%w: githubToken is required", deprovision.ErrValidation)

		rec := f.do(http.MethodDelete, "/api/demos/demo-1/data", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleTestConnection(t *testing.T) {
	f := newFixture()
	f.deprovisioner.report = &deprovision.ConnectionReport{
		Success:      true,
		EndpointUsed: "team",
		ProjectCount: 2,
	}

	rec := f.do(http.MethodGet, "/api/providers/deploy/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got deprovision.ConnectionReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, "team", got.EndpointUsed)
}

func TestHandleListRepos(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture()
		f.lister.repos = []github.Repo{{Name: "demo-acme-repo-1-a", FullName: "octocat/demo-acme-repo-1-a"}}

		rec := f.do(http.MethodPost, "/api/github/repositories", map[string]string{"githubToken": "tok"})
		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Repositories []github.Repo `json:"repositories"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got.Repositories, 1)
		assert.Equal(t, "octocat/demo-acme-repo-1-a", got.Repositories[0].FullName)
	})

	t.Run("missing token", func(t *testing.T) {
		f := newFixture()
		rec := f.do(http.MethodPost, "/api/github/repositories", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("listing failure maps to 500", func(t *testing.T) {
		f := newFixture()
		f.lister.err = errors.New("boom")
		rec := f.do(http.MethodPost, "/api/github/repositories", map[string]string{"githubToken": "tok"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := newFixture()
		rec := f.do(http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("degraded", func(t *testing.T) {
		f := newFixture()
		f.health.err = errors.New("db down")
		rec := f.do(http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

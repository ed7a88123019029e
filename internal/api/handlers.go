// Package api exposes the orchestrators over a small JSON REST surface.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/demoforge/demoforge/internal/demo"
	"github.com/demoforge/demoforge/internal/deprovision"
	"github.com/demoforge/demoforge/internal/github"
	"github.com/demoforge/demoforge/internal/provision"
)

type Provisioner interface {
	Provision(ctx context.Context, req provision.Request) (*provision.Result, error)
}

type Deprovisioner interface {
	DeleteDeployments(ctx context.Context, demoID string) (*deprovision.Result, error)
	DeleteData(ctx context.Context, demoID, githubToken string) (*deprovision.Result, error)
	DeleteAll(ctx context.Context, demoID, githubToken string) (*deprovision.Result, error)
	TestConnection(ctx context.Context) (*deprovision.ConnectionReport, error)
}

type RepoLister interface {
	ListRepos(ctx context.Context) ([]github.Repo, error)
}

// RepoListerFactory builds a code-host client for a per-request credential.
type RepoListerFactory func(token string) (RepoLister, error)

type HealthChecker interface {
	Health() error
}

type Handlers struct {
	provisioner   Provisioner
	deprovisioner Deprovisioner
	demos         demo.Repository
	repoLister    RepoListerFactory
	health        HealthChecker
	logger        *slog.Logger
}

func NewHandlers(
	provisioner Provisioner,
	deprovisioner Deprovisioner,
	demos demo.Repository,
	repoLister RepoListerFactory,
	health HealthChecker,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		provisioner:   provisioner,
		deprovisioner: deprovisioner,
		demos:         demos,
		repoLister:    repoLister,
		health:        health,
		logger:        logger,
	}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/api/demos", h.HandleProvision)
	r.Get("/api/demos", h.HandleListDemos)
	r.Delete("/api/demos/{id}", h.HandleDeleteAll)
	r.Delete("/api/demos/{id}/deployments", h.HandleDeleteDeployments)
	r.Delete("/api/demos/{id}/data", h.HandleDeleteData)
	r.Get("/api/providers/deploy/status", h.HandleTestConnection)
	r.Post("/api/github/repositories", h.HandleListRepos)
	r.Get("/healthz", h.HandleHealth)
}

type provisionRequest struct {
	Name         string `json:"name"`
	OwnerID      string `json:"ownerId"`
	LogoURL      string `json:"logoUrl"`
	WriteKey     string `json:"writeKey"`
	ProfileToken string `json:"profileToken"`
	SpaceID      string `json:"spaceId"`
	GithubToken  string `json:"githubToken"`
	TemplateRepo string `json:"templateRepo"`
}

func (h *Handlers) HandleProvision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	result, err := h.provisioner.Provision(r.Context(), provision.Request{
		Name:         req.Name,
		OwnerID:      req.OwnerID,
		LogoURL:      req.LogoURL,
		WriteKey:     req.WriteKey,
		ProfileToken: req.ProfileToken,
		SpaceID:      req.SpaceID,
		GithubToken:  req.GithubToken,
		TemplateRepo: req.TemplateRepo,
	})
	if err != nil {
		h.logger.Error("provisioning failed", "name", req.Name, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type demoResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	LogoURL     string  `json:"logoUrl,omitempty"`
	FrontendURL *string `json:"frontendUrl"`
	BackendURL  *string `json:"backendUrl"`
	RepoURL     *string `json:"repoUrl"`
	CreatedAt   string  `json:"createdAt"`
}

func toDemoResponse(d demo.Demo) demoResponse {
	return demoResponse{
		ID:          d.ID,
		Name:        d.Name,
		LogoURL:     d.LogoURL,
		FrontendURL: d.FrontendURL,
		BackendURL:  d.BackendURL,
		RepoURL:     d.RepoURL,
		CreatedAt:   d.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handlers) HandleListDemos(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("ownerId")
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ownerId is required"})
		return
	}

	demos, err := h.demos.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("listing demos failed", "ownerId", ownerID, "error", err)
		writeError(w, err)
		return
	}

	out := make([]demoResponse, 0, len(demos))
	for _, d := range demos {
		out = append(out, toDemoResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"demos": out})
}

func (h *Handlers) HandleDeleteDeployments(w http.ResponseWriter, r *http.Request) {
	result, err := h.deprovisioner.DeleteDeployments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type deleteRequest struct {
	GithubToken string `json:"githubToken"`
}

func (h *Handlers) HandleDeleteData(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.deprovisioner.DeleteData(r.Context(), chi.URLParam(r, "id"), req.GithubToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := h.deprovisioner.DeleteAll(r.Context(), chi.URLParam(r, "id"), req.GithubToken)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	report, err := h.deprovisioner.TestConnection(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type listReposRequest struct {
	GithubToken string `json:"githubToken"`
}

func (h *Handlers) HandleListRepos(w http.ResponseWriter, r *http.Request) {
	var req listReposRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GithubToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "githubToken is required"})
		return
	}

	lister, err := h.repoLister(req.GithubToken)
	if err != nil {
		writeError(w, err)
		return
	}

	repos, err := lister.ListRepos(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repositories": repos})
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Health(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

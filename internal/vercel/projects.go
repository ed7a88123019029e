package vercel

import (
	"context"
	"fmt"
	"net/url"

	"github.com/demoforge/demoforge/internal/provider"
)

type ProjectsService struct {
	client *Client
}

type Scope string

const (
	ScopePersonal Scope = "personal"
	ScopeTeam     Scope = "team"
)

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Framework string `json:"framework,omitempty"`
}

// Listing is a fresh snapshot of the projects visible to one scope. It is
// never cached across calls; staleness would cause false not-found results
// during deletion.
type Listing struct {
	Projects []Project
	Scope    Scope
}

func (s *ProjectsService) scopeQuery(scope Scope) url.Values {
	q := url.Values{}
	if scope == ScopeTeam && s.client.config.TeamID != "" {
		q.Set("teamId", s.client.config.TeamID)
	}
	return q
}

func (s *ProjectsService) defaultScope() Scope {
	if s.client.TeamConfigured() {
		return ScopeTeam
	}
	return ScopePersonal
}

// Create registers a new project under the configured scope.
func (s *ProjectsService) Create(ctx context.Context, name, framework string) (*Project, error) {
	body := map[string]any{"name": name}
	if framework != "" {
		body["framework"] = framework
	}

	var project Project
	err := s.client.do(ctx, "POST", "/v10/projects", s.scopeQuery(s.defaultScope()), body, &project)
	if err != nil {
		return nil, fmt.Errorf("create project %q: %w", name, err)
	}
	return &project, nil
}

// Find looks a project up by name. A missing project is not an error;
// it returns (nil, nil).
func (s *ProjectsService) Find(ctx context.Context, name string) (*Project, error) {
	var project Project
	err := s.client.do(ctx, "GET", "/v9/projects/"+url.PathEscape(name), s.scopeQuery(s.defaultScope()), nil, &project)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find project %q: %w", name, err)
	}
	return &project, nil
}

// Delete removes a project by id or name. With a team configured the team
// scope is tried first; a not-found there falls back to the personal scope,
// since older demos may predate the team.
func (s *ProjectsService) Delete(ctx context.Context, idOrName string) error {
	err := s.deleteScoped(ctx, idOrName, s.defaultScope())
	if err == nil {
		return nil
	}

	if s.client.TeamConfigured() && provider.IsNotFound(err) {
		s.client.logger.Info("project not found in team scope, retrying personal scope", "project", idOrName)
		if perr := s.deleteScoped(ctx, idOrName, ScopePersonal); perr == nil {
			return nil
		}
	}

	return err
}

func (s *ProjectsService) deleteScoped(ctx context.Context, idOrName string, scope Scope) error {
	err := s.client.do(ctx, "DELETE", "/v9/projects/"+url.PathEscape(idOrName), s.scopeQuery(scope), nil, nil)
	if err != nil {
		return fmt.Errorf("delete project %q: %w", idOrName, err)
	}
	return nil
}

// List fetches the projects visible to the caller. The team scope is tried
// first when a team is configured; a failing or empty team listing falls
// back to the personal scope. The fallback is automatic and logged, never a
// per-request choice.
func (s *ProjectsService) List(ctx context.Context) (*Listing, error) {
	if s.client.TeamConfigured() {
		projects, err := s.ListScoped(ctx, ScopeTeam)
		if err == nil && len(projects) > 0 {
			return &Listing{Projects: projects, Scope: ScopeTeam}, nil
		}
		if err != nil {
			s.client.logger.Warn("team-scope listing failed, falling back to personal scope", "error", err)
		} else {
			s.client.logger.Info("team-scope listing empty, falling back to personal scope")
		}
	}

	projects, err := s.ListScoped(ctx, ScopePersonal)
	if err != nil {
		return nil, err
	}
	return &Listing{Projects: projects, Scope: ScopePersonal}, nil
}

// ListScoped fetches the listing for exactly one scope with no fallback.
func (s *ProjectsService) ListScoped(ctx context.Context, scope Scope) ([]Project, error) {
	var result struct {
		Projects []Project `json:"projects"`
	}
	err := s.client.do(ctx, "GET", "/v9/projects", s.scopeQuery(scope), nil, &result)
	if err != nil {
		return nil, fmt.Errorf("list projects (%s scope): %w", scope, err)
	}
	return result.Projects, nil
}

// ProjectURL returns the live URL the deploy host serves a project on.
func (c *Client) ProjectURL(name string) string {
	return fmt.Sprintf("https://%s.%s", name, c.config.DeployDomain)
}

// Flat forwarders so callers can depend on a narrow client interface.

func (c *Client) CreateProject(ctx context.Context, name, framework string) (*Project, error) {
	return c.Projects.Create(ctx, name, framework)
}

func (c *Client) DeleteProject(ctx context.Context, idOrName string) error {
	return c.Projects.Delete(ctx, idOrName)
}

func (c *Client) ListProjects(ctx context.Context) (*Listing, error) {
	return c.Projects.List(ctx)
}

func (c *Client) ListProjectsScoped(ctx context.Context, scope Scope) ([]Project, error) {
	return c.Projects.ListScoped(ctx, scope)
}

// Package deprovision tears demos down across the deploy host, the code
// host and the record store. The three deletion domains fail independently;
// only record-store failures are fatal to a call. Ordering is fixed:
// deployments before repository before record, so a late failure leaves
// earlier, already-durable deletions intact.
package deprovision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/demoforge/demoforge/internal/demo"
	"github.com/demoforge/demoforge/internal/provider"
	"github.com/demoforge/demoforge/internal/resolver"
	"github.com/demoforge/demoforge/internal/vercel"
)

// ErrValidation marks a request rejected before any external call.
var ErrValidation = errors.New("invalid request")

type DeployHost interface {
	TeamConfigured() bool
	ListProjects(ctx context.Context) (*vercel.Listing, error)
	ListProjectsScoped(ctx context.Context, scope vercel.Scope) ([]vercel.Project, error)
	DeleteProject(ctx context.Context, idOrName string) error
}

type RepoDeleter interface {
	DeleteRepo(ctx context.Context, owner, name string) error
}

// CodeHostFactory builds a code-host client for the credential supplied
// with one request.
type CodeHostFactory func(token string) (RepoDeleter, error)

type Config struct {
	DeployDomain string
}

type Service struct {
	repos      demo.Repository
	deployHost DeployHost
	codeHost   CodeHostFactory
	config     Config
	logger     *slog.Logger
}

func NewService(
	repos demo.Repository,
	deployHost DeployHost,
	codeHost CodeHostFactory,
	config Config,
	logger *slog.Logger,
) *Service {
	if config.DeployDomain == "" {
		config.DeployDomain = "vercel.app"
	}
	return &Service{
		repos:      repos,
		deployHost: deployHost,
		codeHost:   codeHost,
		config:     config,
		logger:     logger,
	}
}

// Result mirrors the operation responses: an overall outcome plus every
// swallowed per-resource failure as a warning.
type Result struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// DeleteDeployments removes the demo's two hosting projects. Each project
// is handled independently; provider failures are reported as warnings and
// never change the call's outcome. Only the record lookup can fail the call.
func (s *Service) DeleteDeployments(ctx context.Context, demoID string) (*Result, error) {
	d, err := s.repos.GetByID(ctx, demoID)
	if err != nil {
		return nil, err
	}

	if d.FrontendURL == nil && d.BackendURL == nil {
		return &Result{Success: true, Message: "no deployments recorded for this demo"}, nil
	}

	result := &Result{Success: true}
	deleted := 0

	// The listing is fetched fresh on every attempt; a cached one would
	// produce false not-found results.
	var listing []vercel.Project
	if s.deployHost == nil {
		result.warn("deploy host not configured")
	} else if l, err := s.deployHost.ListProjects(ctx); err != nil {
		s.logger.Warn("could not list deploy-host projects", "error", err)
		result.warn("could not list deploy-host projects: %v", err)
	} else {
		listing = l.Projects
	}

	for _, u := range []*string{d.FrontendURL, d.BackendURL} {
		if u == nil {
			continue
		}
		if s.deployHost == nil {
			continue
		}
		if s.deleteProjectByURL(ctx, *u, listing, result) {
			deleted++
		}
	}

	result.Message = fmt.Sprintf("deleted %d deployment(s)", deleted)
	return result, nil
}

// deleteProjectByURL resolves one recorded URL to a live project and
// deletes it. Reports true when a deletion (or a confirmed absence) leaves
// nothing behind.
func (s *Service) deleteProjectByURL(ctx context.Context, rawURL string, listing []vercel.Project, result *Result) bool {
	name, ok := resolver.DeployProjectName(rawURL, s.config.DeployDomain)
	if !ok {
		result.warn("unrecognized deployment URL %q, skipping", rawURL)
		return false
	}

	target := name
	if match := resolver.FindProject(name, listing); match != nil {
		s.logger.Info("resolved project for deletion",
			"name", name, "matched", match.Project.Name, "strategy", match.Strategy)
		target = match.Project.ID
	} else {
		// Last resort: the provider accepts name-addressed deletion
		// without a preceding lookup.
		s.logger.Info("project not in listing, attempting direct deletion by name", "name", name)
	}

	if err := s.deployHost.DeleteProject(ctx, target); err != nil {
		if provider.IsNotFound(err) {
			// Already gone; deletion is idempotent.
			return true
		}
		s.logger.Warn("project deletion failed", "project", target, "error", err)
		result.warn("could not delete project %s: %v", name, err)
		return false
	}
	return true
}

// DeleteData removes the demo's repository (best effort) and its record
// (fatal on failure). The repository branch is skipped entirely when no
// repository URL was recorded.
func (s *Service) DeleteData(ctx context.Context, demoID, githubToken string) (*Result, error) {
	if githubToken == "" {
		return nil, fmt.Errorf("%w: githubToken is required", ErrValidation)
	}

	d, err := s.repos.GetByID(ctx, demoID)
	if err != nil {
		return nil, err
	}

	result := &Result{Success: true}
	s.deleteRepo(ctx, d, githubToken, result)

	// The record delete always runs last and is the only fatal stage.
	if err := s.repos.Delete(ctx, demoID); err != nil {
		return nil, fmt.Errorf("delete demo record: %w", err)
	}

	result.Message = "demo data deleted"
	return result, nil
}

func (s *Service) deleteRepo(ctx context.Context, d demo.Demo, githubToken string, result *Result) {
	if d.RepoURL == nil {
		return
	}

	owner, name, ok := resolver.RepoCoordinates(*d.RepoURL)
	if !ok {
		result.warn("unrecognized repository URL %q, skipping", *d.RepoURL)
		return
	}

	host, err := s.codeHost(githubToken)
	if err != nil {
		s.logger.Warn("code host unavailable", "error", err)
		result.warn("repository deletion skipped: %v", err)
		return
	}

	if err := host.DeleteRepo(ctx, owner, name); err != nil {
		if provider.IsNotFound(err) {
			return
		}
		s.logger.Warn("repository deletion failed", "repo", owner+"/"+name, "error", err)
		result.warn("could not delete repository %s/%s: %v", owner, name, err)
	}
}

// DeleteAll is the legacy combined operation: deployment deletion with
// swallowed failures, then repository deletion, then the fatal record
// delete — strictly in that order.
func (s *Service) DeleteAll(ctx context.Context, demoID, githubToken string) (*Result, error) {
	if githubToken == "" {
		return nil, fmt.Errorf("%w: githubToken is required", ErrValidation)
	}

	deployments, err := s.DeleteDeployments(ctx, demoID)
	if err != nil {
		return nil, err
	}

	data, err := s.DeleteData(ctx, demoID, githubToken)
	if err != nil {
		return nil, err
	}

	return &Result{
		Success:  true,
		Message:  "demo fully deleted",
		Warnings: append(deployments.Warnings, data.Warnings...),
	}, nil
}

// ConnectionReport describes which deploy-host scope answered and what it
// can see. Diagnostic only; nothing is mutated.
type ConnectionReport struct {
	Success      bool             `json:"success"`
	EndpointUsed string           `json:"endpointUsed"`
	ProjectCount int              `json:"projectCount"`
	Projects     []vercel.Project `json:"projects"`
}

// TestConnection tries the team scope first (when configured), then the
// personal scope, and reports the first that answers.
func (s *Service) TestConnection(ctx context.Context) (*ConnectionReport, error) {
	if s.deployHost == nil {
		return nil, fmt.Errorf("deploy host not configured")
	}

	scopes := []vercel.Scope{vercel.ScopePersonal}
	if s.deployHost.TeamConfigured() {
		scopes = []vercel.Scope{vercel.ScopeTeam, vercel.ScopePersonal}
	}

	var lastErr error
	for _, scope := range scopes {
		projects, err := s.deployHost.ListProjectsScoped(ctx, scope)
		if err != nil {
			s.logger.Warn("scope probe failed", "scope", scope, "error", err)
			lastErr = err
			continue
		}
		return &ConnectionReport{
			Success:      true,
			EndpointUsed: string(scope),
			ProjectCount: len(projects),
			Projects:     projects,
		}, nil
	}

	return nil, fmt.Errorf("deploy host unreachable on all scopes: %w", lastErr)
}

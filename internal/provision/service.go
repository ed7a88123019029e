// Package provision drives the end-to-end creation of one demo: generate
// two applications, push them to a fresh repository, deploy two hosting
// projects and record the result. Generation failures abort the run; the
// repository and deployment stages fail independently and substitute
// placeholder results so a provider outage never wastes a completed
// generation.
package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/demoforge/demoforge/internal/codegen"
	"github.com/demoforge/demoforge/internal/demo"
	"github.com/demoforge/demoforge/internal/github"
	"github.com/demoforge/demoforge/internal/gitcmd"
	"github.com/demoforge/demoforge/internal/naming"
	"github.com/demoforge/demoforge/internal/vercel"
)

// ErrValidation marks a request rejected before any external call.
var ErrValidation = errors.New("invalid request")

type Generator interface {
	GenerateApp(ctx context.Context, req codegen.GenerateRequest) ([]codegen.File, error)
}

type DeployHost interface {
	CreateProject(ctx context.Context, name, framework string) (*vercel.Project, error)
}

type Deployer interface {
	Deploy(ctx context.Context, dir, projectName string) (string, error)
}

type CodeHost interface {
	Viewer(ctx context.Context) (*github.User, error)
	CreateRepo(ctx context.Context, name string, private bool) (*github.Repo, error)
	AuthenticatedRemote(owner, repo string) string
}

// CodeHostFactory builds a code-host client for the credential supplied
// with one request.
type CodeHostFactory func(token string) (CodeHost, error)

type Config struct {
	DeployDomain string
}

// PushFunc pushes a local directory to a remote. Injectable for tests.
type PushFunc func(ctx context.Context, dir, remote string) error

type Option func(*Service)

func WithPushFunc(fn PushFunc) Option {
	return func(s *Service) { s.push = fn }
}

type Service struct {
	generator  Generator
	deployHost DeployHost
	deployer   Deployer
	codeHost   CodeHostFactory
	repos      demo.Repository
	config     Config
	logger     *slog.Logger
	push       PushFunc
}

// NewService wires the orchestrator. deployHost and deployer may be nil
// when no deploy-host credential is configured; provisioning then falls
// through to placeholder URLs instead of failing the request.
func NewService(
	generator Generator,
	deployHost DeployHost,
	deployer Deployer,
	codeHost CodeHostFactory,
	repos demo.Repository,
	config Config,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if config.DeployDomain == "" {
		config.DeployDomain = "vercel.app"
	}
	s := &Service{
		generator:  generator,
		deployHost: deployHost,
		deployer:   deployer,
		codeHost:   codeHost,
		repos:      repos,
		config:     config,
		logger:     logger,
		push:       gitcmd.InitAndPush,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type Request struct {
	OwnerID      string
	Name         string
	LogoURL      string
	WriteKey     string
	ProfileToken string
	SpaceID      string
	GithubToken  string
	TemplateRepo string
}

func (r Request) validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case r.OwnerID == "":
		return fmt.Errorf("%w: ownerId is required", ErrValidation)
	case r.WriteKey == "":
		return fmt.Errorf("%w: writeKey is required", ErrValidation)
	case r.ProfileToken == "":
		return fmt.Errorf("%w: profileToken is required", ErrValidation)
	case r.SpaceID == "":
		return fmt.Errorf("%w: spaceId is required", ErrValidation)
	case r.GithubToken == "":
		return fmt.Errorf("%w: githubToken is required", ErrValidation)
	}
	return nil
}

// Result is what the caller gets back. Warnings carry every swallowed
// non-fatal failure so callers and tests never have to scrape logs.
type Result struct {
	DemoID      string   `json:"demoId,omitempty"`
	FrontendURL string   `json:"frontendUrl"`
	BackendURL  string   `json:"backendUrl"`
	RepoURL     string   `json:"repoUrl"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Provision runs the whole creation sequence. The two generation calls and
// the local bundle writes are fatal; everything after runs to completion
// with per-stage failure containment.
func (s *Service) Provision(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	frontendFiles, err := s.generator.GenerateApp(ctx, codegen.GenerateRequest{
		CompanyName:  req.Name,
		Role:         naming.RoleFrontend,
		LogoURL:      req.LogoURL,
		WriteKey:     req.WriteKey,
		ProfileToken: req.ProfileToken,
		SpaceID:      req.SpaceID,
		TemplateRepo: req.TemplateRepo,
	})
	if err != nil {
		return nil, fmt.Errorf("generate frontend: %w", err)
	}

	backendFiles, err := s.generator.GenerateApp(ctx, codegen.GenerateRequest{
		CompanyName:  req.Name,
		Role:         naming.RoleBackend,
		WriteKey:     req.WriteKey,
		ProfileToken: req.ProfileToken,
		SpaceID:      req.SpaceID,
	})
	if err != nil {
		return nil, fmt.Errorf("generate backend: %w", err)
	}

	ws, err := newWorkspace(s.logger)
	if err != nil {
		return nil, err
	}
	defer ws.cleanup()

	frontendDir, err := ws.writeBundle("frontend", frontendFiles)
	if err != nil {
		return nil, fmt.Errorf("write frontend bundle: %w", err)
	}
	backendDir, err := ws.writeBundle("backend", backendFiles)
	if err != nil {
		return nil, fmt.Errorf("write backend bundle: %w", err)
	}

	// Names for one run share a uniqueness suffix; roles keep them apart.
	suffix := naming.NewSuffix()
	frontendName := naming.Compose(req.Name, naming.RoleFrontend, suffix)
	backendName := naming.Compose(req.Name, naming.RoleBackend, suffix)
	repoName := naming.Compose(req.Name, naming.RoleRepo, suffix)

	result := &Result{}

	repoURL, repoOK := s.provisionRepo(ctx, req.GithubToken, repoName, ws.root, result)
	result.RepoURL = repoURL

	frontendURL, frontendOK := s.provisionDeploy(ctx, frontendName, frontendDir, result)
	result.FrontendURL = frontendURL

	backendURL, backendOK := s.provisionDeploy(ctx, backendName, backendDir, result)
	result.BackendURL = backendURL

	record := demo.Demo{
		OwnerID:      req.OwnerID,
		Name:         req.Name,
		LogoURL:      req.LogoURL,
		WriteKey:     req.WriteKey,
		ProfileToken: req.ProfileToken,
		SpaceID:      req.SpaceID,
	}
	// Only real URLs are persisted; placeholders exist for the caller's
	// benefit, not the record's.
	if repoOK {
		record.RepoURL = &repoURL
	}
	if frontendOK {
		record.FrontendURL = &frontendURL
	}
	if backendOK {
		record.BackendURL = &backendURL
	}

	created, err := s.repos.Create(ctx, record)
	if err != nil {
		// The generated resources exist regardless of bookkeeping, so the
		// run is still reported successful.
		s.logger.Error("failed to persist demo record", "name", req.Name, "error", err)
		result.warn("demo record could not be saved: %v", err)
	} else {
		result.DemoID = created.ID
	}

	return result, nil
}

// provisionRepo creates the repository and pushes the whole workspace. Any
// failure is contained: the caller gets a placeholder URL and a warning.
func (s *Service) provisionRepo(ctx context.Context, token, repoName, dir string, result *Result) (string, bool) {
	host, err := s.codeHost(token)
	if err != nil {
		s.logger.Warn("code host unavailable", "error", err)
		result.warn("repository step skipped: %v", err)
		return placeholderRepoURL(repoName), false
	}

	viewer, err := host.Viewer(ctx)
	if err != nil {
		s.logger.Warn("could not resolve code host account", "error", err)
		result.warn("repository creation failed: %v", err)
		return placeholderRepoURL(repoName), false
	}

	repo, err := host.CreateRepo(ctx, repoName, true)
	if err != nil {
		s.logger.Warn("repository creation failed", "repo", repoName, "error", err)
		result.warn("repository creation failed: %v", err)
		return placeholderRepoURL(repoName), false
	}

	remote := host.AuthenticatedRemote(viewer.Login, repo.Name)
	if err := s.push(ctx, dir, remote); err != nil {
		s.logger.Warn("repository push failed", "repo", repoName, "error", err)
		result.warn("repository push failed: %v", err)
		return placeholderRepoURL(repoName), false
	}

	s.logger.Info("repository provisioned", "repo", repo.FullName, "url", repo.HTMLURL)
	return repo.HTMLURL, true
}

// provisionDeploy creates one hosting project and deploys a bundle to it.
// Every failure path yields a synthesized placeholder URL.
func (s *Service) provisionDeploy(ctx context.Context, name, dir string, result *Result) (string, bool) {
	if s.deployHost == nil || s.deployer == nil {
		result.warn("deploy host not configured, using placeholder for %s", name)
		return s.placeholderDeployURL(name), false
	}

	if _, err := s.deployHost.CreateProject(ctx, name, "other"); err != nil {
		s.logger.Warn("project creation failed", "project", name, "error", err)
		result.warn("deployment of %s failed: %v", name, err)
		return s.placeholderDeployURL(name), false
	}

	liveURL, err := s.deployer.Deploy(ctx, dir, name)
	if err != nil {
		s.logger.Warn("deployment failed", "project", name, "error", err)
		result.warn("deployment of %s failed: %v", name, err)
		return s.placeholderDeployURL(name), false
	}

	s.logger.Info("project deployed", "project", name, "url", liveURL)
	return liveURL, true
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (s *Service) placeholderDeployURL(name string) string {
	return fmt.Sprintf("https://%s-%d.%s", name, time.Now().Unix(), s.config.DeployDomain)
}

func placeholderRepoURL(repoName string) string {
	return "https://github.com/pending/" + repoName
}

package bootstrap

import (
	"log/slog"
	"time"

	"github.com/demoforge/demoforge/internal/api"
	"github.com/demoforge/demoforge/internal/codegen"
	"github.com/demoforge/demoforge/internal/demo"
	"github.com/demoforge/demoforge/internal/deprovision"
	"github.com/demoforge/demoforge/internal/github"
	"github.com/demoforge/demoforge/internal/provision"
	"github.com/demoforge/demoforge/internal/storage/pg"
	"github.com/demoforge/demoforge/internal/vercel"
)

// NewVercelClient returns nil when no token is configured. Provisioning
// then degrades to placeholder deploy URLs instead of refusing to start.
func NewVercelClient(config vercel.Config, logger *slog.Logger) (*vercel.Client, error) {
	if config.Token == "" {
		logger.Warn("no deploy-host token configured, deployments disabled")
		return nil, nil
	}

	client, err := vercel.NewClient(config, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Vercel client initialized", "teamConfigured", client.TeamConfigured())
	return client, nil
}

func NewCodegenClient(config codegen.Config, logger *slog.Logger) *codegen.Client {
	if config.APIKey == "" {
		logger.Warn("no codegen API key configured, provisioning will fail until one is set")
	}
	return codegen.NewClient(config, logger)
}

func NewDemoRepository(db *pg.DB) demo.Repository {
	return demo.NewPostgresRepository(db.Pool)
}

func newCodeHostConfig(base github.Config, token string) github.Config {
	return github.Config{
		BaseURL: base.BaseURL,
		Token:   token,
		Timeout: base.Timeout,
	}
}

func NewProvisionService(
	generator *codegen.Client,
	vercelClient *vercel.Client,
	githubConfig github.Config,
	repos demo.Repository,
	logger *slog.Logger,
) *provision.Service {
	var deployHost provision.DeployHost
	var deployer provision.Deployer
	deployDomain := ""
	if vercelClient != nil {
		deployHost = vercelClient
		deployer = vercel.NewDeployer(vercelClient.Config(), logger)
		deployDomain = vercelClient.Config().DeployDomain
	}

	codeHost := func(token string) (provision.CodeHost, error) {
		return github.NewClient(newCodeHostConfig(githubConfig, token))
	}

	return provision.NewService(
		generator,
		deployHost,
		deployer,
		codeHost,
		repos,
		provision.Config{DeployDomain: deployDomain},
		logger,
	)
}

func NewDeprovisionService(
	vercelClient *vercel.Client,
	githubConfig github.Config,
	repos demo.Repository,
	logger *slog.Logger,
) *deprovision.Service {
	var deployHost deprovision.DeployHost
	deployDomain := ""
	if vercelClient != nil {
		deployHost = vercelClient
		deployDomain = vercelClient.Config().DeployDomain
	}

	codeHost := func(token string) (deprovision.RepoDeleter, error) {
		return github.NewClient(newCodeHostConfig(githubConfig, token))
	}

	return deprovision.NewService(
		repos,
		deployHost,
		codeHost,
		deprovision.Config{DeployDomain: deployDomain},
		logger,
	)
}

func NewAPIHandlers(
	provisioner *provision.Service,
	deprovisioner *deprovision.Service,
	repos demo.Repository,
	githubConfig github.Config,
	db *pg.DB,
	logger *slog.Logger,
) *api.Handlers {
	repoLister := func(token string) (api.RepoLister, error) {
		cfg := newCodeHostConfig(githubConfig, token)
		if cfg.Timeout == 0 {
			cfg.Timeout = 30 * time.Second
		}
		return github.NewClient(cfg)
	}

	return api.NewHandlers(provisioner, deprovisioner, repos, repoLister, db, logger)
}

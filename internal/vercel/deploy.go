package vercel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// Deployer pushes a local project directory to the deploy host via the
// provider CLI. The live URL is recovered from the command output; output
// with no recognizable URL counts as a failed deployment.
type Deployer struct {
	config Config
	logger *slog.Logger
}

func NewDeployer(config Config, logger *slog.Logger) *Deployer {
	if config.DeployDomain == "" {
		config.DeployDomain = "vercel.app"
	}
	return &Deployer{config: config, logger: logger}
}

type descriptor struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
	Public  bool   `json:"public"`
}

// Deploy writes a minimal deployment descriptor into dir, invokes the
// deploy command under the configured scope and parses the live URL out of
// its output.
func (d *Deployer) Deploy(ctx context.Context, dir, projectName string) (string, error) {
	if d.config.Token == "" {
		return "", fmt.Errorf("vercel: deploy token not configured")
	}

	if err := d.writeDescriptor(dir, projectName); err != nil {
		return "", err
	}

	args := []string{"deploy", "--prod", "--yes", "--token", d.config.Token}
	if d.config.TeamID != "" {
		args = append(args, "--scope", d.config.TeamID)
	}

	cmd := exec.CommandContext(ctx, "vercel", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "CI=1")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("vercel deploy failed: %w\noutput: %s", err, d.redact(string(output)))
	}

	liveURL := d.extractURL(string(output))
	if liveURL == "" {
		return "", fmt.Errorf("vercel deploy output contained no deployment URL: %s", d.redact(string(output)))
	}

	d.logger.Info("deploy completed", "project", projectName, "url", liveURL)
	return liveURL, nil
}

func (d *Deployer) writeDescriptor(dir, projectName string) error {
	data, err := json.MarshalIndent(descriptor{
		Name:    projectName,
		Version: 2,
		Public:  true,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal deployment descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "vercel.json"), data, 0o644); err != nil {
		return fmt.Errorf("write deployment descriptor: %w", err)
	}
	return nil
}

func (d *Deployer) extractURL(output string) string {
	re := regexp.MustCompile(`https://[a-z0-9][a-z0-9.-]*\.` + regexp.QuoteMeta(d.config.DeployDomain))
	return re.FindString(output)
}

func (d *Deployer) redact(s string) string {
	if d.config.Token == "" {
		return s
	}
	return strings.ReplaceAll(s, d.config.Token, "***")
}

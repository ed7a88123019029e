// Package gitcmd shells out to the git CLI for the push of a freshly
// generated project bundle. Tokens embedded in remote URLs are redacted
// before command output ends up in errors or logs.
package gitcmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// InitAndPush initializes dir as a repository, commits everything in it and
// pushes the main branch to remoteURL.
func InitAndPush(ctx context.Context, dir, remoteURL string) error {
	steps := []struct {
		name string
		args []string
	}{
		{"init", []string{"init"}},
		{"add", []string{"add", "-A"}},
		{"commit", []string{"-c", "user.name=demoforge", "-c", "user.email=bot@demoforge.dev", "commit", "-m", "Initial demo scaffold"}},
		{"branch", []string{"branch", "-M", "main"}},
		{"push", []string{"push", remoteURL, "main"}},
	}

	for _, step := range steps {
		cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, step.args...)...)
		cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("git %s failed: %w\noutput: %s", step.name, err, RedactToken(string(output)))
		}
	}

	return nil
}

// RedactToken masks tokens in x-access-token remote URLs (e.g.
// x-access-token:ghp_xxx@).
func RedactToken(s string) string {
	if idx := strings.Index(s, "x-access-token:"); idx >= 0 {
		end := strings.Index(s[idx:], "@")
		if end > 0 {
			s = s[:idx] + "x-access-token:***@" + s[idx+end+1:]
		}
	}
	return s
}

// Package resolver recovers provider-side resource identifiers from the
// URLs recorded on a demo, for deletion. URL parsing is pure pattern
// extraction; project lookup against a live listing runs an ordered cascade
// of matching strategies, first hit wins.
package resolver

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/demoforge/demoforge/internal/vercel"
)

// DeployProjectName extracts the project name from a deploy-host URL of the
// shape https://{name}.{deployDomain}. A URL of any other shape returns
// ok=false, not an error.
func DeployProjectName(rawURL, deployDomain string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}

	suffix := "." + deployDomain
	if !strings.HasSuffix(u.Host, suffix) {
		return "", false
	}

	name := strings.TrimSuffix(u.Host, suffix)
	if name == "" || strings.Contains(name, ".") {
		return "", false
	}
	return name, true
}

// RepoCoordinates extracts (owner, name) from a code-host repository URL of
// the shape https://{host}/{owner}/{repo}.
func RepoCoordinates(rawURL string) (owner, name string, ok bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", "", false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}

type Strategy string

const (
	StrategyExact         Strategy = "exact"
	StrategySubstring     Strategy = "substring"
	StrategySlugHeuristic Strategy = "slug_heuristic"
)

// Match is a resolved project plus the strategy that found it.
type Match struct {
	Project  vercel.Project
	Strategy Strategy
}

// generatedName matches names produced by the naming package:
// demo-{slug}-{role}-{timestamp}-{random}.
var generatedName = regexp.MustCompile(`^demo-(.+)-(frontend|backend|repo)-\d+-[a-z0-9]+$`)

type matcher struct {
	strategy Strategy
	match    func(target string, p vercel.Project) bool
}

var matchers = []matcher{
	{
		strategy: StrategyExact,
		match: func(target string, p vercel.Project) bool {
			return p.Name == target
		},
	},
	{
		strategy: StrategySubstring,
		match: func(target string, p vercel.Project) bool {
			return strings.Contains(p.Name, target) || strings.Contains(target, p.Name)
		},
	},
	{
		strategy: StrategySlugHeuristic,
		match: func(target string, p vercel.Project) bool {
			slug := displaySlug(target)
			return slug != "" && strings.Contains(p.Name, slug)
		},
	},
}

// FindProject runs the match cascade over the listing. Every strategy is
// exhausted against all entries before the next, looser one is tried, so an
// exact match always beats a partial one.
func FindProject(target string, listing []vercel.Project) *Match {
	for _, m := range matchers {
		for _, p := range listing {
			if m.match(target, p) {
				return &Match{Project: p, Strategy: m.strategy}
			}
		}
	}
	return nil
}

// displaySlug strips the positional segments of a generated name to recover
// the original display-name slug.
func displaySlug(name string) string {
	groups := generatedName.FindStringSubmatch(name)
	if groups == nil {
		return ""
	}
	return groups[1]
}

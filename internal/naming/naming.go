// Package naming derives provider-facing resource names from a demo's
// display name. Names embed a per-run uniqueness suffix so that two runs
// for the same display name never collide on the providers.
package naming

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

const (
	RoleFrontend = "frontend"
	RoleBackend  = "backend"
	RoleRepo     = "repo"
)

const tokenLen = 6

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

var nonAlphanumDash = regexp.MustCompile(`[^a-z0-9-]`)

var dashRuns = regexp.MustCompile(`-{2,}`)

// Slugify lowercases s and reduces it to a hyphen-delimited token set.
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, " ", "-")
	s = nonAlphanumDash.ReplaceAllString(s, "")
	s = dashRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NewSuffix returns a fresh uniqueness suffix: milliseconds since epoch
// plus a short base-36 token. Collision probability is treated as
// negligible; there is no verification against the live provider listing.
func NewSuffix() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), randomToken(tokenLen))
}

// Compose builds a resource name from a display name, a role token and a
// suffix from NewSuffix. The two names of one provisioning run share the
// suffix but carry different roles.
func Compose(label, role, suffix string) string {
	return fmt.Sprintf("demo-%s-%s-%s", Slugify(label), role, suffix)
}

// Generate is Compose with a suffix minted on the spot.
func Generate(label, role string) string {
	return Compose(label, role, NewSuffix())
}

func randomToken(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}

// Package demo holds the persisted demo record and its store.
package demo

import "time"

// Demo is the persisted unit of work. The three credential-like strings are
// pass-through blobs; they are never parsed or validated here. The result
// URLs stay nil until the corresponding provisioning step succeeds.
type Demo struct {
	ID           string
	OwnerID      string
	Name         string
	LogoURL      string
	WriteKey     string
	ProfileToken string
	SpaceID      string
	FrontendURL  *string
	BackendURL   *string
	RepoURL      *string
	CreatedAt    time.Time
}

// Degraded reports whether no provisioning step produced a result. A
// degraded demo is not an error state; it stays independently deletable.
func (d Demo) Degraded() bool {
	return d.FrontendURL == nil && d.BackendURL == nil && d.RepoURL == nil
}

package demo

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a demo id is absent from the store.
var ErrNotFound = errors.New("demo not found")

// Repository is the record store for demo metadata. Records are created
// once, never updated in place, and deleted only by deprovisioning.
type Repository interface {
	Create(ctx context.Context, d Demo) (Demo, error)
	GetByID(ctx context.Context, id string) (Demo, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Demo, error)
	Delete(ctx context.Context, id string) error
}

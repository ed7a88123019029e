package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lithammer/shortuuid/v4"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const demoColumns = `id, owner_id, name, logo_url, write_key, profile_token, space_id,
	frontend_url, backend_url, repo_url, created_at`

func (r *PostgresRepository) Create(ctx context.Context, d Demo) (Demo, error) {
	if d.ID == "" {
		d.ID = shortuuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO demos (`+demoColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.OwnerID, d.Name, d.LogoURL, d.WriteKey, d.ProfileToken, d.SpaceID,
		d.FrontendURL, d.BackendURL, d.RepoURL, d.CreatedAt,
	)
	if err != nil {
		return Demo{}, fmt.Errorf("insert demo: %w", err)
	}
	return d, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Demo, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+demoColumns+` FROM demos WHERE id = $1`, id)

	d, err := scanDemo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Demo{}, ErrNotFound
		}
		return Demo{}, fmt.Errorf("get demo %s: %w", id, err)
	}
	return d, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]Demo, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+demoColumns+` FROM demos
		WHERE owner_id = $1
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list demos for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	demos := []Demo{}
	for rows.Next() {
		d, err := scanDemo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan demo: %w", err)
		}
		demos = append(demos, d)
	}
	return demos, rows.Err()
}

// Delete removes a record by id. Deleting an already-absent record is not
// an error; the lookup stage of each deprovisioning operation is what
// reports unknown ids.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM demos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete demo %s: %w", id, err)
	}
	return nil
}

func scanDemo(row pgx.Row) (Demo, error) {
	var d Demo
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.Name, &d.LogoURL, &d.WriteKey, &d.ProfileToken, &d.SpaceID,
		&d.FrontendURL, &d.BackendURL, &d.RepoURL, &d.CreatedAt,
	)
	return d, err
}

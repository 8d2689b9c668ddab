package dish

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dishola/dishola/internal/db"
	"github.com/dishola/dishola/internal/domain/recommendation"
)

// querier is the subset of *pgxpool.Pool the repository needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
}

const postgresFindByName = `
	SELECT
		d.id::text,
		d.name,
		COALESCE(d.description, ''),
		COALESCE(d.vote_avg, 0),
		r.name,
		COALESCE(r.address, ''),
		COALESCE(r.website, ''),
		r.lat,
		r.lng
	FROM dishes d
	JOIN restaurants r ON r.id = d.restaurant_id
	WHERE d.name ILIKE '%' || $1::text || '%' ESCAPE '\'
	LIMIT $2
`

// PostgresRepository reads dish candidates from Postgres.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository creates a repository over a pgx pool.
func NewPostgresRepository(pool querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// FindByName returns up to limit dishes whose name contains name, case-insensitively.
func (r *PostgresRepository) FindByName(ctx context.Context, name string, limit int) ([]recommendation.Candidate, error) {
	rows, err := r.pool.Query(ctx, postgresFindByName, escapeLike(name), limit)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	var out []recommendation.Candidate
	for rows.Next() {
		var c recommendation.Candidate
		if err := rows.Scan(
			&c.DishID,
			&c.Name,
			&c.Description,
			&c.VoteAvg,
			&c.Restaurant.Name,
			&c.Restaurant.Address,
			&c.Restaurant.Website,
			&c.Restaurant.Lat,
			&c.Restaurant.Lng,
		); err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("scan: %w", err)}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	return out, nil
}

// Ping checks connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

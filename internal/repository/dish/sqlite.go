package dish

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dishola/dishola/internal/db"
	"github.com/dishola/dishola/internal/domain/recommendation"
)

// SQLite LIKE is case-insensitive for ASCII.
const sqliteFindByName = `
	SELECT
		CAST(d.id AS TEXT),
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
	WHERE d.name LIKE '%' || ? || '%' ESCAPE '\'
	LIMIT ?
`

// SQLiteRepository reads dish candidates from SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over a database/sql handle.
func NewSQLiteRepository(conn *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: conn}
}

// FindByName returns up to limit dishes whose name contains name, case-insensitively.
func (r *SQLiteRepository) FindByName(ctx context.Context, name string, limit int) ([]recommendation.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, sqliteFindByName, escapeLike(name), limit)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	var out []recommendation.Candidate
	for rows.Next() {
		var (
			c        recommendation.Candidate
			lat, lng sql.NullFloat64
		)
		if err := rows.Scan(
			&c.DishID,
			&c.Name,
			&c.Description,
			&c.VoteAvg,
			&c.Restaurant.Name,
			&c.Restaurant.Address,
			&c.Restaurant.Website,
			&lat,
			&lng,
		); err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("scan: %w", err)}
		}
		if lat.Valid {
			c.Restaurant.Lat = &lat.Float64
		}
		if lng.Valid {
			c.Restaurant.Lng = &lng.Float64
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	return out, nil
}

// Ping checks connectivity.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

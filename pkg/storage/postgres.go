package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS urls (
	id          BIGSERIAL PRIMARY KEY,
	short_code  TEXT NOT NULL UNIQUE,
	target_url  TEXT NOT NULL,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS clicks (
	id         BIGSERIAL PRIMARY KEY,
	url_id     BIGINT NOT NULL REFERENCES urls(id) ON DELETE CASCADE,
	clicked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	user_agent TEXT,
	referrer   TEXT
);

CREATE INDEX IF NOT EXISTS idx_clicks_url_id ON clicks (url_id);
CREATE INDEX IF NOT EXISTS idx_clicks_clicked_at ON clicks (clicked_at);
`

// PostgresStore implements Store over a pgx connection pool. Day-bucket
// aggregation happens server-side with a GROUP BY over the full event set.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore bootstraps the schema and returns the store. The pool is
// owned by the caller until the store is constructed; Close releases it.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*Mapping, error) {
	query := `SELECT id, short_code, target_url, description, created_at FROM urls WHERE short_code = $1`
	row := s.pool.QueryRow(ctx, query, code)
	var m Mapping
	err := row.Scan(&m.ID, &m.ShortCode, &m.TargetURL, &m.Description, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Mapping, error) {
	query := `SELECT id, short_code, target_url, description, created_at FROM urls WHERE id = $1`
	row := s.pool.QueryRow(ctx, query, id)
	var m Mapping
	err := row.Scan(&m.ID, &m.ShortCode, &m.TargetURL, &m.Description, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]MappingWithClicks, error) {
	query := `
		SELECT u.id, u.short_code, u.target_url, u.description, u.created_at, COUNT(c.id)
		FROM urls u
		LEFT JOIN clicks c ON c.url_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at DESC, u.id DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make([]MappingWithClicks, 0)
	for rows.Next() {
		var m MappingWithClicks
		if err := rows.Scan(&m.ID, &m.ShortCode, &m.TargetURL, &m.Description, &m.CreatedAt, &m.ClickCount); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, code, targetURL string, description *string) (*Mapping, error) {
	query := `INSERT INTO urls (short_code, target_url, description) VALUES ($1, $2, $3) RETURNING id, created_at`
	m := &Mapping{ShortCode: code, TargetURL: targetURL, Description: description}
	err := s.pool.QueryRow(ctx, query, code, targetURL, description).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return m, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, targetURL string, description *string) (*Mapping, error) {
	query := `
		UPDATE urls SET target_url = $2, description = $3
		WHERE id = $1
		RETURNING id, short_code, target_url, description, created_at`
	row := s.pool.QueryRow(ctx, query, id, targetURL, description)
	var m Mapping
	err := row.Scan(&m.ID, &m.ShortCode, &m.TargetURL, &m.Description, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM urls WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) RecordClick(ctx context.Context, mappingID int64, userAgent, referrer *string) error {
	query := `INSERT INTO clicks (url_id, user_agent, referrer) VALUES ($1, $2, $3)`
	_, err := s.pool.Exec(ctx, query, mappingID, userAgent, referrer)
	return err
}

func (s *PostgresStore) Stats(ctx context.Context, mappingID int64) (*Stats, error) {
	stats := &Stats{ByDay: make([]DayCount, 0)}

	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clicks WHERE url_id = $1`, mappingID).Scan(&stats.Total)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT to_char(clicked_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM clicks
		WHERE url_id = $1
		GROUP BY day
		ORDER BY day DESC
		LIMIT 30`
	rows, err := s.pool.Query(ctx, query, mappingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, err
		}
		stats.ByDay = append(stats.ByDay, d)
	}
	return stats, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS urls (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	short_code  TEXT NOT NULL UNIQUE,
	target_url  TEXT NOT NULL,
	description TEXT,
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS clicks (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	url_id     INTEGER NOT NULL REFERENCES urls(id) ON DELETE CASCADE,
	clicked_at TIMESTAMP NOT NULL,
	user_agent TEXT,
	referrer   TEXT
);

CREATE INDEX IF NOT EXISTS idx_clicks_url_id ON clicks (url_id);
CREATE INDEX IF NOT EXISTS idx_clicks_clicked_at ON clicks (clicked_at);
`

// statsScanLimit bounds how many raw click events the embedded backend
// reads when building the per-day histogram. This is an approximation: for
// mappings with more than statsScanLimit events the oldest day buckets may
// undercount or be missing. The total count is computed separately and is
// always exact.
const statsScanLimit = 1000

// SQLiteStore implements Store over a single-file embedded database using
// the pure-Go sqlite driver. Unlike PostgresStore, day-bucket aggregation
// happens locally over the most recent statsScanLimit events.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database file at path,
// enables foreign-key enforcement so mapping deletes cascade to clicks,
// and bootstraps the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetByCode(ctx context.Context, code string) (*Mapping, error) {
	query := `SELECT id, short_code, target_url, description, created_at FROM urls WHERE short_code = ?`
	row := s.db.QueryRowContext(ctx, query, code)
	var m Mapping
	err := row.Scan(&m.ID, &m.ShortCode, &m.TargetURL, &m.Description, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*Mapping, error) {
	query := `SELECT id, short_code, target_url, description, created_at FROM urls WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)
	var m Mapping
	err := row.Scan(&m.ID, &m.ShortCode, &m.TargetURL, &m.Description, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]MappingWithClicks, error) {
	query := `
		SELECT u.id, u.short_code, u.target_url, u.description, u.created_at, COUNT(c.id)
		FROM urls u
		LEFT JOIN clicks c ON c.url_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at DESC, u.id DESC`
	rows, err := s.db.QueryContext(ctx, query)
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

func (s *SQLiteStore) Create(ctx context.Context, code, targetURL string, description *string) (*Mapping, error) {
	m := &Mapping{
		ShortCode:   code,
		TargetURL:   targetURL,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	query := `INSERT INTO urls (short_code, target_url, description, created_at) VALUES (?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, code, targetURL, description, m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id int64, targetURL string, description *string) (*Mapping, error) {
	query := `UPDATE urls SET target_url = ?, description = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, targetURL, description, id)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT id, short_code, target_url, description, created_at FROM urls WHERE id = ?`, id)
	var m Mapping
	if err := row.Scan(&m.ID, &m.ShortCode, &m.TargetURL, &m.Description, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM urls WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLiteStore) RecordClick(ctx context.Context, mappingID int64, userAgent, referrer *string) error {
	query := `INSERT INTO clicks (url_id, clicked_at, user_agent, referrer) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, mappingID, time.Now().UTC(), userAgent, referrer)
	return err
}

func (s *SQLiteStore) Stats(ctx context.Context, mappingID int64) (*Stats, error) {
	stats := &Stats{ByDay: make([]DayCount, 0)}

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks WHERE url_id = ?`, mappingID).Scan(&stats.Total)
	if err != nil {
		return nil, err
	}

	query := `SELECT clicked_at FROM clicks WHERE url_id = ? ORDER BY clicked_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, mappingID, statsScanLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	// Events arrive newest first, so buckets are discovered in
	// most-recent-day-first order and can be appended directly.
	counts := make(map[string]int64)
	order := make([]string, 0)
	for rows.Next() {
		var clickedAt time.Time
		if err := rows.Scan(&clickedAt); err != nil {
			return nil, err
		}
		day := clickedAt.UTC().Format("2006-01-02")
		if _, seen := counts[day]; !seen {
			order = append(order, day)
		}
		counts[day]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, day := range order {
		if len(stats.ByDay) == 30 {
			break
		}
		stats.ByDay = append(stats.ByDay, DayCount{Date: day, Count: counts[day]})
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || code == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
}

package places

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const placeSchema = `CREATE TABLE IF NOT EXISTS place (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    country TEXT NOT NULL DEFAULT '',
    latitude REAL NOT NULL DEFAULT 0,
    longitude REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

const placeColumns = "id, name, description, address, city, country, latitude, longitude, created_at, updated_at"

// SQLiteStore keeps places in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens the database at dsn and creates the place table.
func OpenSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore wraps an open database and creates the place table.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, placeSchema); err != nil {
		return nil, fmt.Errorf("init place table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context, offset, limit int) ([]Place, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+placeColumns+" FROM place ORDER BY rowid LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM place").Scan(&n)
	return n, err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Place, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+placeColumns+" FROM place WHERE id = ? LIMIT 1", id)
	p, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Place{}, ErrNotFound
	}
	return p, err
}

func (s *SQLiteStore) Create(ctx context.Context, p Place) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO place ("+placeColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, p.Description, p.Address, p.City, p.Country, p.Latitude, p.Longitude,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func (s *SQLiteStore) Update(ctx context.Context, p Place) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE place SET name = ?, description = ?, address = ?, city = ?, country = ?,
            latitude = ?, longitude = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.Address, p.City, p.Country, p.Latitude, p.Longitude,
		formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM place WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlace(row rowScanner) (Place, error) {
	var p Place
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Address, &p.City, &p.Country,
		&p.Latitude, &p.Longitude, &created, &updated); err != nil {
		return Place{}, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

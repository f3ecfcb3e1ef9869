// Package sqlite persists users and bookmarks through database/sql.
// The driver is chosen from the database URL: local files use the pure-Go
// modernc driver, libsql:// and wss:// URLs use the Turso client.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/smartmark/smartmark/internal/domain"
)

// ErrNotFound is returned when a lookup or owner-scoped delete matches no row.
var ErrNotFound = fmt.Errorf("bookmark not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(dbURL string) (*Repository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Repository{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS bookmarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_user_created ON bookmarks(user_id, created_at DESC);
	`
	_, err := db.Exec(query)
	return err
}

// UpsertUser creates the user row on first login and refreshes the email
// on subsequent ones (the provider subject is the stable key).
func (r *Repository) UpsertUser(ctx context.Context, user domain.User) error {
	query := `INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET email = excluded.email`

	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Email, time.Now().UTC()); err != nil {
		return &domain.StoreError{Op: "upsert user", Err: err}
	}
	return nil
}

// UserByEmail looks up a user row. Returns ErrNotFound if absent.
func (r *Repository) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	query := `SELECT id, email, created_at FROM users WHERE email = ?`

	var user domain.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, &domain.StoreError{Op: "get user", Err: err}
	}
	return user, nil
}

// FetchByOwner returns all bookmarks owned by ownerID, newest first.
// The id tiebreak keeps same-timestamp inserts deterministically ordered.
func (r *Repository) FetchByOwner(ctx context.Context, ownerID string) ([]domain.Bookmark, error) {
	query := `SELECT id, user_id, title, url, created_at FROM bookmarks
			  WHERE user_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, &domain.StoreError{Op: "fetch bookmarks", Err: err}
	}
	defer rows.Close()

	bookmarks := make([]domain.Bookmark, 0)
	for rows.Next() {
		var b domain.Bookmark
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &b.CreatedAt); err != nil {
			return nil, &domain.StoreError{Op: "scan bookmark", Err: err}
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "fetch bookmarks", Err: err}
	}
	return bookmarks, nil
}

// Insert stores a new bookmark and returns the row with the assigned
// id and created_at.
func (r *Repository) Insert(ctx context.Context, ownerID, title, url string) (domain.Bookmark, error) {
	createdAt := time.Now().UTC()
	query := `INSERT INTO bookmarks (user_id, title, url, created_at) VALUES (?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query, ownerID, title, url, createdAt)
	if err != nil {
		return domain.Bookmark{}, &domain.StoreError{Op: "insert bookmark", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Bookmark{}, &domain.StoreError{Op: "insert bookmark", Err: err}
	}

	return domain.Bookmark{
		ID:        id,
		UserID:    ownerID,
		Title:     title,
		URL:       url,
		CreatedAt: createdAt,
	}, nil
}

// DeleteByID removes a bookmark. The delete is owner-scoped: a user can
// only remove their own rows, and a miss reports ErrNotFound.
func (r *Repository) DeleteByID(ctx context.Context, ownerID string, id int64) error {
	query := `DELETE FROM bookmarks WHERE id = ? AND user_id = ?`

	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return &domain.StoreError{Op: "delete bookmark", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StoreError{Op: "delete bookmark", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsByURL reports whether the owner already has a bookmark with this
// exact URL. Used by the seed importer to stay idempotent.
func (r *Repository) ExistsByURL(ctx context.Context, ownerID, url string) (bool, error) {
	query := `SELECT COUNT(1) FROM bookmarks WHERE user_id = ? AND url = ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, ownerID, url).Scan(&count); err != nil {
		return false, &domain.StoreError{Op: "count bookmarks", Err: err}
	}
	return count > 0, nil
}

// CountByOwner returns the number of bookmarks owned by ownerID.
func (r *Repository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	query := `SELECT COUNT(1) FROM bookmarks WHERE user_id = ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, &domain.StoreError{Op: "count bookmarks", Err: err}
	}
	return count, nil
}

// Ping probes the underlying database. Used by the readiness endpoint.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

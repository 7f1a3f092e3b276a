package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"cinelist/models"
)

// WatchlistRepository provides row-level access to the two watchlist tables.
// Every operation is scoped by user id; cross-user isolation is enforced
// here by construction, not by the callers.
type WatchlistRepository struct {
	db *sql.DB
}

// NewWatchlistRepository creates a repository over an open connection.
func NewWatchlistRepository(db *sql.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// tableFor maps a list to its table name. Lists are a closed set; anything
// else is a programming error and is rejected before touching SQL.
func tableFor(list models.List) (string, error) {
	switch list {
	case models.ListPlanToWatch:
		return "plan_to_watch", nil
	case models.ListWatched:
		return "watched", nil
	default:
		return "", fmt.Errorf("unknown watchlist %q", list)
	}
}

// FindEntry returns the entry for (userID, movieID) in the given list, or
// nil when no such row exists.
func (r *WatchlistRepository) FindEntry(ctx context.Context, list models.List, userID string, movieID int64) (*models.WatchlistEntry, error) {
	table, err := tableFor(list)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, user_id, movie_id, title, release_date, runtime, poster_path, created_at
		FROM %s WHERE user_id = ? AND movie_id = ?`, table)

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, userID, movieID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s entry: %w", table, err)
	}
	return entry, nil
}

// Insert adds an entry to the given list. A duplicate (userID, movieID)
// pair fails the unique index; callers can detect that with IsUniqueViolation.
func (r *WatchlistRepository) Insert(ctx context.Context, list models.List, entry *models.WatchlistEntry) error {
	table, err := tableFor(list)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, movie_id, title, release_date, runtime, poster_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, table)

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.MovieID, entry.Title,
		nullString(entry.ReleaseDate), nullInt(entry.Runtime), nullString(entry.PosterPath),
		entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert %s entry: %w", table, err)
	}
	return nil
}

// Delete removes the (userID, movieID) entry from the given list. Deleting
// a row that does not exist is not an error.
func (r *WatchlistRepository) Delete(ctx context.Context, list models.List, userID string, movieID int64) error {
	table, err := tableFor(list)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND movie_id = ?`, table)
	if _, err := r.db.ExecContext(ctx, query, userID, movieID); err != nil {
		return fmt.Errorf("delete %s entry: %w", table, err)
	}
	return nil
}

// ListByUser returns all of a user's entries in the given list, newest first.
func (r *WatchlistRepository) ListByUser(ctx context.Context, list models.List, userID string) ([]models.WatchlistEntry, error) {
	table, err := tableFor(list)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, user_id, movie_id, title, release_date, runtime, poster_path, created_at
		FROM %s WHERE user_id = ? ORDER BY created_at DESC`, table)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s entries: %w", table, err)
	}
	defer rows.Close()

	entries := []models.WatchlistEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", table, err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s entries: %w", table, err)
	}
	return entries, nil
}

// MoveToWatched inserts a watched entry and removes any plan-to-watch entry
// for the same (user, movie) in one transaction, so the two lists can never
// both contain the movie, even if the process dies between the statements.
func (r *WatchlistRepository) MoveToWatched(ctx context.Context, entry *models.WatchlistEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin move to watched: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO watched (id, user_id, movie_id, title, release_date, runtime, poster_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.MovieID, entry.Title,
		nullString(entry.ReleaseDate), nullInt(entry.Runtime), nullString(entry.PosterPath),
		entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert watched entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM plan_to_watch WHERE user_id = ? AND movie_id = ?`,
		entry.UserID, entry.MovieID)
	if err != nil {
		return fmt.Errorf("clear plan to watch entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit move to watched: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a sqlite unique-constraint
// failure, i.e. a concurrent request won the insert race.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.WatchlistEntry, error) {
	var (
		entry       models.WatchlistEntry
		releaseDate sql.NullString
		runtime     sql.NullInt64
		posterPath  sql.NullString
	)

	err := row.Scan(&entry.ID, &entry.UserID, &entry.MovieID, &entry.Title,
		&releaseDate, &runtime, &posterPath, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	entry.ReleaseDate = releaseDate.String
	entry.Runtime = int(runtime.Int64)
	entry.PosterPath = posterPath.String
	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

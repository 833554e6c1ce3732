// ABOUTME: SQLite implementation of the Catalog interface using modernc.org/sqlite
// ABOUTME: Serializes every operation against the single connection with a mutex

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Catalog on a single SQLite database file.
//
// The store owns the only handle to the database. A mutex guards the
// connection so at most one operation is in flight at a time; each
// method holds the lock for its full duration, including check-then-act
// sequences like the CreateSong duplicate check. Callers are expected to
// invoke these methods from worker goroutines (see internal/offload),
// never from the dispatcher's own path, since every call blocks.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and creates the
// schema if it doesn't exist. Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the catalog tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS songs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT,
			album TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_songs_title_nocase
			ON songs(title COLLATE NOCASE);

		CREATE INDEX IF NOT EXISTS idx_songs_album
			ON songs(album);

		CREATE TABLE IF NOT EXISTS albums (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_albums_name_nocase
			ON albums(name COLLATE NOCASE);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// CreateAlbum inserts a new album row and returns its id. No duplicate
// check is performed: creating the same name twice yields two rows.
func (s *SQLiteStore) CreateAlbum(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO albums (name) VALUES (?)`, name)
	if err != nil {
		return 0, storageErr("create album", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("create album", err)
	}

	s.logger.Debug("created album", "id", id, "name", name)
	return id, nil
}

// DeleteAlbum removes every album whose name matches case-insensitively.
// It reports whether at least one row was removed; absence is not an error.
func (s *SQLiteStore) DeleteAlbum(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM albums WHERE UPPER(name) = UPPER(?)`, name)
	if err != nil {
		return false, storageErr("delete album", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete album", err)
	}

	if affected > 0 {
		s.logger.Debug("deleted album", "name", name, "rows", affected)
	}
	return affected > 0, nil
}

// ListAlbums returns all albums in storage order. Callers must not
// depend on the ordering.
func (s *SQLiteStore) ListAlbums(ctx context.Context) ([]Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM albums`)
	if err != nil {
		return nil, storageErr("list albums", err)
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		var a Album
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, storageErr("list albums", err)
		}
		albums = append(albums, a)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("list albums", err)
	}
	return albums, nil
}

// SearchAlbumNames returns album names starting with prefix. The match is
// case-sensitive, unlike DeleteAlbum. Zero matches yields an empty slice.
func (s *SQLiteStore) SearchAlbumNames(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// substr instead of LIKE: SQLite's LIKE is case-insensitive for
	// ASCII and would need wildcard escaping.
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM albums WHERE substr(name, 1, length(?1)) = ?1`, prefix)
	if err != nil {
		return nil, storageErr("search album names", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, storageErr("search album names", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("search album names", err)
	}
	return names, nil
}

// CreateSong inserts a song and returns its id. If a song with the same
// title already exists under case-insensitive comparison, it returns
// ErrDuplicateSong without inserting. The check and the insert run under
// the same lock hold, so two concurrent creations of the same title
// cannot both pass the check.
func (s *SQLiteStore) CreateSong(ctx context.Context, title, album string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM songs WHERE UPPER(title) = UPPER(?)`, title).Scan(&count)
	if err != nil {
		return 0, storageErr("create song", err)
	}

	if count > 0 {
		return 0, ErrDuplicateSong
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO songs (title, album) VALUES (?, ?)`, title, album)
	if err != nil {
		return 0, storageErr("create song", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("create song", err)
	}

	s.logger.Debug("created song", "id", id, "title", title, "album", album)
	return id, nil
}

// DeleteSong removes the song with the given id and reports whether a
// row was removed.
func (s *SQLiteStore) DeleteSong(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("delete song", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete song", err)
	}

	if affected > 0 {
		s.logger.Debug("deleted song", "id", id)
	}
	return affected > 0, nil
}

// ListSongs returns all songs, or only songs whose album field exactly
// equals albumFilter when it is non-empty. The filter is case-sensitive.
func (s *SQLiteStore) ListSongs(ctx context.Context, albumFilter string) ([]Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		rows *sql.Rows
		err  error
	)
	if albumFilter == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT id, title, album FROM songs`)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, title, album FROM songs WHERE album = ?`, albumFilter)
	}
	if err != nil {
		return nil, storageErr("list songs", err)
	}
	defer rows.Close()

	songs, err := scanSongs(rows)
	if err != nil {
		return nil, storageErr("list songs", err)
	}
	return songs, nil
}

// SampleSongs returns up to count songs chosen uniformly at random
// without replacement, optionally restricted to an exact album match.
// count is clamped to [1, MaxSampleSize] to bound query cost. The order
// of the returned slice carries no meaning.
func (s *SQLiteStore) SampleSongs(ctx context.Context, albumFilter string, count int) ([]Song, error) {
	if count < 1 {
		count = 1
	}
	if count > MaxSampleSize {
		count = MaxSampleSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		rows *sql.Rows
		err  error
	)
	if albumFilter == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, title, album FROM songs ORDER BY RANDOM() LIMIT ?`, count)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, title, album FROM songs WHERE album = ? ORDER BY RANDOM() LIMIT ?`,
			albumFilter, count)
	}
	if err != nil {
		return nil, storageErr("sample songs", err)
	}
	defer rows.Close()

	songs, err := scanSongs(rows)
	if err != nil {
		return nil, storageErr("sample songs", err)
	}
	return songs, nil
}

// scanSongs collects Song rows from a query over (id, title, album).
func scanSongs(rows *sql.Rows) ([]Song, error) {
	var songs []Song
	for rows.Next() {
		var song Song
		var title, album sql.NullString
		if err := rows.Scan(&song.ID, &title, &album); err != nil {
			return nil, fmt.Errorf("scanning song row: %w", err)
		}
		song.Title = title.String
		song.Album = album.String
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

// Ensure SQLiteStore implements the Catalog interface
var _ Catalog = (*SQLiteStore)(nil)

package preview

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"
)

// Key identifies a cached preview. A file that changes gets a new key.
type Key struct {
	Path    string
	ModTime time.Time
	Size    int64
	Edge    int
	Plugin  string
}

func (k Key) hash() int64 {
	d := xxhash.New()
	_, _ = d.WriteString(k.Path)
	_, _ = d.WriteString("\x00" + strconv.FormatInt(k.ModTime.UnixNano(), 10))
	_, _ = d.WriteString("\x00" + strconv.FormatInt(k.Size, 10))
	_, _ = d.WriteString("\x00" + strconv.Itoa(k.Edge))
	_, _ = d.WriteString("\x00" + k.Plugin)
	return int64(d.Sum64())
}

// Cache stores previews in a sqlite database. It is safe for concurrent use.
type Cache struct {
	db *sql.DB
}

// CacheDir is where the preview cache lives: $DIRVIEW_CACHE_DIR, or dirview
// below the user cache directory.
func CacheDir() (string, error) {
	if d := os.Getenv("DIRVIEW_CACHE_DIR"); d != "" {
		return d, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "dirview"), nil
}

// OpenCache opens or creates the cache database at path.
func OpenCache(ctx context.Context, path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Workers write concurrently; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate preview cache: %w", err)
	}
	return &Cache{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS previews (
			key INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			mtime_unixns INTEGER NOT NULL,
			size INTEGER NOT NULL,
			edge INTEGER NOT NULL,
			plugin TEXT NOT NULL,
			kind INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			data BLOB,
			lines_json TEXT,
			created_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_previews_path ON previews(path);`,
		`CREATE INDEX IF NOT EXISTS idx_previews_created ON previews(created_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Get returns the preview stored for k. A hash collision with another file
// reads as a miss.
func (c *Cache) Get(ctx context.Context, k Key) (Preview, bool, error) {
	var (
		p         Preview
		path      string
		mtime     int64
		size      int64
		edge      int
		plugin    string
		linesJSON sql.NullString
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT path, mtime_unixns, size, edge, plugin, kind, width, height, data, lines_json
		FROM previews WHERE key = ?`, k.hash(),
	).Scan(&path, &mtime, &size, &edge, &plugin, &p.Kind, &p.Width, &p.Height, &p.Data, &linesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Preview{}, false, nil
	}
	if err != nil {
		return Preview{}, false, err
	}
	if path != k.Path || mtime != k.ModTime.UnixNano() || size != k.Size || edge != k.Edge || plugin != k.Plugin {
		return Preview{}, false, nil
	}
	if linesJSON.Valid && linesJSON.String != "" {
		if err := json.Unmarshal([]byte(linesJSON.String), &p.Lines); err != nil {
			return Preview{}, false, err
		}
	}
	return p, true, nil
}

// Put stores p under k, replacing what was there.
func (c *Cache) Put(ctx context.Context, k Key, p Preview) error {
	var linesJSON sql.NullString
	if len(p.Lines) > 0 {
		b, err := json.Marshal(p.Lines)
		if err != nil {
			return err
		}
		linesJSON = sql.NullString{String: string(b), Valid: true}
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO previews
		(key, path, mtime_unixns, size, edge, plugin, kind, width, height, data, lines_json, created_at_unixms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		k.hash(), k.Path, k.ModTime.UnixNano(), k.Size, k.Edge, k.Plugin,
		int(p.Kind), p.Width, p.Height, p.Data, linesJSON, time.Now().UnixMilli(),
	)
	return err
}

// Forget drops every preview stored for path.
func (c *Cache) Forget(ctx context.Context, path string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM previews WHERE path = ?`, path)
	return err
}

// Prune drops previews created before cutoff and returns how many.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM previews WHERE created_at_unixms < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of stored previews.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM previews`).Scan(&n)
	return n, err
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"podcanvas/internal/domain"
	applog "podcanvas/internal/log"
	"podcanvas/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	CacheFileName = "artifacts.sqlite"

	// DefaultCacheMaxBytes caps the artifact cache when no limit is configured.
	DefaultCacheMaxBytes int64 = 256 << 20

	// schemaVersion tracks the local SQLite schema for the artifact cache.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// Artifact kinds stored in the cache.
const (
	KindPrint    = "print"
	KindTest     = "test"
	KindPDF      = "pdf"
	KindSnapshot = "snapshot"
)

// Artifact is one cached render output.
type Artifact struct {
	Key    string
	Kind   string
	Width  int
	Height int
	Blob   []byte
}

// Cache is an embedded SQLite store for rendered artifacts with a size cap
// enforced least-recently-used.
type Cache struct {
	db       *sql.DB
	path     string
	maxBytes int64

	mu   sync.Mutex
	tick int64
}

// CachePath returns the database file path inside dir.
func CachePath(dir string) string { return filepath.Join(dir, CacheFileName) }

// OpenCache ensures the cache database exists in dir, enables WAL mode and
// brings the schema up to date. maxBytes <= 0 selects DefaultCacheMaxBytes.
func OpenCache(dir string, maxBytes int64) (*Cache, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "cache_open").With(
		slog.String("dir", dir),
	)
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.Error("create cache dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultCacheMaxBytes
	}

	path := CachePath(dir)
	// Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureCacheSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure cache schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	c := &Cache{db: db, path: path, maxBytes: maxBytes}
	var last sql.NullInt64
	_ = db.QueryRowContext(ctx, `SELECT MAX(last_access) FROM artifacts`).Scan(&last)
	c.tick = last.Int64
	l.Debug("cache ready", slog.String("path", path), slog.Int64("max_bytes", maxBytes))
	return c, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Path returns the database file path.
func (c *Cache) Path() string { return c.path }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at schema 1 so the migrations below run once.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureCacheSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS artifacts (
		key          TEXT PRIMARY KEY,
		kind         TEXT    NOT NULL,
		w            INTEGER NOT NULL DEFAULT 0,
		h            INTEGER NOT NULL DEFAULT 0,
		blob         BLOB    NOT NULL,
		size         INTEGER NOT NULL DEFAULT 0,
		updated_at   TEXT    NOT NULL,
		last_access  INTEGER NOT NULL DEFAULT 0
	);`); err != nil {
		return fmt.Errorf("ensure artifacts table: %w", err)
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_artifacts_access ON artifacts(last_access);`,
				`CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON artifacts(kind);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema version recorded in the database.
func (c *Cache) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// nextTick returns a strictly increasing access stamp.
func (c *Cache) nextTick() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UnixNano()
	if now <= c.tick {
		now = c.tick + 1
	}
	c.tick = now
	return now
}

// KeyFor derives a stable cache key from the design content, the artifact
// kind and a free-form variant (e.g. "scale=8;bleed"). Fingerprints of
// externally referenced resources are folded in so a changed file misses.
func KeyFor(d *domain.Design, kind, variant string, resources ...string) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal design: %w", err)
	}
	h := sha256.New()
	h.Write(b)
	h.Write([]byte{0})
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(variant))
	for _, r := range resources {
		h.Write([]byte{0})
		h.Write([]byte(r))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get returns the artifact stored under key, or nil if absent, and updates its access time.
func (c *Cache) Get(ctx context.Context, key string) (*Artifact, error) {
	a := Artifact{Key: key}
	err := c.db.QueryRowContext(ctx, `SELECT kind, w, h, blob FROM artifacts WHERE key=?`, key).
		Scan(&a.Kind, &a.Width, &a.Height, &a.Blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact: %w", err)
	}
	// touch
	_, _ = c.db.ExecContext(ctx, `UPDATE artifacts SET last_access=? WHERE key=?`, c.nextTick(), key)
	return &a, nil
}

// Put upserts an artifact and enforces the size cap via LRU eviction.
func (c *Cache) Put(ctx context.Context, a Artifact) error {
	if strings.TrimSpace(a.Key) == "" {
		return errors.New("artifact key is required")
	}
	switch a.Kind {
	case KindPrint, KindTest, KindPDF, KindSnapshot:
	default:
		return fmt.Errorf("invalid kind: %s", a.Kind)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := c.db.ExecContext(ctx, `INSERT INTO artifacts(key, kind, w, h, blob, size, updated_at, last_access)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET kind=excluded.kind, w=excluded.w, h=excluded.h, blob=excluded.blob,
			size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		a.Key, a.Kind, a.Width, a.Height, a.Blob, len(a.Blob), now, c.nextTick())
	if err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	_, err = c.EvictToFit(ctx, c.maxBytes)
	return err
}

// GetOrCreate returns the cached artifact for key, or calls create, stores and
// returns its result.
func (c *Cache) GetOrCreate(ctx context.Context, key, kind string, create func(context.Context) (Artifact, error)) (*Artifact, bool, error) {
	cached, err := c.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if cached != nil {
		return cached, true, nil
	}
	a, err := create(ctx)
	if err != nil {
		return nil, false, err
	}
	a.Key, a.Kind = key, kind
	if err := c.Put(ctx, a); err != nil {
		return nil, false, err
	}
	return &a, false, nil
}

// TotalBytes sums the blob sizes of all cached artifacts.
func (c *Cache) TotalBytes(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	if err := c.db.QueryRowContext(ctx, `SELECT SUM(size) FROM artifacts`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum artifact sizes: %w", err)
	}
	return total.Int64, nil
}

// EvictToFit deletes least recently used artifacts until the total size is at most maxBytes.
// It returns the number of evicted rows.
func (c *Cache) EvictToFit(ctx context.Context, maxBytes int64) (int, error) {
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return 0, err
	}
	if total <= maxBytes {
		return 0, nil
	}
	rows, err := c.db.QueryContext(ctx, `SELECT key, size FROM artifacts ORDER BY last_access ASC`)
	if err != nil {
		return 0, fmt.Errorf("list artifacts: %w", err)
	}
	var victims []string
	for rows.Next() && total > maxBytes {
		var key string
		var size int64
		if err := rows.Scan(&key, &size); err != nil {
			_ = rows.Close()
			return 0, err
		}
		victims = append(victims, key)
		total -= size
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	for _, k := range victims {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM artifacts WHERE key=?`, k); err != nil {
			return 0, fmt.Errorf("evict artifact: %w", err)
		}
	}
	if len(victims) > 0 {
		applog.WithOperation(applog.WithComponent("storage"), "cache_evict").Debug("artifacts evicted",
			slog.Int("count", len(victims)), slog.Int64("total", total))
	}
	return len(victims), nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tristendillon/diagify/core/models"
)

// CachedCatalog is one catalog_cache row.
type CachedCatalog struct {
	Package     string
	Root        string
	Version     string
	Fingerprint string
	Entries     []models.CatalogEntry
	BuiltAt     time.Time
}

// LoadCatalog returns the cached catalog for (pkg, root), or nil when absent.
func (d *DB) LoadCatalog(ctx context.Context, pkg, root string) (*CachedCatalog, error) {
	if err := d.ready(); err != nil {
		return nil, err
	}

	var (
		row     CachedCatalog
		raw     string
		builtAt int64
	)
	err := d.db.QueryRowContext(ctx, `
SELECT package, root, version, fingerprint, entries, built_at_unix_ms
FROM catalog_cache
WHERE package = ? AND root = ?
`, strings.TrimSpace(pkg), strings.TrimSpace(root)).Scan(
		&row.Package,
		&row.Root,
		&row.Version,
		&row.Fingerprint,
		&raw,
		&builtAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(raw), &row.Entries); err != nil {
		return nil, fmt.Errorf("decode cached entries: %w", err)
	}
	row.BuiltAt = time.UnixMilli(builtAt)
	return &row, nil
}

func (d *DB) SaveCatalog(ctx context.Context, c CachedCatalog) error {
	if err := d.ready(); err != nil {
		return err
	}
	entries := c.Entries
	if entries == nil {
		entries = []models.CatalogEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	builtAt := c.BuiltAt
	if builtAt.IsZero() {
		builtAt = time.Now()
	}

	_, err = d.db.ExecContext(ctx, `
INSERT INTO catalog_cache(package, root, version, fingerprint, entries, built_at_unix_ms)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(package, root) DO UPDATE SET
  version = excluded.version,
  fingerprint = excluded.fingerprint,
  entries = excluded.entries,
  built_at_unix_ms = excluded.built_at_unix_ms
`, strings.TrimSpace(c.Package), strings.TrimSpace(c.Root), c.Version, c.Fingerprint, string(raw), builtAt.UnixMilli())
	return err
}

// DeleteCatalog removes cached catalogs of pkg; an empty root removes every root.
func (d *DB) DeleteCatalog(ctx context.Context, pkg, root string) (int64, error) {
	if err := d.ready(); err != nil {
		return 0, err
	}
	var (
		res sql.Result
		err error
	)
	if strings.TrimSpace(root) == "" {
		res, err = d.db.ExecContext(ctx, `DELETE FROM catalog_cache WHERE package = ?`, strings.TrimSpace(pkg))
	} else {
		res, err = d.db.ExecContext(ctx, `DELETE FROM catalog_cache WHERE package = ? AND root = ?`,
			strings.TrimSpace(pkg), strings.TrimSpace(root))
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

//go:build cgo

package cache

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
)

const driverLibsql = "libsql"

// OpenLibsql opens a libsql database at path (a local file, "file:" DSN,
// ":memory:" or a libsql:// URL) and prepares the page_cache table.
func OpenLibsql(ctx context.Context, path, authToken string) (*SQLBackend, error) {
	dsn, err := buildLibsqlDSN(path, authToken)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping libsql store: %w", err)
	}

	backend, err := NewSQLBackend(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

func buildLibsqlDSN(path, authToken string) (string, error) {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return "", fmt.Errorf("libsql path is required")
	case path == ":memory:":
		return path, nil
	case strings.HasPrefix(path, "libsql:"):
		if authToken == "" {
			return path, nil
		}
		parsed, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("invalid libsql url: %w", err)
		}
		query := parsed.Query()
		query.Set("authToken", authToken)
		parsed.RawQuery = query.Encode()
		return parsed.String(), nil
	case strings.HasPrefix(path, "file:"):
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755); err != nil {
		return "", fmt.Errorf("create libsql directory: %w", err)
	}
	return "file:" + filepath.Clean(path), nil
}

//go:build !cgo

package cache

import (
	"context"
	"errors"
)

// OpenLibsql is unavailable without cgo; go-libsql links a native library.
func OpenLibsql(_ context.Context, _, _ string) (*SQLBackend, error) {
	return nil, errors.New("libsql cache backend requires a cgo build")
}

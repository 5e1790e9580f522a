package cache

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidKey indicates a table or page value that cannot form a cache key.
var ErrInvalidKey = errors.New("invalid cache key")

var tableKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Key identifies one cached page of a logical table.
type Key struct {
	// Table is the logical table key from the route map (e.g. "ai")
	Table string

	// Page is the zero-based page index
	Page int
}

// NewKey validates table and page and returns the cache key.
// Table keys are limited to letters, digits, '_' and '-' so a key can never
// escape its storage namespace.
func NewKey(table string, page int) (Key, error) {
	if !tableKeyPattern.MatchString(table) {
		return Key{}, fmt.Errorf("%w: table %q", ErrInvalidKey, table)
	}
	if page < 0 {
		return Key{}, fmt.Errorf("%w: page %d", ErrInvalidKey, page)
	}
	return Key{Table: table, Page: page}, nil
}

// String generates the deterministic cache key.
// Format: api/{table}/list/{page}
//
// Example:
//
//	api/ai/list/0
func (k Key) String() string {
	return "api/" + k.Table + "/list/" + strconv.Itoa(k.Page)
}

// Path returns the storage path for file-like backends.
func (k Key) Path() string {
	return k.String() + ".json"
}

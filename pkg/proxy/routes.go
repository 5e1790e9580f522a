package proxy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Sternrassler/airtable-proxy/pkg/cache"
)

// Routes maps public table keys to upstream table names. It is built once
// and only read afterwards.
type Routes map[string]string

// Resolve returns the upstream table for key.
func (r Routes) Resolve(key string) (string, bool) {
	table, ok := r[key]
	return table, ok
}

// Key validates (table, page) against the routes and returns the cache key.
func (r Routes) Key(table string, page int) (cache.Key, error) {
	if _, ok := r.Resolve(table); !ok {
		return cache.Key{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if page < 0 {
		return cache.Key{}, fmt.Errorf("%w: %d", ErrInvalidPage, page)
	}
	return cache.NewKey(table, page)
}

// Keys returns the public keys in sorted order.
func (r Routes) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate rejects empty keys or targets.
func (r Routes) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("no table routes configured")
	}
	for key, table := range r {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("table route with empty key")
		}
		if strings.TrimSpace(table) == "" {
			return fmt.Errorf("table route %q has no upstream table", key)
		}
	}
	return nil
}

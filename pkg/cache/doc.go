// Package cache stores Airtable page results so that a (table, page) pair is
// fetched from upstream at most once.
//
// The manager sits on a pluggable key to blob Backend:
//
//   - file (default): one JSON file per page under .newcache/api/{table}/list/{page}.json
//   - redis: plain string keys prefixed with "airtable-proxy:", no TTL
//   - s3: one object per page, keyed like the file layout
//   - libsql: a page_cache table (cgo builds only)
//   - memory: process-local map
//
// Entries never expire. The stored value is the bare JSON object of record
// ID to fields, exactly what the HTTP endpoint returns.
//
// # Basic Usage
//
//	backend, err := cache.Open(ctx, cache.Config{Driver: cache.DriverFile})
//	if err != nil {
//		return err
//	}
//	manager := cache.NewManager(backend, logger)
//
//	key, err := cache.NewKey("ai", 0)
//	if err != nil {
//		return err
//	}
//
//	if page, ok := manager.Get(ctx, key); ok {
//		return page, nil
//	}
//
// Get never returns an error: unreadable or corrupt entries count as a miss and
// are reported through logs and page_cache_errors_total.
//
// # Metrics
//
//   - page_cache_hits_total{backend}
//   - page_cache_misses_total
//   - page_cache_written_bytes_total{backend}
//   - page_cache_errors_total{operation}
package cache

// Package records defines the page result shape shared by the walker, the
// page cache and the fetch pipeline.
package records

import (
	"encoding/json"
	"fmt"
)

// Fields holds the upstream field values of one record. Values are opaque.
type Fields map[string]any

// Page maps upstream record IDs to their fields.
type Page map[string]Fields

// Record is a single upstream record.
type Record struct {
	ID     string
	Fields Fields
}

// FromRecords builds a Page keyed by record ID.
// A later record with a duplicate ID replaces the earlier one.
func FromRecords(rs []Record) Page {
	page := make(Page, len(rs))
	for _, r := range rs {
		fields := r.Fields
		if fields == nil {
			fields = Fields{}
		}
		page[r.ID] = fields
	}
	return page
}

// Decode parses the JSON form written by Encode.
func Decode(data []byte) (Page, error) {
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	if page == nil {
		return nil, fmt.Errorf("decode page: not a JSON object")
	}
	return page, nil
}

// Encode serializes the page as a bare JSON object of record ID to fields.
func Encode(page Page) ([]byte, error) {
	if page == nil {
		page = Page{}
	}
	data, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}
	return data, nil
}

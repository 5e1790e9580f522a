package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/airtable-proxy/internal/testutil"
)

// setupEnv points the CLI at a fake upstream with a file cache in a temp dir.
func setupEnv(t *testing.T) *testutil.MockAirtable {
	t.Helper()

	mock := testutil.NewMockAirtable()
	t.Cleanup(mock.Close)
	mock.RequireKey("keyTest")
	mock.SetTable("AI Projects", testutil.Records(5))

	t.Setenv("AIRTABLE_API_KEY", "keyTest")
	t.Setenv("AIRTABLE_BASE_ID", "appTest")
	t.Setenv("AIRTABLE_BASE_URL", mock.URL())
	t.Setenv("AIRTABLE_PAGE_SIZE", "3")
	t.Setenv("TABLE_ROUTES", "ai=AI Projects")
	t.Setenv("TABLE_ROUTES_FILE", "")
	t.Setenv("RATE_MIN_INTERVAL", "1ms")
	t.Setenv("CACHE_DRIVER", "file")
	t.Setenv("CACHE_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")

	return mock
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFetchCommand(t *testing.T) {
	mock := setupEnv(t)

	out, err := run(t, "fetch", "ai", "1")
	require.NoError(t, err)

	var page map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Len(t, page, 2)
	assert.Contains(t, page, "rec003")
	assert.Contains(t, page, "rec004")
	assert.Equal(t, 2, mock.GetRequestCount())

	// Served from the cache the second time.
	_, err = run(t, "fetch", "ai", "1")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.GetRequestCount())
}

func TestPurgeCommand(t *testing.T) {
	mock := setupEnv(t)

	_, err := run(t, "fetch", "ai", "0")
	require.NoError(t, err)
	require.Equal(t, 1, mock.GetRequestCount())

	out, err := run(t, "purge", "ai", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "purged ai page 0")

	_, err = run(t, "fetch", "ai", "0")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.GetRequestCount())
}

func TestPurgeCommand_WithoutCredentials(t *testing.T) {
	mock := setupEnv(t)

	_, err := run(t, "fetch", "ai", "0")
	require.NoError(t, err)

	// Cache maintenance needs only routes and the cache settings.
	t.Setenv("AIRTABLE_API_KEY", "")
	t.Setenv("AIRTABLE_BASE_ID", "")

	out, err := run(t, "purge", "ai", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "purged ai page 0")

	_, err = run(t, "purge", "ai", "0")
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "purge", "nope", "0")
	assert.ErrorContains(t, err, "unknown table")

	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestPurgeCommand_RequiresRoutes(t *testing.T) {
	setupEnv(t)
	t.Setenv("TABLE_ROUTES", "")

	_, err := run(t, "purge", "ai", "0")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestFetchCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown table",
			args:    []string{"fetch", "nope", "0"},
			wantErr: "unknown table",
		},
		{
			name:    "page beyond end",
			args:    []string{"fetch", "ai", "7"},
			wantErr: "page",
		},
		{
			name:    "invalid page",
			args:    []string{"fetch", "ai", "1x"},
			wantErr: "page",
		},
		{
			name:    "missing api key",
			args:    []string{"fetch", "ai", "0"},
			env:     map[string]string{"AIRTABLE_API_KEY": ""},
			wantErr: "invalid configuration",
		},
		{
			name:    "wrong arg count",
			args:    []string{"fetch", "ai"},
			wantErr: "accepts 2 arg(s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.wantErr)
		})
	}
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/airtable-proxy/internal/server"
	"github.com/Sternrassler/airtable-proxy/pkg/proxy"
)

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:   "airtable-proxy",
		Short: "Rate-limited, caching read proxy for Airtable listings",
		Long: `airtable-proxy serves GET /api/{table}/list/{page} from a page cache,
walking the Airtable listing on a miss while keeping upstream calls
under the 5 requests/second limit.

Configuration is read from the environment (AIRTABLE_API_KEY,
AIRTABLE_BASE_ID, TABLE_ROUTES, CACHE_DRIVER, ...).

Without a subcommand the HTTP server is started.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	root.AddCommand(serve, newFetchCmd(), newPurgeCmd())
	return root
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <table> <page>",
		Short: "Fetch one page through the cache and print it as JSON",
		Long: `Fetch runs the same pipeline as the HTTP server once: a cached page is
printed directly, a missing page is walked from Airtable and stored.
Useful for warming the cache.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := proxy.ParsePage(args[1])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.fetcher.FetchPage(cmd.Context(), args[0], page)
			if err != nil {
				return fmt.Errorf("fetch %s page %d: %w", args[0], page, err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <table> <page>",
		Short: "Delete one cached page",
		Long: `Cached pages never expire. Purge removes a single entry so the next
request walks Airtable again. Only the cache and table routes need to be
configured.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := proxy.ParsePage(args[1])
			if err != nil {
				return err
			}

			a, err := newCacheApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := proxy.Purge(cmd.Context(), a.cfg.Routes(), a.cache, args[0], page); err != nil {
				return fmt.Errorf("purge %s page %d: %w", args[0], page, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %s page %d\n", args[0], page)
			return nil
		},
	}
}

// serverFor builds the HTTP server for a.
func serverFor(a *app) *server.Server {
	return server.New(server.Options{
		Fetcher:        a.fetcher,
		Port:           a.cfg.Port,
		RequestTimeout: a.cfg.RequestTimeout,
		Logger:         a.logger,
	})
}

// Command airtable-proxy serves cached, rate-limited pages of Airtable
// listings over HTTP.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("airtable-proxy failed")
		os.Exit(1)
	}
}

// Package pagination materializes one page of an Airtable listing.
//
// Airtable lists records with an opaque continuation cursor (offset), so page
// N can only be reached by walking pages 0..N in order. The walk is an
// explicit state machine: Walk.Step consumes one upstream response and moves
// between AwaitingPage, Found, Exhausted and Failed. Walker drives it,
// sending every upstream call through a shared ratelimit.Gate.
//
// Example usage:
//
//	walker := pagination.NewWalker(client, gate, pagination.DefaultConfig())
//	page, err := walker.Walk(ctx, pagination.Request{Table: "Team Members", Page: 2})
//
// The walker:
//   - Always starts from the first page
//   - Follows the offset cursor until the target page is reached
//   - Fails with ErrPageNotFound when the listing ends before the target
//   - Stops on the first upstream error, without retrying
package pagination

// Package migrations embeds the schema for the Postgres-backed stores
// (payment violations, gate allowlist) so tooling can apply it without
// shipping loose SQL files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package migrations embeds the Postgres schema of the document server.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

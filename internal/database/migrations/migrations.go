// Package migrations embeds the goose SQL migrations for the podcast schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS

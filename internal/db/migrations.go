// Package db embeds the SQL migrations so the migrate binary carries its
// schema with it.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

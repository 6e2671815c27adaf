// Package migrations embeds the SQL schema for every supported dialect.
package migrations

import "embed"

// FS holds one directory of numbered migrations per dialect name.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

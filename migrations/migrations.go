// Package migrations embeds the hitokoto schema for every supported backend.
package migrations

import "embed"

// FS holds one directory of golang-migrate files per dialect: postgres, mysql, sqlite.
//
//go:embed postgres/*.sql mysql/*.sql sqlite/*.sql
var FS embed.FS

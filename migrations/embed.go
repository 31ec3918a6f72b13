// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the migrations for every supported driver, one directory each.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Dir returns the directory within FS for a driver name.
func Dir(driver string) string { return driver }

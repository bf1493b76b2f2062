// Package migrations embeds the schema of every supported database driver.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite3/*.sql
var FS embed.FS

// Package migrations embeds SQL migration files into the binary.
//
// Importing it registers the files with the database package, so
// migrations run without the SQL files present on the filesystem.
package migrations

import (
	"embed"

	"github.com/msgpo/kalliope-app/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}

// Package migrations embeds SQL migration files into the binary, so the
// bridge can initialize its history schema without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/habridge/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Files live at the root of the embedded FS.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}

// Package migrations embeds the SQL migration files into the binary
// and registers them with the database package.
package migrations

import (
	"embed"

	"github.com/farmcab/farmcab-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}

package migrate

import (
	"embed"
	"io/fs"
)

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Embedded exposes the compiled-in migration files.
func Embedded() fs.FS {
	return migrationsFS
}

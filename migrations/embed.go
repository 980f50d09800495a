// Package migrations compiles the schema migration SQL into the binary,
// so a deployed controller carries its own schema history and needs no
// loose .sql files next to the executable. Importing this package for
// side effects registers the set with the database package:
//
//	import _ "github.com/azndibs/govee-ble-core/migrations"
package migrations

import (
	"embed"

	"github.com/azndibs/govee-ble-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}

// Package syncdb holds all the migrations for the marketplace sync database
package syncdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the sync database
var Migrations = migrate.NewMigrations()

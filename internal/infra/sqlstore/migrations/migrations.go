// Package migrations holds the schema of the answer store. Every migration carries its own
// snapshot of the table model so later changes to the store rows never rewrite history.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()

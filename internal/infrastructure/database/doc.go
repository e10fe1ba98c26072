// Package database opens the local SQLite store of kalliope-app and keeps
// its schema current.
//
// The store holds the geofence registry and the run history. Schema files
// are embedded by package migrations and named
// YYYYMMDD_HHMMSS_name.up.sql, with an optional matching .down.sql:
//
//	import _ "github.com/msgpo/kalliope-app/migrations"
//
//	db, err := database.Open(cfg.Database)
//	...
//	err = db.Migrate(ctx)
package database

// Package relica provides the SQL SubscriptionRepository using the Relica query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database query builder
// for Go with zero production dependencies.
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    "github.com/coregx/feedkit"
//	    "github.com/coregx/feedkit/adapters/relica"
//	    _ "github.com/mattn/go-sqlite3"
//	)
//
//	db, err := sql.Open("sqlite3", "feedkit.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := feedkit.ApplyMigrations(ctx, db); err != nil {
//	    log.Fatal(err)
//	}
//
//	repos := relica.NewRepositories(db, "sqlite3")
//	store, err := feedkit.NewStore(
//	    feedkit.WithStoreRepository(repos.Subscription),
//	    feedkit.WithStoreClock(feedkit.SystemClock{}),
//	)
package relica

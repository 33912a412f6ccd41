// Package connector groups the source and destination connectors of the
// migration.
//
// # Architecture Overview
//
//   - core: the Source, Cursor and Destination interfaces the orchestrator
//     depends on, plus the optional BatchLimiter.
//
//   - base: shared connector plumbing. RetryPolicy retries connection
//     attempts with exponential backoff.
//
//   - sources/sqlite: reads a table as ordered LIMIT/OFFSET batches from a
//     read-only SQLite file.
//
//   - destinations/sqldb: writes each batch with one multi-row INSERT that
//     skips existing ids. PostgreSQL, MySQL and SQLite differ only in their
//     Dialect.
//
//   - registry: factories keyed by name. Connectors self-register in init,
//     so importing a connector package for its side effects makes it available.
//
// # Example Usage
//
//	import _ "github.com/ajitpratap0/cinemigrate/pkg/connector/destinations/sqldb"
//
//	dest, err := registry.CreateDestination(ctx, "postgresql", cfg, logger)
//	if err != nil {
//		return err
//	}
//	defer dest.Close()
package connector

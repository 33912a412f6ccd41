// Package cinemigrate migrates a movie catalogue from a SQLite file into a
// relational target (PostgreSQL, MySQL or SQLite).
//
// Five tables are copied in dependency order: film_work, genre,
// genre_film_work, person and person_film_work. Each table is read in
// fixed-size batches and every batch is written with one multi-row INSERT
// that skips ids already present in the target, so a run can be repeated
// without creating duplicates.
//
// # Quick Start
//
//	cinemigrate config --config migrate.yaml   # print the effective configuration
//	cinemigrate run --config migrate.yaml      # migrate every table
//	cinemigrate verify --config migrate.yaml   # compare row counts
//
// # Key Packages
//
//	internal/pipeline          - Migration orchestrator and run report
//	pkg/models                 - Typed records and table descriptors
//	pkg/connector/sources      - SQLite batch reader
//	pkg/connector/destinations - Multi-dialect batch writer
//	pkg/connector/registry     - Connector discovery by name
//	pkg/config                 - Defaults, YAML file and environment
//	pkg/etlerrors              - Typed errors and the fatal/recoverable split
//	pkg/logger                 - Structured logging
//	pkg/metrics                - Prometheus collectors and /metrics server
//	pkg/observability          - OpenTelemetry tracing
//
// # Configuration
//
// Defaults are overridden by an optional YAML file, then by environment
// variables (a .env file is loaded first), then by command line flags.
// ${VAR_NAME} references in the YAML file are expanded from the
// environment.
package cinemigrate

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and applies the schema.

# Connecting

Open selects the driver from DATABASE_TYPE and pings the server:

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

PostgreSQL (lib/pq) is used in production; SQLite (modernc.org/sqlite) for
local runs and tests. SQLite connections are limited to one open
connection.

# Migrations

The schema lives in embedded goose migrations under migrations/ and is
applied with:

	if err := db.Migrate(ctx, conn, cfg.DatabaseType); err != nil {
		log.Fatal(err)
	}

The same SQL runs on both engines.

# Tables

  - sessions: one row per voting round
  - voters: participants, with invited_by/invite_depth forming the invite tree
  - invite_codes: capabilities with status, max_uses and use_count
  - movies: nominations
  - votes: one row per unit of support

There are no foreign keys. Cascading deletes are explicit statements run
in one transaction by the store.

# Indexes

Partial unique indexes on movies enforce nomination uniqueness per session:

  - (session_id, library_id) where library_id is set
  - (session_id, catalog_id) where catalog_id is set
  - (session_id, lower(title), source) where neither id is set

IsUniqueViolation recognises constraint failures from both drivers.
*/
package db

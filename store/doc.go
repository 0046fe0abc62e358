// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the identity store: typed queries over the sessions,
voters, invite_codes, movies, and votes tables.

Every method runs against a DBTX, so the same query works on the pool or
inside a transaction:

	st := store.New(conn)
	err := st.InTx(ctx, func(tx *store.Store) error {
		ok, err := tx.ConsumeCode(ctx, code, now)
		...
		return tx.CreateVoter(ctx, voter)
	})

Inside InTx only the tx store may be used. db.Open gives every SQLite
database a single connection, so touching the pool from within a
transaction blocks forever, in production as well as in tests.

Keyed lookups return ErrNotFound when no row matches. Rows are scanned with
scany's sqlscan using the `db` tags on the models types. Placeholders use
the $N form, which both lib/pq and modernc.org/sqlite accept.

Atomic primitives used by the domain packages:

  - ConsumeCode: conditional update taking one use of a claimable code
  - RevokeCode: conditional update from unused to revoked
  - TouchVoter: first write of a per-voter transaction, serializing
    concurrent requests of the same voter
*/
package store

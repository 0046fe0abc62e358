// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package nominations guards the movie list of a session.

A movie is the same nomination as an existing one when it shares the
library id or the catalog id; without either id, the title (ignoring case)
and source must match. Duplicates are refused with apperr.CodeDuplicate and
the id of the movie already on the list. The check runs before the insert,
and the partial unique indexes on movies decide any race that slips past
it.

RequestAndNominate calls the request service before writing anything and
never inside a transaction. If the call fails the movie is still nominated,
just without a request id.
*/
package nominations

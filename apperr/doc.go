// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package apperr defines the typed errors returned by the domain packages.

Every rule violation is reported as an *Error with a Kind, a stable Code,
and a human message. Transport code maps the Kind to a status and returns
the Code and Message; the wrapped cause is only logged.

	if used >= limit {
		return apperr.Forbidden(apperr.CodeBudgetExhausted, msg).With("limit", limit)
	}

Callers compare codes with CodeOf or errors.Is against a template error:

	if apperr.CodeOf(err) == apperr.CodeDuplicate { ... }
*/
package apperr

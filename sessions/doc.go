// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package sessions owns the lifecycle of a movie night: creation with its
root invite codes, admin updates, closing with a winner, deletion, and the
read models served to voters (View) and admins (List, Detail).

A session past its expires_at already refuses claims, votes and
nominations. The Sweeper closes such sessions on a cron schedule so the
winner is recorded without an admin:

	sweeper, err := sessions.NewSweeper(svc, cfg.SweepSchedule, m)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()
*/
package sessions

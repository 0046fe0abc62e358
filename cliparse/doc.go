// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line flags and configuration.

# Configuration

Load returns a Config with all settings:

	fs := pflag.NewFlagSet("movienight", pflag.ContinueOnError)
	cliparse.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])
	cfg, err := cliparse.Load(ctx, fs)

Values come from three layers. A .env file in the working directory is
loaded first and never overrides variables that are already set. The
environment is read next, with defaults filled in by go-envconfig. Flags
given on the command line win over both.

# Environment Variables

	PORT                   server port (default 3318)
	DATABASE_URL           connection string (required)
	DATABASE_TYPE          sqlite or postgres (default sqlite)
	ADMIN_SECRET           X-Admin-Secret value for admin routes
	VOTER_TOKEN_SECRET     HMAC key for voter tokens
	VOTER_TOKEN_TTL        voter token lifetime (default 8760h)
	COOKIE_SECURE          mark the voter cookie Secure
	CORS_ALLOWED_ORIGINS   comma-separated origins
	RATE_LIMIT_PER_MINUTE  per-IP limit on public routes, 0 disables (default 120)
	JELLYFIN_URL, JELLYFIN_API_KEY
	JELLYSEERR_URL, JELLYSEERR_API_KEY
	MOCK_MEDIA             use the built-in mock library
	EXTERNAL_TIMEOUT       timeout for media server calls (default 5s)
	NATS_URL               publish domain events when set
	SWEEP_SCHEDULE         cron schedule for the expiry sweep (default "@every 1m")
	LOG_LEVEL              debug, info, warn or error (default info)
	LOG_FORMAT             text or json (default text)

# CLI Flags

	-p, --port            PORT
	-d, --database-url    DATABASE_URL
	-t, --database-type   DATABASE_TYPE
	    --admin-secret    ADMIN_SECRET
	    --mock-media      MOCK_MEDIA
	    --log-level       LOG_LEVEL
	    --log-format      LOG_FORMAT

# Validation

Load fails when DATABASE_URL is missing or a value is out of range. The
secrets are only needed by the server, which checks them with
RequireSecrets.
*/
package cliparse

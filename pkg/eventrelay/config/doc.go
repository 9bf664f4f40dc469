/*
Package config loads relay configuration from YAML or JSON.

# Overview

Config wraps the decoded document and offers typed accessors addressed by
dotted paths. Missing keys and type mismatches fall back to the caller's
default instead of failing, so partial files are fine:

	cfg, err := config.FromFile("relay.yaml")
	if err != nil {
	    return err
	}
	timeout := cfg.Duration("storage.timeout", 5*time.Second)

Settings is the resolved, validated form used by the relay and relayctl:

	settings, err := config.Load("relay.yaml")
	if err != nil {
	    return err
	}
	logger := settings.Log.Logger(os.Stderr)

# File format

	storage:
	  driver: sqlite          # memory | sqlite | postgres
	  dsn: ./pending.db
	  timeout: 5s
	  retry_attempts: 1
	hydration:
	  concurrency: 4
	observability:
	  metrics: true
	  tracing: true
	log:
	  level: info             # debug | info | warn | error
	  format: json            # json | text

Durations accept time.ParseDuration strings or bare numbers of seconds.
*/
package config

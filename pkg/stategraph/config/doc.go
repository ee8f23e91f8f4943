/*
Package config loads stategraph runtime configuration.

# Layers

Load applies, in order:
  - built-in defaults (sqlite store at stategraph.db, 1000 max steps)
  - a YAML or JSON file
  - STATEGRAPH_* environment variables, optionally seeded from .env files

Example file:

	store:
	  backend: redis
	  redis:
	    addr: localhost:6379
	    ttl: 24h
	run:
	  max_steps: 200
	  max_concurrency: 4
	log:
	  level: debug
	  format: json
	metrics:
	  addr: ":9090"
	tracing:
	  enabled: true

# Raw Values

Values wraps a decoded document for typed extraction with defaults:

	v, err := config.FromFile("stategraph.yaml")
	steps := v.Section("run").Int("max_steps", 1000)

Accessors return the default when a key is missing or has the wrong type.
*/
package config

// Package config loads the gateway configuration from config.yaml and
// environment variables: listen address, upstream endpoints and timeout,
// breaker threshold and cool-down, cache TTL and capacity, backlog capacity,
// scheduling intervals and optional static answer rules.
package config

// Package healthcheck probes the inference replicas' readiness routes on a
// cron schedule and keeps each endpoint's health flag current so the pool
// only routes to replicas that can serve.
package healthcheck

// Package backlog records queries that were answered in degraded mode so an
// external worker can resubmit them once the upstream is healthy again.
package backlog

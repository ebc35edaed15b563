// Package coordinator wraps every upstream inference call and guarantees the
// caller a structurally valid chat response.
//
// A call is attempted only when the circuit breaker allows it. A successful
// answer is cached and returned unchanged. Any failure is recorded on the
// breaker and absorbed by degrading through three tiers, in order:
//
//  1. a cached answer to the same question,
//  2. a canned answer from the static rule set, with the query queued for
//     replay,
//  3. a graceful-degradation payload with reference links and a retry hint,
//     with the query queued for replay.
package coordinator

// Package strategy picks which inference replica serves an upstream call:
//
//   - Round Robin: sequential distribution
//   - Random: uniform random choice
//   - Least Connections: fewest in-flight calls
//   - Least Response Time: EWMA response time weighted by in-flight calls
//   - Consistent Hash: session affinity on the session ID
//
// Strategies only ever see the healthy endpoints handed to them by the pool.
package strategy

// Package cache keeps recent successful upstream answers so repeated
// questions can still be answered while the inference backend is degraded.
//
// The cache is written only after a successful upstream call and read only on
// the fallback path. Entries expire after a TTL and are purged lazily on read;
// when full, the entry written longest ago is evicted.
package cache

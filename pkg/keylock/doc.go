// Package keylock serializes mutations that share a key.
//
// The billing pipeline takes one exclusive critical section per billing
// customer before touching the account record, so two webhook deliveries for
// the same customer can never interleave. Locks for different keys proceed
// fully in parallel.
//
// Manager is the in-process implementation for single-node deployments. For
// multi-worker deployments use the Redis-backed implementation in
// subscription/redisstore, which satisfies the same Locker interface.
package keylock

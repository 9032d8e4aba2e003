// Package redisstore provides the Redis-backed collaborators for
// multi-worker deployments: a shared webhook dedup cache and a distributed
// per-customer lock.
//
// Single-node deployments can use the in-process keylock manager instead;
// both satisfy the same Locker interface, so wiring picks one at startup
// based on configuration.
package redisstore

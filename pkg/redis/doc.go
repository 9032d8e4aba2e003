// Package redis provides the Redis connection used by the webhook dedup
// cache and the distributed per-customer lock (subscription/redisstore).
// Connection setup retries transient failures so a worker restarting during
// a Redis failover comes up cleanly.
package redis

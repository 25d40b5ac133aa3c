// Package cache provides the in-memory LRU caches behind shader
// porting. Cache memoizes per-stage rewrite results under a single
// lock; ShardedCache holds ported programs and splits its lock across
// shards for lookups on the hot path.
package cache

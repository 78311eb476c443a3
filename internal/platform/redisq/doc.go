// Package redisq implements task.JobStore on Redis.
//
// Each queue owns a small set of keys under a configurable prefix:
//
//	{prefix}:{queue}:job:{id}   hash: job JSON plus live state/progress/priority fields
//	{prefix}:{queue}:wait       zset: score = priority*2^40 + insertion sequence
//	{prefix}:{queue}:delayed    zset: score = ready time (unix ms)
//	{prefix}:{queue}:active     set of leased job ids
//	{prefix}:{queue}:completed  zset: score = finish time (unix ms)
//	{prefix}:{queue}:failed     zset: score = finish time (unix ms)
//	{prefix}:{queue}:seq        insertion counter
//
// Leasing runs as a single Lua script, so a ready job is handed to exactly
// one worker across all processes sharing the Redis instance.
package redisq

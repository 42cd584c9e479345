// Package redis provides a Redis-backed ContentStore and a distributed
// session locker.
package redis

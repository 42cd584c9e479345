/*
Package session serves many story sessions from one process.

A Manager hands out one engine per session ID, all sharing the same graph,
generator and content store. Calls on a session are serialized with a
reference-counted mutex; an optional ports.DistributedLocker extends that
guarantee across replicas.
*/
package session

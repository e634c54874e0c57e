// Package store provides persistent storage for container records: a durable
// file-backed store with one JSON document per container, an in-memory store
// for tests and ephemeral use, and a registry that enumerates records from
// any store on a best-effort basis.
package store

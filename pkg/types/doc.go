// Package types defines the shared types and collaborator contracts used
// across Berth: container identifiers and statuses, the persisted record
// schema, and the interfaces for the runtime adapter, the persistent store,
// and the auto-termination scheduler.
package types

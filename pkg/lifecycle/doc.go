// Package lifecycle implements the container lifecycle manager: the state
// machine governing valid transitions, the persistence of one record per
// container, and the coordination of the runtime adapter and the
// auto-termination scheduler.
package lifecycle

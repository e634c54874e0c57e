// Package meta holds build-time metadata for Berth.
package meta

// Version is the Berth version string. It is overridden at build time via
// -ldflags "-X github.com/nicholas-fedor/berth/internal/meta.Version=...".
var Version = "v0.0.0-unknown"

// Package runtime adapts the external containerization runtime behind the
// types.Runtime contract. Two adapters are provided: CLI execs the runtime
// binary and reports its real exit status, while API speaks to the Docker
// Engine API directly and synthesizes equivalent results.
package runtime

// Package mocks provides hand-written test doubles for the lifecycle
// manager's collaborators.
package mocks

import (
	"context"
	"maps"
	"sync"

	"github.com/nicholas-fedor/berth/pkg/types"
)

// RuntimeCall records one invocation made against the mock runtime.
type RuntimeCall struct {
	Subcommand string
	ImageRef   string
	Env        map[string]string
	RuntimeID  string
}

// Runtime is a scripted types.Runtime double. Each subcommand returns its
// configured result and error; every invocation is recorded.
type Runtime struct {
	mu    sync.Mutex
	calls []RuntimeCall

	RunResult     types.Result
	RunErr        error
	PauseResult   types.Result
	PauseErr      error
	UnpauseResult types.Result
	UnpauseErr    error
	StopResult    types.Result
	StopErr       error
	RemoveResult  types.Result
	RemoveErr     error
}

// DefaultRuntimeID is the runtime container identifier the mock reports for
// successful runs unless reconfigured.
const DefaultRuntimeID = "f2f05b21a80d4c349f8a7cf06f3c9f01"

// NewRuntime creates a mock runtime where every subcommand succeeds and run
// reports DefaultRuntimeID.
func NewRuntime() *Runtime {
	return &Runtime{
		RunResult: types.Result{Output: DefaultRuntimeID + "\n"},
	}
}

// Run records the call and returns the scripted run result.
func (r *Runtime) Run(_ context.Context, imageRef string, env map[string]string) (types.Result, error) {
	r.record(RuntimeCall{Subcommand: "run", ImageRef: imageRef, Env: maps.Clone(env)})

	return r.RunResult, r.RunErr
}

// Pause records the call and returns the scripted pause result.
func (r *Runtime) Pause(_ context.Context, runtimeID string) (types.Result, error) {
	r.record(RuntimeCall{Subcommand: "pause", RuntimeID: runtimeID})

	return r.PauseResult, r.PauseErr
}

// Unpause records the call and returns the scripted unpause result.
func (r *Runtime) Unpause(_ context.Context, runtimeID string) (types.Result, error) {
	r.record(RuntimeCall{Subcommand: "unpause", RuntimeID: runtimeID})

	return r.UnpauseResult, r.UnpauseErr
}

// Stop records the call and returns the scripted stop result.
func (r *Runtime) Stop(_ context.Context, runtimeID string) (types.Result, error) {
	r.record(RuntimeCall{Subcommand: "stop", RuntimeID: runtimeID})

	return r.StopResult, r.StopErr
}

// Remove records the call and returns the scripted remove result.
func (r *Runtime) Remove(_ context.Context, runtimeID string) (types.Result, error) {
	r.record(RuntimeCall{Subcommand: "remove", RuntimeID: runtimeID})

	return r.RemoveResult, r.RemoveErr
}

// Calls returns a copy of all recorded invocations.
func (r *Runtime) Calls() []RuntimeCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	calls := make([]RuntimeCall, len(r.calls))
	copy(calls, r.calls)

	return calls
}

// CallCount returns how many times the given subcommand was invoked.
func (r *Runtime) CallCount(subcommand string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0

	for _, call := range r.calls {
		if call.Subcommand == subcommand {
			count++
		}
	}

	return count
}

func (r *Runtime) record(call RuntimeCall) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call)
}

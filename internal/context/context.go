// Licensed to LinDB under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. LinDB licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package context implements the task group context tree: the structure
// that binds a set of spawned tasks together for cancellation and
// exception propagation, mirroring the isolation a goroutine tree needs
// without Go's standard context.Context (which has no concept of
// "cancel my whole sibling subtree but not my cousin's").
package context

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// globalEpoch is bumped every time any GroupContext in the process is
// cancelled. It is a diagnostic count only: dispatch loops call
// IsCancelled directly rather than comparing against it.
var globalEpoch atomic.Uint64

// GlobalEpoch returns the current process-wide cancellation epoch.
func GlobalEpoch() uint64 {
	return globalEpoch.Load()
}

// GroupContext is a node in the cancellation/exception tree. Every task
// belongs to exactly one GroupContext; spawning a child task group (via
// NewChild) creates a child GroupContext whose
// cancellation and exception state is independent of its siblings but
// which is cancelled in turn whenever its parent is.
type GroupContext struct {
	mu        sync.Mutex
	parent    *GroupContext
	children  map[*GroupContext]struct{}
	cancelled atomic.Bool
	exception error // first exception recorded against g; wins for Exception()
	joined    error // every exception recorded against g, joined via multierr
	priority  atomic.Int32
}

// NewRoot creates a context with no parent, the root of a new task group.
func NewRoot(priority int32) *GroupContext {
	g := &GroupContext{children: make(map[*GroupContext]struct{})}
	g.priority.Store(priority)
	return g
}

// NewChild creates a context nested under parent. Cancelling parent (or
// any of its ancestors) cancels g; cancelling g never affects parent.
func (g *GroupContext) NewChild() *GroupContext {
	child := &GroupContext{parent: g, children: make(map[*GroupContext]struct{})}
	child.priority.Store(g.priority.Load())

	g.mu.Lock()
	alreadyCancelled := g.cancelled.Load()
	if !alreadyCancelled {
		g.children[child] = struct{}{}
	}
	g.mu.Unlock()

	if alreadyCancelled {
		child.Cancel()
	}
	return child
}

// Cancel marks g and every descendant context cancelled. Idempotent.
func (g *GroupContext) Cancel() {
	if g.cancelled.Swap(true) {
		return
	}
	globalEpoch.Add(1)

	g.mu.Lock()
	children := g.children
	g.children = nil
	g.mu.Unlock()

	for child := range children {
		child.Cancel()
	}
}

// IsCancelled reports whether g has been cancelled.
func (g *GroupContext) IsCancelled() bool {
	return g.cancelled.Load()
}

// TrySetException records err as g's exception if none is set yet (first
// exception wins for Exception(), matching the source tree's "first
// failure" semantics), then cancels g and its descendants. Returns true if
// err became g's primary exception. Every call, including ones that lose
// the race for primary, is folded into AllExceptions() via multierr, so a
// second task failing concurrently with the first is not silently dropped
// from the diagnostic record even though only the first one cancels first.
func (g *GroupContext) TrySetException(err error) bool {
	if err == nil {
		return false
	}
	g.mu.Lock()
	recorded := g.exception == nil
	if recorded {
		g.exception = err
	}
	g.joined = multierr.Append(g.joined, err)
	g.mu.Unlock()

	g.Cancel()
	return recorded
}

// Exception returns the first exception recorded against g, or nil.
func (g *GroupContext) Exception() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.exception
}

// AllExceptions returns every exception recorded against g, joined with
// multierr, for logging or diagnostics that want the full picture rather
// than just the first failure.
func (g *GroupContext) AllExceptions() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.joined
}

// SetPriority sets the scheduling priority associated with tasks spawned
// under g. Valid range is left to the caller (the arena/stream clamps it
// to the three supported lanes).
func (g *GroupContext) SetPriority(priority int32) {
	g.priority.Store(priority)
}

// Priority returns the scheduling priority associated with g.
func (g *GroupContext) Priority() int32 {
	return g.priority.Load()
}

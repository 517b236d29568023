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

// Package taskarena is the public surface over internal/runtime: a small
// interface-plus-constructor layer the way the teacher exposes its own
// internal/concurrent.Pool, so embedders never import anything under
// internal/.
package taskarena

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lindb/ptask/internal/metrics"
	"github.com/lindb/ptask/internal/runtime"
	"github.com/lindb/ptask/pkg/task"
)

// Priority selects one of the three scheduling lanes an Arena and its
// tasks run in.
type Priority int32

const (
	Low    Priority = -1
	Normal Priority = 0
	High   Priority = 1
)

var threadIndexSeq int64

// CurrentThreadIndex returns a monotonically increasing identifier, taken
// from a process-wide counter on every call whether or not the caller
// occupies an arena slot, for diagnostics/logging correlation. Unlike oneTBB's per-OS-thread slot
// index, Go goroutines aren't threads, so this is a global allocation
// counter rather than a real per-slot index; it is unique per call, not
// per logical worker identity.
func CurrentThreadIndex() int {
	return int(atomic.AddInt64(&threadIndexSeq, 1))
}

var arenaNameSeq int64

func generateArenaName() string {
	return "arena-" + strconv.FormatInt(atomic.AddInt64(&arenaNameSeq, 1), 10)
}

// Arena is a fixed-size group of worker goroutines plus the priority-lane
// stream and permit-manager registration backing it.
type Arena struct {
	control *runtime.Control
}

// NewArena creates an arena with up to maxConcurrency slots, of which
// reservedForMasters are never handed to background workers, leaving them
// free for a blocking Execute caller to occupy directly. At least one slot
// is always left to workers, so at most maxConcurrency-1 slots are
// reserved; with maxConcurrency 1 the single slot is shared by both kinds
// of caller. Registers against
// the process-wide permit manager at priority; the manager itself is a
// ref-counted process-wide singleton acquired here and released by Close.
func NewArena(maxConcurrency, reservedForMasters int, priority Priority) *Arena {
	manager := runtime.AcquireGlobalManager()
	workerCapacity := maxConcurrency - reservedForMasters
	if workerCapacity < 1 {
		workerCapacity = 1
	}
	ctl := runtime.NewControl(manager, generateArenaName(), maxConcurrency, workerCapacity, int32(priority))
	ctl.RegisterPublicReference()
	return &Arena{control: ctl}
}

// Execute runs body and blocks the calling goroutine until it (and
// anything it transitively spawns via SpawnAndWaitForAll) completes.
func (a *Arena) Execute(body task.Func) error {
	return a.control.Execute(nil, "arena-execute", body)
}

// Enqueue schedules body for fire-and-forget execution, optionally
// overriding the arena's default priority for this one task (the first
// element of priority, if given).
func (a *Arena) Enqueue(body task.Func, priority ...Priority) {
	ctx := a.control.RootContext()
	if len(priority) > 0 {
		ctx = ctx.NewChild()
		ctx.SetPriority(int32(priority[0]))
	}
	a.control.Enqueue(ctx, "arena-enqueue", body)
}

// RootContext returns the task group context new top-level work belongs to
// by default.
func (a *Arena) RootContext() *task.GroupContext {
	return a.control.RootContext()
}

// NewChildContext creates an independently-cancellable task group context
// nested under the arena's root.
func (a *Arena) NewChildContext() *task.GroupContext {
	return a.control.NewChildContext()
}

// Stats returns the arena's bound Prometheus collectors.
func (a *Arena) Stats() *metrics.ArenaStats {
	return a.control.Stats()
}

// SetIdleBackoff bounds how long a parked background worker sleeps before
// waking on its own to re-check for work, in addition to the sleep
// monitor's explicit wake-up. A blocking Execute caller never parks, so
// the backoff does not apply to it. Zero disables the backoff.
func (a *Arena) SetIdleBackoff(d time.Duration) {
	a.control.SetIdleBackoff(d)
}

// Close stops the arena's dispatcher and releases its share of the
// process-wide permit manager. It never returns an error: when called from
// within one of the arena's own running task bodies the stop is refused
// and the arena keeps running, but Close still releases its share of the
// manager. Callers who need to detect that misuse should use CloseBlocking
// instead.
func (a *Arena) Close() {
	_ = a.control.UnregisterPublicReference(true)
	runtime.ReleaseGlobalManager()
}

// CloseBlocking is Close, but returns rterror.ErrBlockingSchInit instead
// of silently ignoring the refusal when called from a goroutine that is
// itself currently running a task body under this arena — e.g. a task that
// holds a reference to its own arena and tries to shut it down from within
// itself. On error, the arena is left running and keeps its share of the
// permit manager; the caller must arrange
// for Close/CloseBlocking to be called from outside the task tree
// instead.
func (a *Arena) CloseBlocking() error {
	if err := a.control.UnregisterPublicReference(true); err != nil {
		return err
	}
	runtime.ReleaseGlobalManager()
	return nil
}

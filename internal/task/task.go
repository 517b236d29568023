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

// Package task defines the unit of schedulable work and the vertices
// that gate its completion. It intentionally has no dependency on the
// dispatch/arena packages: task bodies reach back into the scheduler only
// through the Context interface they are handed at execution time, which
// is implemented by the dispatch package. That inversion is what lets a
// Task be constructed and spawned without importing the scheduler core.
package task

import (
	"time"

	"go.uber.org/atomic"

	taskctx "github.com/lindb/ptask/internal/context"
)

// Func is the body of a task. ctx exposes the spawn/wait surface the body
// needs; a leaf task that does no further spawning can ignore it.
type Func func(ctx Context) error

// Context is the capability handed to a running task body. It is
// implemented by the dispatch package's per-goroutine loop.
type Context interface {
	// Spawn schedules child for execution without waiting for it. Returns
	// rterror.ErrMissingWait if the calling goroutine has no arena slot
	// attached to spawn into.
	Spawn(child *Task) error
	// SpawnAndWaitForAll schedules every task in children and blocks the
	// calling task body until all of them have completed. Returns
	// rterror.ErrImproperLock if children includes the task that is itself
	// currently running this call, since waiting on one's own completion
	// can never be satisfied.
	SpawnAndWaitForAll(children ...*Task) error
	// Group returns the task group context the currently running task
	// belongs to.
	Group() *taskctx.GroupContext
	// Isolation returns the isolation tag of the currently running task,
	// used to fence nested waits against unrelated steals.
	Isolation() uint64
}

// WaitVertex is anything a Task's completion can release a reservation
// into: a Counter anchoring an external wait, a ContinuationVertex gating
// a predecessor join, or a *Task itself acting as the anchor for children
// it spawned under its own SpawnAndWaitForAll.
type WaitVertex interface {
	// release drops one outstanding reservation. If that brings the
	// vertex to its completion threshold, and the vertex wraps a task
	// that should now be scheduled (a ContinuationVertex), release
	// reports became=true and returns that task.
	release() (readyTask *Task, became bool)
	// reserve records one more pending completion the vertex must wait
	// for.
	reserve()
}

// Task is a single schedulable unit of work.
type Task struct {
	Body Func
	Ctx  *taskctx.GroupContext
	Name string

	// Affinity pins a task to a specific arena slot's mailbox; zero means
	// no affinity (the task is enqueued into the plain priority stream).
	Affinity uint32

	// Isolation tags t with the nested-wait scope it was spawned under, if
	// any (0 means none). A thread blocked in a nested SpawnAndWaitForAll
	// only steals or stream-pops tasks whose Isolation is 0 or matches its
	// own, so it never runs work belonging to an unrelated isolated
	// region while waiting.
	Isolation uint64

	// CreatedAt is used only for scheduling-latency metrics.
	CreatedAt time.Time

	// parent is where t's completion is reported: nil for a detached
	// fire-and-forget spawn, a *Counter for an external wait, a
	// *ContinuationVertex when t is a predecessor in a join, or a *Task
	// when t was bound as a child of that task's nested wait.
	parent WaitVertex

	// childRefs anchors children spawned from within t's own body via a
	// nested SpawnAndWaitForAll(t as the wait target). It starts at 1 (a
	// permanent placeholder representing "the wait is still open") and is
	// incremented once per such child and decremented as each finishes;
	// the nested wait is satisfied once it drops back to 1.
	childRefs atomic.Int32
}

// New creates a task with no release target: spawning it schedules the
// body but nothing is notified of its completion beyond whatever nested
// wait the spawning task itself is blocked on.
func New(name string, ctx *taskctx.GroupContext, body Func) *Task {
	t := &Task{
		Name:      name,
		Ctx:       ctx,
		Body:      body,
		CreatedAt: time.Now(),
	}
	t.childRefs.Store(1)
	return t
}

// NewDeferred creates a task meant to be wired into a continuation chain
// via Handle.AddPredecessor before it is ever spawned.
func NewDeferred(name string, ctx *taskctx.GroupContext, body Func) *Task {
	return New(name, ctx, body)
}

// setParent attaches v as t's release target and reserves t's slot in it.
// Must only be called before t is spawned.
func (t *Task) setParent(v WaitVertex) {
	t.parent = v
	if v != nil {
		v.reserve()
	}
}

// BindChild attaches child's completion to t's own nested-wait anchor: t
// must be the task currently executing a SpawnAndWaitForAll, and child
// must not yet have been spawned.
func (t *Task) BindChild(child *Task) {
	child.setParent(t)
}

// reserve registers one more child anchored on t's own nested wait.
func (t *Task) reserve() {
	t.childRefs.Inc()
}

// release drops one reservation from t's nested-wait anchor. A *Task used
// this way is never itself re-scheduled by release (it is already running,
// blocked inside its own dispatch loop), so became is always false; the
// wait loop instead polls Done.
func (t *Task) release() (*Task, bool) {
	t.childRefs.Dec()
	return nil, false
}

// Done reports whether every child anchored on t's nested wait has
// finished.
func (t *Task) Done() bool {
	return t.childRefs.Load() <= 1
}

// Finish releases t's own completion into its parent vertex, if any. Must
// only be called by the dispatch loop, after t.Body has returned and any
// nested wait inside it has already drained (SpawnAndWaitForAll blocks
// until that is true, so by the time Body returns childRefs is already
// back at its baseline of 1).
func (t *Task) Finish() (readyTask *Task, became bool) {
	if t.parent == nil {
		return nil, false
	}
	return t.parent.release()
}

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

// Package runtime is the top of the dependency graph: it wires an arena,
// a permit client, a dispatcher, and a sleep monitor together (the
// construction each of those packages' own code leaves to whoever
// assembles them, via the setter-injection points they expose) and
// exposes the blocking and fire-and-forget entry points user code calls.
// Grounded on cmd/lind/standalone.go's top-level lifecycle wiring.
package runtime

import (
	"sync"
	"time"

	"github.com/lindb/common/pkg/logger"

	taskctx "github.com/lindb/ptask/internal/context"
	"github.com/lindb/ptask/internal/dispatch"
	"github.com/lindb/ptask/internal/dispatcher"
	"github.com/lindb/ptask/internal/metrics"
	"github.com/lindb/ptask/internal/monitor"
	"github.com/lindb/ptask/internal/permit"
	"github.com/lindb/ptask/internal/rterror"
	"github.com/lindb/ptask/internal/task"

	"github.com/lindb/ptask/internal/arena"
)

// Control owns one arena's full wiring: the arena itself, its permit
// registration, its dispatcher, and its sleep monitor.
type Control struct {
	name    string
	arena   *arena.Arena
	client  *permit.Client
	disp    *dispatcher.Dispatcher
	sleep   *monitor.Monitor
	stats   *metrics.ArenaStats
	stopped bool

	observers observerList

	// refMu guards publicRefs and activeGoroutines, the bookkeeping
	// UnregisterPublicReference needs to refuse a blocking termination
	// request made from a goroutine that is itself currently running one
	// of this Control's task bodies (it would have to wait for its own
	// completion).
	refMu            sync.Mutex
	publicRefs       int
	activeGoroutines map[uint64]int

	idleBackoff time.Duration

	logger logger.Logger
}

// SetIdleBackoff bounds how long a parked background worker sleeps before
// waking on its own to re-scan for work, as a safety net alongside the
// sleep monitor's explicit Notify. The blocking Execute caller never parks
// (it yields between scans), so the backoff does not apply to it. Zero
// (the default) disables it.
func (c *Control) SetIdleBackoff(d time.Duration) {
	c.idleBackoff = d
}

// NewControl creates and fully wires an arena named name with maxConcurrency
// slots, of which only workerCapacity may ever be occupied by
// dispatcher-started background workers — the remainder stay free for a
// blocking Execute caller to occupy directly, the public API's "reserved
// for masters" seats. Registered against manager at the given priority
// (arena.NumPriorityLevels lanes, clamped like the task stream's).
func NewControl(manager *permit.Manager, name string, maxConcurrency, workerCapacity int, priority int32) *Control {
	root := taskctx.NewRoot(priority)
	a := arena.New(name, maxConcurrency, root)
	a.SetWorkerCapacity(workerCapacity)
	sleep := monitor.New()
	a.SetSleepMonitor(sleep)
	stats := metrics.NewArenaStats(name)

	client := manager.Register(priority)
	a.SetClient(client)

	disp := dispatcher.New()
	client.SetProcessor(disp)

	ctl := &Control{
		name:             name,
		arena:            a,
		client:           client,
		disp:             disp,
		sleep:            sleep,
		stats:            stats,
		activeGoroutines: make(map[uint64]int),
		logger:           logger.GetLogger("Runtime", name),
	}

	disp.Register(client, func(stop <-chan struct{}) {
		slot, err := a.OccupyFreeSlot(false)
		if err != nil {
			return
		}
		ctl.observers.fireEntry(true)
		defer ctl.observers.fireExit(true)

		ctl.enterGoroutine()
		defer ctl.leaveGoroutine()

		loop := dispatch.NewLoop(a, slot, sleep, stats)
		loop.SetIdleBackoff(ctl.idleBackoff)
		loop.Run(stop)
	})

	return ctl
}

// enterGoroutine marks the calling goroutine as currently driving one of
// this Control's dispatch loops, so a later blocking
// UnregisterPublicReference call made from the same goroutine (e.g. from
// inside a task body that holds a reference back to this Control) can be
// refused instead of deadlocking.
func (c *Control) enterGoroutine() {
	id := currentGoroutineID()
	c.refMu.Lock()
	c.activeGoroutines[id]++
	c.refMu.Unlock()
}

func (c *Control) leaveGoroutine() {
	id := currentGoroutineID()
	c.refMu.Lock()
	if n := c.activeGoroutines[id]; n <= 1 {
		delete(c.activeGoroutines, id)
	} else {
		c.activeGoroutines[id] = n - 1
	}
	c.refMu.Unlock()
}

func (c *Control) isActiveGoroutine(id uint64) bool {
	c.refMu.Lock()
	defer c.refMu.Unlock()
	return c.activeGoroutines[id] > 0
}

// RegisterPublicReference records one more caller holding this Control
// open, mirroring oneTBB's task_scheduler_handle reference count. Must be
// matched by UnregisterPublicReference; the Control is only actually
// stopped once every registered reference has been released.
func (c *Control) RegisterPublicReference() {
	c.refMu.Lock()
	c.publicRefs++
	c.refMu.Unlock()
}

// UnregisterPublicReference releases one public reference. If blocking is
// true and that was the last reference, it tears the Control down
// synchronously before returning — but first refuses with
// rterror.ErrBlockingSchInit if the calling goroutine is itself one of the
// goroutines currently running a task body under this Control, since
// waiting for that body to finish from inside itself can never complete.
// A non-blocking release (blocking == false) only decrements the count;
// the caller is responsible for an eventual blocking call or explicit
// Stop to actually reclaim resources.
func (c *Control) UnregisterPublicReference(blocking bool) error {
	if blocking && c.isActiveGoroutine(currentGoroutineID()) {
		return rterror.ErrBlockingSchInit
	}

	c.refMu.Lock()
	if c.publicRefs > 0 {
		c.publicRefs--
	}
	remaining := c.publicRefs
	c.refMu.Unlock()

	if blocking && remaining == 0 {
		c.Stop()
	}
	return nil
}

// RootContext returns the arena's default task group context: the
// context new top-level tasks belong to if the caller does not create
// its own.
func (c *Control) RootContext() *taskctx.GroupContext {
	return c.arena.DefaultContext()
}

// NewChildContext creates a task group context nested under the arena's
// root, for callers that want independent cancellation/exception scope.
func (c *Control) NewChildContext() *taskctx.GroupContext {
	return c.arena.DefaultContext().NewChild()
}

// Enqueue schedules body for execution without blocking the caller. The
// arena advertises mandatory concurrency for it, so it still runs even at
// a soft concurrency limit of zero.
func (c *Control) Enqueue(ctx *taskctx.GroupContext, name string, body task.Func) {
	if ctx == nil {
		ctx = c.arena.DefaultContext()
	}
	c.arena.Enqueue(task.New(name, ctx, body))
}

// Execute runs body and blocks the calling goroutine until it (and
// anything it transitively spawns under SpawnAndWaitForAll) completes.
// The calling goroutine temporarily occupies an arena slot and
// participates as a worker for the duration, the same role the source's
// initial thread plays when it calls wait_for_all — if no slot is free,
// ErrOutOfArena is returned instead of blocking forever.
func (c *Control) Execute(ctx *taskctx.GroupContext, name string, body task.Func) error {
	if ctx == nil {
		ctx = c.arena.DefaultContext()
	}
	slot, err := c.arena.OccupyFreeSlot(true)
	if err != nil {
		return err
	}
	defer c.arena.OnThreadLeaving(slot)

	c.observers.fireEntry(false)
	defer c.observers.fireExit(false)

	c.enterGoroutine()
	defer c.leaveGoroutine()

	loop := dispatch.NewLoop(c.arena, slot, c.sleep, c.stats)
	loop.SetIdleBackoff(c.idleBackoff)
	counter := task.NewCounter(0)
	t := task.New(name, ctx, body)
	counter.BindChild(t)

	loop.SpawnInitial(t)
	loop.WaitForCounter(counter, 0)

	if ctx.IsCancelled() {
		if cause := ctx.Exception(); cause != nil {
			return cause
		}
		return rterror.ErrCancelled
	}
	return nil
}

// Stats returns the arena's bound metrics collectors.
func (c *Control) Stats() *metrics.ArenaStats {
	return c.stats
}

// Stop tears down the arena's dispatcher, stopping every live worker
// goroutine. Idempotent.
func (c *Control) Stop() {
	if c.stopped {
		return
	}
	c.stopped = true
	c.disp.Stop()
	c.sleep.AbortAll()
}

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

// Package dispatch implements the worker-goroutine body: the five-source
// loop (affinity mailbox, own local deque, the arena's priority stream,
// stealing from another slot, parking asleep) that the teacher's own
// worker.process() select loop generalizes into, and the task.Context
// implementation task bodies use to spawn and wait for children.
package dispatch

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/lindb/common/pkg/logger"

	"github.com/lindb/ptask/internal/arena"
	"github.com/lindb/ptask/internal/metrics"
	"github.com/lindb/ptask/internal/monitor"
	"github.com/lindb/ptask/internal/rterror"
	"github.com/lindb/ptask/internal/task"
)

var isolationSeq uint64

func nextIsolation() uint64 {
	return atomic.AddUint64(&isolationSeq, 1)
}

// Loop drives one worker goroutine occupying one arena slot.
type Loop struct {
	arena *arena.Arena
	slot  *arena.Slot
	sleep *monitor.Monitor
	stats *metrics.ArenaStats

	current   *task.Task
	isolation uint64

	// idleBackoff, if non-zero, bounds how long a parked worker sleeps
	// before it wakes on its own and re-scans for work, as a safety net
	// against a missed wake-up notification rather than its primary wake
	// path (which remains the sleep monitor's explicit Notify). Zero
	// (the default) disables the backoff: the worker only wakes on an
	// explicit notification or stop.
	idleBackoff time.Duration

	logger logger.Logger
}

// SetIdleBackoff configures the idle re-scan safety net described above.
func (l *Loop) SetIdleBackoff(d time.Duration) {
	l.idleBackoff = d
}

// NewLoop creates a Loop bound to slot within a, parking on sleep when
// idle. stats may be nil, in which case metrics are simply not recorded.
func NewLoop(a *arena.Arena, slot *arena.Slot, sleep *monitor.Monitor, stats *metrics.ArenaStats) *Loop {
	return &Loop{
		arena:  a,
		slot:   slot,
		sleep:  sleep,
		stats:  stats,
		logger: logger.GetLogger("Dispatch", "Loop"),
	}
}

// Run is a dispatcher.WorkerFunc: it occupies the loop's slot for as long
// as stop stays open, then releases it.
func (l *Loop) Run(stop <-chan struct{}) {
	if l.stats != nil {
		l.stats.WorkerStarted()
		defer l.stats.WorkerStopped()
	}
	defer l.arena.OnThreadLeaving(l.slot)
	for {
		select {
		case <-stop:
			return
		default:
		}

		t, ok := l.nextTask()
		if !ok {
			if l.parkUntilWork(stop) {
				continue
			}
			return
		}
		l.execute(t)
	}
}

// nextTask tries, in order: this slot's own affinity mail, this slot's own
// local deque (cheapest, uncontended), the arena's shared priority stream,
// and finally stealing from another occupied slot.
func (l *Loop) nextTask() (*task.Task, bool) {
	if t, ok := l.slot.Mailbox.Pop(); ok {
		return t, true
	}
	if v, ok := l.slot.Deque.PopBottom(); ok {
		return v.(*task.Task), true
	}
	if t, ok := l.arena.GetStreamTask(); ok {
		return t, true
	}
	if t, ok := l.arena.StealTask(l.slot); ok {
		if l.stats != nil {
			l.stats.TaskStolen()
		}
		return t, true
	}
	return nil, false
}

func (l *Loop) nextTaskIsolated(iso uint64) (*task.Task, bool) {
	if t, ok := l.slot.Mailbox.Pop(); ok {
		return t, true
	}
	if v, ok := l.slot.Deque.PopBottom(); ok {
		return v.(*task.Task), true
	}
	if t, ok := l.arena.GetStreamTaskIsolated(iso); ok {
		return t, true
	}
	if t, ok := l.arena.StealTaskIsolated(l.slot, iso); ok {
		if l.stats != nil {
			l.stats.TaskStolen()
		}
		return t, true
	}
	return nil, false
}

// parkUntilWork registers on the sleep monitor and blocks until either
// new work is advertised for this arena or stop closes. Returns true if
// the caller should loop around and look for work again.
func (l *Loop) parkUntilWork(stop <-chan struct{}) bool {
	node := l.sleep.PrepareWait(l.arena)
	if !l.arena.IsOutOfWork() {
		l.sleep.CancelWait(node)
		return true
	}
	// The arena has nothing left for anyone; withdraw this arena's
	// mandatory-concurrency demand (a no-op if it was never asserted), so
	// the worker this enqueue pulled in can be retired by the dispatcher
	// instead of lingering asleep forever.
	l.arena.SetMandatory(false)

	if l.idleBackoff > 0 {
		timer := time.NewTimer(l.idleBackoff)
		defer timer.Stop()
		select {
		case <-stop:
			l.sleep.CancelWait(node)
			return false
		case <-node.Chan():
			return true
		case <-timer.C:
			l.sleep.CancelWait(node)
			return true
		}
	}

	select {
	case <-stop:
		l.sleep.CancelWait(node)
		return false
	case <-node.Chan():
		return true
	}
}

func (l *Loop) execute(t *task.Task) {
	if t.Ctx != nil && t.Ctx.IsCancelled() {
		l.release(t)
		return
	}

	prevCurrent := l.current
	l.current = t

	startedAt := time.Now()
	ctx := &taskContext{loop: l, task: t}
	err := l.runBody(ctx, t)
	if l.stats != nil {
		l.stats.TaskExecuted(t.CreatedAt, startedAt)
	}
	if err != nil && t.Ctx != nil {
		if !t.Ctx.TrySetException(err) {
			l.logger.Warn("task failed after its group already has a recorded exception",
				logger.String("task", t.Name), logger.Error(err),
				logger.String("allExceptions", t.Ctx.AllExceptions().Error()))
		}
	}

	l.current = prevCurrent
	l.release(t)
}

func (l *Loop) runBody(ctx task.Context, t *task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rterror.FromRecover(r)
			if l.stats != nil {
				l.stats.TaskPanicked()
			}
			l.logger.Error("panic when execute task",
				logger.String("task", t.Name), logger.Error(err), logger.Stack())
		}
	}()
	return t.Body(ctx)
}

func (l *Loop) release(t *task.Task) {
	ready, became := t.Finish()
	if became && ready != nil {
		l.spawn(ready)
	}
}

// spawn makes child runnable: local push for the common, non-affinitized
// case (cheapest, no contention with the arena's shared structures), or a
// hand-off through the arena for an affinitized spawn.
func (l *Loop) spawn(child *task.Task) {
	if child.Affinity == 0 {
		l.slot.Deque.PushBottom(child)
		l.arena.AdvertiseNewWork()
		return
	}
	l.arena.Enqueue(child)
}

// SpawnInitial schedules t the same way a running task's Spawn call
// would. For use by a caller that is not itself executing inside a task
// body — the top-level blocking entry point.
func (l *Loop) SpawnInitial(t *task.Task) {
	l.spawn(t)
}

// WaitForCounter drives this goroutine's dispatch loop, executing
// whatever work it finds, until c is done. iso == 0 means the caller is
// the outermost blocking entry point and may run any task it finds,
// isolation-tagged or not.
func (l *Loop) WaitForCounter(c *task.Counter, iso uint64) {
	prevIsolation := l.isolation
	l.isolation = iso
	for !c.Done() {
		t, ok := l.nextTaskIsolated(iso)
		if !ok {
			runtime.Gosched()
			continue
		}
		l.execute(t)
	}
	l.isolation = prevIsolation
}

// waitForSelf is the nested dispatch loop SpawnAndWaitForAll blocks in:
// it keeps executing tasks tagged with iso (or untagged, global ones)
// until anchor's own nested-wait count drains back to its baseline.
func (l *Loop) waitForSelf(anchor *task.Task, iso uint64) {
	for !anchor.Done() {
		t, ok := l.nextTaskIsolated(iso)
		if !ok {
			runtime.Gosched()
			continue
		}
		l.execute(t)
	}
}

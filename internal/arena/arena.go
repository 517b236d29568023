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

// Package arena implements the per-arena slot table and task stream: the
// structure a fixed-size group of worker goroutines attaches to, generalized
// from the teacher's workerPool/worker pair (internal/concurrent/pool.go)
// into an N-slot table with a priority-lane FIFO stream and work-stealing
// deques, rather than one shared tasks channel.
package arena

import (
	"go.uber.org/atomic"

	"github.com/lindb/common/pkg/logger"

	taskctx "github.com/lindb/ptask/internal/context"
	"github.com/lindb/ptask/internal/monitor"
	"github.com/lindb/ptask/internal/rterror"
	"github.com/lindb/ptask/internal/task"
)

const externalRefBits = 12
const externalRefMask = uint32(1<<externalRefBits - 1)

// refWord packs external-owner refcount (low 12 bits) and worker-thread
// refcount (remaining bits) into one atomic word, following the source
// arena's bit-packed ref_count layout rather than two separate ints, so a
// single CAS can never observe a torn read between the two halves.
type refWord struct {
	v atomic.Uint32
}

func (r *refWord) incExternal() {
	for {
		old := r.v.Load()
		next := old + 1
		if r.v.CAS(old, next) {
			return
		}
	}
}

func (r *refWord) decExternal() uint32 {
	for {
		old := r.v.Load()
		next := old - 1
		if r.v.CAS(old, next) {
			return next & externalRefMask
		}
	}
}

func (r *refWord) incWorker() {
	for {
		old := r.v.Load()
		next := old + (1 << externalRefBits)
		if r.v.CAS(old, next) {
			return
		}
	}
}

func (r *refWord) decWorker() uint32 {
	for {
		old := r.v.Load()
		next := old - (1 << externalRefBits)
		if r.v.CAS(old, next) {
			return next >> externalRefBits
		}
	}
}

func (r *refWord) external() uint32 {
	return r.v.Load() & externalRefMask
}

func (r *refWord) worker() uint32 {
	return r.v.Load() >> externalRefBits
}

//go:generate mockgen -source=./arena.go -destination=./arena_mock.go -package=arena

// Client is the arena's outward-facing view of its registration with a
// permit manager. Defined here (rather than importing internal/permit
// directly) so arena has no dependency on the permit package; the
// concrete *permit.Client satisfies it structurally, wired in by
// internal/runtime after both are constructed.
type Client interface {
	// UpdateRequest reports the arena's current concurrency demand: at
	// least minWorkers are useful, at most maxWorkers can be used.
	UpdateRequest(minWorkers, maxWorkers int)
	// RequestMandatory asks for at least one worker even under a soft
	// limit of zero, because the arena has enqueued work with nobody
	// attached to run it.
	RequestMandatory(active bool)
}

// Arena is a fixed-size table of worker slots sharing one task stream.
type Arena struct {
	name           string
	maxConcurrency int
	workerCapacity int
	slots          []*Slot
	stream         *Stream
	defaultCtx     *taskctx.GroupContext
	refs           refWord
	abaEpoch       atomic.Uint64
	mandatory      atomic.Bool

	client       Client
	sleepMonitor *monitor.Monitor

	logger logger.Logger
}

// New creates an arena with maxConcurrency slots, all initially free.
func New(name string, maxConcurrency int, defaultCtx *taskctx.GroupContext) *Arena {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	a := &Arena{
		name:           name,
		maxConcurrency: maxConcurrency,
		workerCapacity: maxConcurrency,
		slots:          make([]*Slot, maxConcurrency),
		stream:         NewStream(),
		defaultCtx:     defaultCtx,
		logger:         logger.GetLogger("Arena", name),
	}
	for i := range a.slots {
		a.slots[i] = newSlot(i)
	}
	return a
}

// SetWorkerCapacity caps how many of the arena's slots the permit manager
// may hand to background workers, leaving maxConcurrency-n slots free for
// callers that occupy a slot directly via OccupyFreeSlot (the public API's
// "reserved for masters" seats). Must be called before the arena starts
// advertising work; 0 < n <= maxConcurrency, clamped otherwise.
func (a *Arena) SetWorkerCapacity(n int) {
	if n < 1 {
		n = 1
	}
	if n > a.maxConcurrency {
		n = a.maxConcurrency
	}
	a.workerCapacity = n
}

// SetClient wires the arena to its permit-manager registration. Must be
// called once before the arena is used; internal/runtime does this right
// after constructing both.
func (a *Arena) SetClient(c Client) {
	a.client = c
}

// SetSleepMonitor wires the arena to the dispatcher's sleep queue, so
// AdvertiseNewWork can target exactly the workers parked on this arena.
func (a *Arena) SetSleepMonitor(m *monitor.Monitor) {
	a.sleepMonitor = m
}

// MaxConcurrency returns the number of slots in the arena.
func (a *Arena) MaxConcurrency() int {
	return a.maxConcurrency
}

// DefaultContext returns the task group context new top-level tasks
// enqueued into this arena without an explicit context inherit.
func (a *Arena) DefaultContext() *taskctx.GroupContext {
	return a.defaultCtx
}

// RefExternal records that an external owner (e.g. a pkg/taskarena handle
// held by user code) is keeping the arena alive.
func (a *Arena) RefExternal() {
	a.refs.incExternal()
}

// UnrefExternal drops one external reference, returning the remaining
// count so the caller can decide whether to tear the arena down.
func (a *Arena) UnrefExternal() uint32 {
	return a.refs.decExternal()
}

// reservedForExternal returns how many of the arena's low-indexed slots
// ([0, r)) are set aside for external callers (a blocking Execute) and
// never handed to a dispatcher-started background worker. The remaining
// slots, [r, maxConcurrency), are the workerCapacity range.
func (a *Arena) reservedForExternal() int {
	return a.maxConcurrency - a.workerCapacity
}

// OccupyFreeSlot claims the first unoccupied slot for a thread joining the
// arena. external distinguishes a blocking Execute caller, restricted to
// the reserved [0, r) range, from a dispatcher-started worker, restricted
// to [r, maxConcurrency) — so a background worker can never take a slot
// set aside for masters. When r is 0 (the default, no slots reserved),
// both ranges collapse to the full slot table.
func (a *Arena) OccupyFreeSlot(external bool) (*Slot, error) {
	r := a.reservedForExternal()
	lo, hi := 0, len(a.slots)
	if r > 0 {
		if external {
			hi = r
		} else {
			lo = r
		}
	}
	for i := lo; i < hi; i++ {
		if a.slots[i].tryOccupy() {
			a.refs.incWorker()
			return a.slots[i], nil
		}
	}
	return nil, rterror.ErrOutOfArena
}

// OnThreadLeaving releases slot back to the free pool, redirecting any
// mail still sitting in its affinity mailbox back into the general
// stream so it is not stranded.
func (a *Arena) OnThreadLeaving(slot *Slot) {
	for _, t := range slot.Mailbox.DrainUnclaimed() {
		a.stream.Push(t)
	}
	slot.vacate()
	a.refs.decWorker()
	a.AdvertiseNewWork()
}

// Enqueue schedules t for execution in this arena: into the target slot's
// mailbox if t carries affinity, otherwise into the general stream.
func (a *Arena) Enqueue(t *task.Task) {
	if t.Affinity != 0 {
		idx := int(t.Affinity) % len(a.slots)
		a.slots[idx].Mailbox.Push(t)
	} else {
		a.stream.Push(t)
	}
	a.AdvertiseNewWork()
}

// AdvertiseNewWork notifies both the permit manager (demand has grown, in
// case more workers should be let in) and any workers parked asleep on
// this arena specifically.
func (a *Arena) AdvertiseNewWork() {
	a.abaEpoch.Add(1)
	if a.client != nil {
		a.client.UpdateRequest(1, a.workerCapacity)
		if a.refs.worker() == 0 {
			a.SetMandatory(true)
		}
	}
	if a.sleepMonitor != nil {
		a.sleepMonitor.NotifyPredicate(func(tag any) bool {
			owner, ok := tag.(*Arena)
			return ok && owner == a
		})
	}
}

// IsOutOfWork reports whether the general stream and every slot's mailbox
// currently have nothing to offer. A scheduling hint only: by the time the
// caller acts on it, another goroutine may already have pushed more work.
func (a *Arena) IsOutOfWork() bool {
	if !a.stream.Empty() {
		return false
	}
	for _, s := range a.slots {
		if !s.Mailbox.Empty() {
			return false
		}
	}
	return true
}

// GetStreamTask pops the next task from the general priority stream.
func (a *Arena) GetStreamTask() (*task.Task, bool) {
	return a.stream.Pop()
}

// isolationEligible reports whether t may run under isolation scope iso.
// iso == 0 means the caller (typically the outermost, non-nested blocking
// entry point) is not isolation-constrained at all and may run anything;
// otherwise t is eligible if it is untagged (global) or tagged with
// exactly iso.
func isolationEligible(t *task.Task, iso uint64) bool {
	if iso == 0 {
		return true
	}
	return t.Isolation == 0 || t.Isolation == iso
}

// GetStreamTaskIsolated is like GetStreamTask but skips tasks tagged with
// an isolation token other than iso, for use by a thread blocked in a
// nested wait.
func (a *Arena) GetStreamTaskIsolated(iso uint64) (*task.Task, bool) {
	return a.stream.PopMatching(func(t *task.Task) bool { return isolationEligible(t, iso) })
}

// StealTask attempts to steal one task from another slot's local deque,
// scanning starting just after thief's own index so repeated steals by
// different thieves spread out round-robin rather than hammering slot 0.
func (a *Arena) StealTask(thief *Slot) (*task.Task, bool) {
	n := len(a.slots)
	for i := 1; i < n; i++ {
		victim := a.slots[(thief.Index+i)%n]
		if victim == thief || !victim.Occupied() {
			continue
		}
		if v, ok := victim.Deque.Steal(); ok {
			return v.(*task.Task), true
		}
	}
	return nil, false
}

// StealTaskIsolated is like StealTask but only accepts a stolen task if it
// passes isolationEligible; an ineligible steal is pushed back onto the
// general stream instead of being discarded, since a Chase-Lev steal
// cannot be undone once committed. Used by a thread blocked in a nested
// wait so it never executes work from an unrelated isolated region.
func (a *Arena) StealTaskIsolated(thief *Slot, iso uint64) (*task.Task, bool) {
	n := len(a.slots)
	for i := 1; i < n; i++ {
		victim := a.slots[(thief.Index+i)%n]
		if victim == thief || !victim.Occupied() {
			continue
		}
		v, ok := victim.Deque.Steal()
		if !ok {
			continue
		}
		t := v.(*task.Task)
		if isolationEligible(t, iso) {
			return t, true
		}
		a.stream.Push(t)
	}
	return nil, false
}

// ABAEpoch returns the arena's work-advertisement epoch, bumped every time
// new work is enqueued. No scheduler path reads it; it is exposed for
// diagnostics.
func (a *Arena) ABAEpoch() uint64 {
	return a.abaEpoch.Load()
}

// SetMandatory toggles whether this arena requires at least one worker
// even when the permit manager's soft limit is zero, because enqueued
// work has nobody attached to run it (spec's "mandatory concurrency").
func (a *Arena) SetMandatory(active bool) {
	if a.mandatory.Swap(active) == active {
		return
	}
	if a.client != nil {
		a.client.RequestMandatory(active)
	}
}

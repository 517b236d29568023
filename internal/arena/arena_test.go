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

package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"

	taskctx "github.com/lindb/ptask/internal/context"
	"github.com/lindb/ptask/internal/task"
)

type fakeClient struct {
	minWorkers, maxWorkers int
	mandatory              bool
	updateCalls            int
}

func (f *fakeClient) UpdateRequest(minWorkers, maxWorkers int) {
	f.minWorkers, f.maxWorkers = minWorkers, maxWorkers
	f.updateCalls++
}

func (f *fakeClient) RequestMandatory(active bool) {
	f.mandatory = active
}

func TestArena_OccupyFreeSlotExhaustion(t *testing.T) {
	a := New("t", 2, taskctx.NewRoot(0))

	s1, err := a.OccupyFreeSlot(false)
	assert.NoError(t, err)
	s2, err := a.OccupyFreeSlot(false)
	assert.NoError(t, err)
	assert.NotEqual(t, s1.Index, s2.Index)

	// case: a third caller finds the arena full
	_, err = a.OccupyFreeSlot(false)
	assert.Error(t, err)

	a.OnThreadLeaving(s1)
	s3, err := a.OccupyFreeSlot(false)
	assert.NoError(t, err)
	assert.Equal(t, s1.Index, s3.Index)
}

// Regression: a dispatcher-started worker must never be able to occupy a
// slot reserved for an external (blocking Execute) caller, even though
// both kinds of caller share the same slot table.
func TestArena_OccupyFreeSlotEnforcesReservedRangeByIndex(t *testing.T) {
	a := New("t", 3, taskctx.NewRoot(0))
	a.SetWorkerCapacity(2) // reserves slot 0 for external callers

	for i := 0; i < 2; i++ {
		s, err := a.OccupyFreeSlot(false)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, s.Index, 1, "worker must not land on the reserved external slot")
	}
	_, err := a.OccupyFreeSlot(false)
	assert.Error(t, err, "worker capacity is exhausted even though slot 0 is still free")

	s, err := a.OccupyFreeSlot(true)
	assert.NoError(t, err)
	assert.Equal(t, 0, s.Index)

	_, err = a.OccupyFreeSlot(true)
	assert.Error(t, err, "only one slot is reserved for external callers")
}

func TestArena_SetWorkerCapacityClamps(t *testing.T) {
	a := New("t", 4, taskctx.NewRoot(0))
	a.SetWorkerCapacity(0)
	assert.Equal(t, 1, a.workerCapacity)

	a.SetWorkerCapacity(100)
	assert.Equal(t, 4, a.workerCapacity)

	a.SetWorkerCapacity(2)
	assert.Equal(t, 2, a.workerCapacity)
}

func TestArena_AdvertiseNewWorkReportsWorkerCapacityNotFullSlotCount(t *testing.T) {
	a := New("t", 4, taskctx.NewRoot(0))
	a.SetWorkerCapacity(2)
	fc := &fakeClient{}
	a.SetClient(fc)

	a.Enqueue(task.New("x", a.DefaultContext(), nil))
	assert.Equal(t, 2, fc.maxWorkers)
}

func TestArena_EnqueueWithAffinityGoesToSlotMailbox(t *testing.T) {
	a := New("t", 4, taskctx.NewRoot(0))
	tt := task.New("affined", a.DefaultContext(), nil)
	tt.Affinity = 1

	a.Enqueue(tt)
	assert.True(t, a.stream.Empty())
	claimed, ok := a.slots[1].Mailbox.Pop()
	assert.True(t, ok)
	assert.Same(t, tt, claimed)
}

func TestArena_EnqueueWithoutAffinityGoesToStream(t *testing.T) {
	a := New("t", 4, taskctx.NewRoot(0))
	tt := task.New("plain", a.DefaultContext(), nil)
	a.Enqueue(tt)

	got, ok := a.GetStreamTask()
	assert.True(t, ok)
	assert.Same(t, tt, got)
}

func TestArena_StealTaskSkipsUnoccupiedAndOwnSlot(t *testing.T) {
	a := New("t", 3, taskctx.NewRoot(0))
	thief, err := a.OccupyFreeSlot(false)
	assert.NoError(t, err)
	victim, err := a.OccupyFreeSlot(false)
	assert.NoError(t, err)

	tt := task.New("stealable", a.DefaultContext(), nil)
	victim.Deque.PushBottom(tt)

	got, ok := a.StealTask(thief)
	assert.True(t, ok)
	assert.Same(t, tt, got)
}

func TestArena_StealTaskIsolatedRequeuesIneligibleSteal(t *testing.T) {
	a := New("t", 2, taskctx.NewRoot(0))
	thief, _ := a.OccupyFreeSlot(false)
	victim, _ := a.OccupyFreeSlot(false)

	foreign := task.New("foreign", a.DefaultContext(), nil)
	foreign.Isolation = 99
	victim.Deque.PushBottom(foreign)

	_, ok := a.StealTaskIsolated(thief, 1)
	assert.False(t, ok)

	// case: the ineligible task was pushed back onto the general stream,
	// not lost, since a Chase-Lev steal can't be undone once committed
	got, ok := a.GetStreamTask()
	assert.True(t, ok)
	assert.Same(t, foreign, got)
}

func TestArena_IsOutOfWork(t *testing.T) {
	a := New("t", 2, taskctx.NewRoot(0))
	assert.True(t, a.IsOutOfWork())
	a.Enqueue(task.New("x", a.DefaultContext(), nil))
	assert.False(t, a.IsOutOfWork())
}

// Regression: AdvertiseNewWork must raise mandatory demand through
// SetMandatory, not by poking the client directly, or the arena's own
// mandatory flag falls out of sync with the client's and a later
// SetMandatory(false) becomes a silent no-op.
func TestArena_AdvertiseNewWorkWithNoWorkersRoutesThroughSetMandatory(t *testing.T) {
	a := New("t", 2, taskctx.NewRoot(0))
	fc := &fakeClient{}
	a.SetClient(fc)

	a.Enqueue(task.New("x", a.DefaultContext(), nil))
	assert.True(t, fc.mandatory)

	a.SetMandatory(false)
	assert.False(t, fc.mandatory)
}

func TestArena_SetMandatoryTogglesClientOnceOnChange(t *testing.T) {
	a := New("t", 2, taskctx.NewRoot(0))
	fc := &fakeClient{}
	a.SetClient(fc)

	a.SetMandatory(true)
	assert.True(t, fc.mandatory)

	fc.mandatory = false // reset to detect a spurious re-call
	a.SetMandatory(true)
	assert.False(t, fc.mandatory)

	a.SetMandatory(false)
	assert.False(t, fc.mandatory)
}

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

package dispatch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lindb/ptask/internal/arena"
	taskctx "github.com/lindb/ptask/internal/context"
	"github.com/lindb/ptask/internal/rterror"
	"github.com/lindb/ptask/internal/task"
)

func newSingleSlotLoop(t *testing.T) (*Loop, *arena.Arena) {
	t.Helper()
	a := arena.New("t", 1, taskctx.NewRoot(0))
	slot, err := a.OccupyFreeSlot(false)
	assert.NoError(t, err)
	return NewLoop(a, slot, nil, nil), a
}

func TestLoop_RunsASpawnedTaskToCompletion(t *testing.T) {
	loop, a := newSingleSlotLoop(t)
	ran := false
	tt := task.New("t", a.DefaultContext(), func(ctx task.Context) error {
		ran = true
		return nil
	})
	counter := task.NewCounter(0)
	counter.BindChild(tt)

	loop.SpawnInitial(tt)
	loop.WaitForCounter(counter, 0)
	assert.True(t, ran)
}

func TestLoop_NestedSpawnAndWaitForAllJoinsBeforeParentFinishes(t *testing.T) {
	loop, a := newSingleSlotLoop(t)
	var left, right bool
	var order []string

	parentBody := func(ctx task.Context) error {
		childA := task.New("a", ctx.Group(), func(task.Context) error {
			left = true
			order = append(order, "a")
			return nil
		})
		childB := task.New("b", ctx.Group(), func(task.Context) error {
			right = true
			order = append(order, "b")
			return nil
		})
		if err := ctx.SpawnAndWaitForAll(childA, childB); err != nil {
			return err
		}
		order = append(order, "parent-after-wait")
		return nil
	}
	parent := task.New("parent", a.DefaultContext(), parentBody)
	counter := task.NewCounter(0)
	counter.BindChild(parent)

	loop.SpawnInitial(parent)
	loop.WaitForCounter(counter, 0)

	assert.True(t, left)
	assert.True(t, right)
	assert.Equal(t, "parent-after-wait", order[len(order)-1])
}

func TestLoop_SpawnAndWaitForAllOnSelfReturnsImproperLock(t *testing.T) {
	loop, a := newSingleSlotLoop(t)
	var gotErr error

	var self *task.Task
	parentBody := func(ctx task.Context) error {
		gotErr = ctx.SpawnAndWaitForAll(self)
		return nil
	}
	self = task.New("self-waiter", a.DefaultContext(), parentBody)
	counter := task.NewCounter(0)
	counter.BindChild(self)

	loop.SpawnInitial(self)
	loop.WaitForCounter(counter, 0)

	assert.ErrorIs(t, gotErr, rterror.ErrImproperLock)
}

func TestLoop_TaskErrorRecordsGroupException(t *testing.T) {
	loop, a := newSingleSlotLoop(t)
	ctx := a.DefaultContext().NewChild()
	wantErr := fmt.Errorf("boom")

	tt := task.New("failing", ctx, func(task.Context) error { return wantErr })
	counter := task.NewCounter(0)
	counter.BindChild(tt)

	loop.SpawnInitial(tt)
	loop.WaitForCounter(counter, 0)

	assert.True(t, ctx.IsCancelled())
	assert.ErrorIs(t, ctx.Exception(), wantErr)
}

func TestLoop_PanicInTaskBodyIsRecoveredAsException(t *testing.T) {
	loop, a := newSingleSlotLoop(t)
	ctx := a.DefaultContext().NewChild()

	tt := task.New("panics", ctx, func(task.Context) error { panic("kaboom") })
	counter := task.NewCounter(0)
	counter.BindChild(tt)

	loop.SpawnInitial(tt)
	loop.WaitForCounter(counter, 0)

	assert.True(t, ctx.IsCancelled())
	assert.ErrorContains(t, ctx.Exception(), "kaboom")
}

func TestLoop_CancelledGroupSkipsExecutingQueuedTask(t *testing.T) {
	loop, a := newSingleSlotLoop(t)
	ctx := a.DefaultContext().NewChild()
	ctx.Cancel()

	ran := false
	tt := task.New("skip-me", ctx, func(task.Context) error {
		ran = true
		return nil
	})
	counter := task.NewCounter(0)
	counter.BindChild(tt)

	loop.SpawnInitial(tt)
	loop.WaitForCounter(counter, 0)

	assert.False(t, ran)
}

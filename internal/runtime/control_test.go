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

package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/atomic"

	"github.com/lindb/ptask/internal/permit"
	"github.com/lindb/ptask/internal/rterror"
	"github.com/lindb/ptask/internal/task"
)

// fibBody recursively computes fib(n) through Execute/SpawnAndWaitForAll,
// the same shape the public demo CLI drives through pkg/taskarena.
func fibBody(n int, out *int64) task.Func {
	return func(ctx task.Context) error {
		if n < 2 {
			*out = int64(n)
			return nil
		}
		var left, right int64
		a := task.New("fib-left", ctx.Group(), fibBody(n-1, &left))
		b := task.New("fib-right", ctx.Group(), fibBody(n-2, &right))
		if err := ctx.SpawnAndWaitForAll(a, b); err != nil {
			return err
		}
		*out = left + right
		return nil
	}
}

func TestControl_ExecuteRunsSpawnTreeToCompletion(t *testing.T) {
	manager := permit.NewManager(4)
	ctl := NewControl(manager, "fib-arena", 4, 3, 0)
	defer ctl.Stop()

	var result int64
	err := ctl.Execute(nil, "fib", fibBody(10, &result))
	assert.NoError(t, err)
	assert.EqualValues(t, 55, result)
}

func TestControl_ExecutePropagatesTaskError(t *testing.T) {
	manager := permit.NewManager(4)
	ctl := NewControl(manager, "erroring-arena", 2, 1, 0)
	defer ctl.Stop()

	wantErr := assert.AnError
	err := ctl.Execute(nil, "failing", func(task.Context) error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
}

func TestControl_EnqueueRunsUnderMandatoryConcurrencyEvenAtSoftLimitZero(t *testing.T) {
	manager := permit.NewManager(4)
	manager.SetSoftLimit(0)
	ctl := NewControl(manager, "enqueue-arena", 2, 2, 0)
	defer ctl.Stop()

	var flag atomic.Bool
	ctl.Enqueue(nil, "mandatory", func(task.Context) error {
		flag.Store(true)
		return nil
	})

	assert.Eventually(t, flag.Load, 2*time.Second, time.Millisecond,
		"enqueued task must still run via mandatory concurrency despite a soft limit of 0")
}

func TestControl_BlockingUnregisterFromWithinOwnTaskBodyIsRefused(t *testing.T) {
	manager := permit.NewManager(4)
	ctl := NewControl(manager, "reentrant-arena", 2, 2, 0)
	ctl.RegisterPublicReference()
	defer ctl.Stop()

	var gotErr error
	err := ctl.Execute(nil, "closes-self", func(task.Context) error {
		gotErr = ctl.UnregisterPublicReference(true)
		return nil
	})
	assert.NoError(t, err)
	assert.ErrorIs(t, gotErr, rterror.ErrBlockingSchInit)
}

func TestControl_BlockingUnregisterFromOutsideSucceeds(t *testing.T) {
	manager := permit.NewManager(4)
	ctl := NewControl(manager, "plain-arena", 2, 2, 0)
	ctl.RegisterPublicReference()

	assert.NoError(t, ctl.Execute(nil, "noop", func(task.Context) error { return nil }))
	assert.NoError(t, ctl.UnregisterPublicReference(true))
}

func TestControl_StopIsIdempotentAndHaltsWorkers(t *testing.T) {
	manager := permit.NewManager(4)
	ctl := NewControl(manager, "stop-arena", 2, 2, 0)

	ctl.Enqueue(nil, "x", func(task.Context) error { return nil })
	time.Sleep(20 * time.Millisecond)

	ctl.Stop()
	ctl.Stop() // must not panic or block a second time
}

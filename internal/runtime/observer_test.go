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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lindb/ptask/internal/permit"
	"github.com/lindb/ptask/internal/task"
)

// countingObserver counts every notification, and separately those for the
// blocking Execute caller (isWorker false): once Execute advertises work, a
// background worker may also join the arena while a test is running.
type countingObserver struct {
	entries, exits             int32
	callerEntries, callerExits int32
}

func (o *countingObserver) OnSchedulerEntry(isWorker bool) {
	atomic.AddInt32(&o.entries, 1)
	if !isWorker {
		atomic.AddInt32(&o.callerEntries, 1)
	}
}

func (o *countingObserver) OnSchedulerExit(isWorker bool) {
	atomic.AddInt32(&o.exits, 1)
	if !isWorker {
		atomic.AddInt32(&o.callerExits, 1)
	}
}

func TestControl_ObserverFiresAroundExecute(t *testing.T) {
	manager := permit.NewManager(4)
	ctl := NewControl(manager, "observed-arena", 2, 1, 0)
	defer ctl.Stop()

	obs := &countingObserver{}
	ctl.RegisterObserver(obs)

	err := ctl.Execute(nil, "noop", func(task.Context) error { return nil })
	assert.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&obs.callerEntries))
	assert.EqualValues(t, 1, atomic.LoadInt32(&obs.callerExits))
}

func TestControl_UnregisterObserverStopsFutureNotifications(t *testing.T) {
	manager := permit.NewManager(4)
	ctl := NewControl(manager, "unregister-arena", 2, 1, 0)
	defer ctl.Stop()

	obs := &countingObserver{}
	ctl.RegisterObserver(obs)
	assert.NoError(t, ctl.Execute(nil, "first", func(task.Context) error { return nil }))
	ctl.UnregisterObserver(obs)
	assert.NoError(t, ctl.Execute(nil, "second", func(task.Context) error { return nil }))

	assert.EqualValues(t, 1, atomic.LoadInt32(&obs.callerEntries))
}

func TestControl_ObserverFiresForBackgroundWorkersToo(t *testing.T) {
	manager := permit.NewManager(4)
	ctl := NewControl(manager, "bg-arena", 2, 2, 0)
	defer ctl.Stop()

	obs := &countingObserver{}
	ctl.RegisterObserver(obs)

	ctl.Enqueue(nil, "bg", func(task.Context) error { return nil })
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&obs.entries) >= 1 },
		2*time.Second, time.Millisecond)
}

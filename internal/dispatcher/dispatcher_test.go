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

package dispatcher

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lindb/ptask/internal/permit"
)

func TestDispatcher_StartsOneGoroutinePerAllottedSeat(t *testing.T) {
	m := permit.NewManager(4)
	c := m.Register(0)

	d := New()
	var running int32
	d.Register(c, func(stop <-chan struct{}) {
		atomic.AddInt32(&running, 1)
		defer atomic.AddInt32(&running, -1)
		<-stop
	})
	c.SetProcessor(d)

	c.UpdateRequest(2, 2)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 2 }, time.Second, time.Millisecond)

	d.Stop()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 0 }, time.Second, time.Millisecond)
}

func TestDispatcher_UnregisterStopsOnlyThatClientsWorkers(t *testing.T) {
	m := permit.NewManager(4)
	ca := m.Register(0)
	cb := m.Register(0)

	d := New()
	var aRunning, bRunning int32
	d.Register(ca, func(stop <-chan struct{}) {
		atomic.AddInt32(&aRunning, 1)
		defer atomic.AddInt32(&aRunning, -1)
		<-stop
	})
	d.Register(cb, func(stop <-chan struct{}) {
		atomic.AddInt32(&bRunning, 1)
		defer atomic.AddInt32(&bRunning, -1)
		<-stop
	})
	ca.SetProcessor(d)
	cb.SetProcessor(d)

	ca.UpdateRequest(1, 1)
	cb.UpdateRequest(1, 1)
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&aRunning) == 1 && atomic.LoadInt32(&bRunning) == 1
	}, time.Second, time.Millisecond)

	d.Unregister(ca)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&aRunning) == 0 }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, atomic.LoadInt32(&bRunning))

	d.Stop()
}

func TestDispatcher_ShrinkingAllotmentRetiresExcessWorkers(t *testing.T) {
	m := permit.NewManager(4)
	c := m.Register(0)

	d := New()
	var running int32
	d.Register(c, func(stop <-chan struct{}) {
		atomic.AddInt32(&running, 1)
		defer atomic.AddInt32(&running, -1)
		<-stop
	})
	c.SetProcessor(d)

	c.UpdateRequest(3, 3)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 3 }, time.Second, time.Millisecond)

	// case: demand drops back down without ever unregistering the
	// client — the dispatcher must retire the surplus workers on its own,
	// the same way it must when an arena's mandatory-concurrency demand is
	// withdrawn after its enqueued work drains.
	c.UpdateRequest(1, 1)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 1 }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, c.ActiveWorkers())

	d.Stop()
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&running) == 0 }, time.Second, time.Millisecond)
}

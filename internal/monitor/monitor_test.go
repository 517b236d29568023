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

package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonitor_NotifyOneWakesExactlyOneWaiter(t *testing.T) {
	m := New()
	n1 := m.PrepareWait("a")
	n2 := m.PrepareWait("b")

	m.NotifyOne()

	woke := 0
	select {
	case <-n1.Chan():
		woke++
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case <-n2.Chan():
		woke++
	case <-time.After(50 * time.Millisecond):
	}
	// case: exactly one of the two waiters was woken
	assert.Equal(t, 1, woke)
}

func TestMonitor_CommitWaitDoesNotMissARaceAheadNotify(t *testing.T) {
	m := New()
	n := m.PrepareWait(nil)

	// case: a notify that happens before CommitWait must still not block it
	m.NotifyAll()

	done := make(chan struct{})
	go func() {
		m.CommitWait(n)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CommitWait blocked despite a notify racing ahead of it")
	}
}

func TestMonitor_CancelWaitRemovesNodeWithoutNotify(t *testing.T) {
	m := New()
	n := m.PrepareWait(nil)
	m.CancelWait(n)

	// case: a subsequent NotifyAll has nothing left to wake
	m.NotifyAll()
	select {
	case <-n.Chan():
		t.Fatal("cancelled node should never be closed by a later notify")
	default:
	}
}

func TestMonitor_NotifyPredicateOnlyWakesMatchingTags(t *testing.T) {
	m := New()
	nArena1 := m.PrepareWait("arena-1")
	nArena2 := m.PrepareWait("arena-2")

	m.NotifyPredicate(func(tag any) bool { return tag == "arena-1" })

	select {
	case <-nArena1.Chan():
	case <-time.After(time.Second):
		t.Fatal("matching waiter was not woken")
	}
	select {
	case <-nArena2.Chan():
		t.Fatal("non-matching waiter should not have been woken")
	default:
	}
}

func TestMonitor_AbortAllWakesEveryWaiter(t *testing.T) {
	m := New()
	nodes := []*WaitNode{m.PrepareWait(nil), m.PrepareWait(nil), m.PrepareWait(nil)}
	m.AbortAll()
	for _, n := range nodes {
		select {
		case <-n.Chan():
		case <-time.After(time.Second):
			t.Fatal("AbortAll left a waiter parked")
		}
	}
}

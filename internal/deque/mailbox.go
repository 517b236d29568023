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

package deque

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/lindb/ptask/internal/task"
)

// TaskProxy is the affinity side-channel handle placed in a slot's mailbox
// when a task is spawned with a specific Affinity. It carries a claim flag
// so that a proxy can be safely discarded exactly once even if two
// goroutines race to consume it: the slot owner draining its mailbox on
// one side, and the arena reclaiming a retiring slot's unconsumed mail on
// the other. This collapses the original two-bit pool/mailbox handshake
// (needed there because the same proxy could be reached from either the
// owner's local deque or its mailbox) into a single claim bit, since a Go
// Mailbox has exactly one producer-side queue and one legitimate consumer.
type TaskProxy struct {
	Task    *task.Task
	claimed atomic.Bool
}

func newTaskProxy(t *task.Task) *TaskProxy {
	return &TaskProxy{Task: t}
}

// Claim marks the proxy consumed, returning the wrapped task only the
// first time it is called.
func (p *TaskProxy) Claim() (*task.Task, bool) {
	if p.claimed.Swap(true) {
		return nil, false
	}
	return p.Task, true
}

// Mailbox is the affinity inbox for one arena slot. Multiple producers
// (any goroutine spawning an affinitized task) push into it; only the
// slot's own owner goroutine ever pops from it.
type Mailbox struct {
	mu    sync.Mutex
	items []*TaskProxy
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Push enqueues t as a claimable proxy and returns it, so the caller can
// also register it elsewhere (e.g. bump a per-arena "mail waiting"
// counter) using the same proxy identity.
func (m *Mailbox) Push(t *task.Task) *TaskProxy {
	p := newTaskProxy(t)
	m.mu.Lock()
	m.items = append(m.items, p)
	m.mu.Unlock()
	return p
}

// Pop removes and returns the oldest unclaimed proxy's task, or false if
// the mailbox has nothing left to offer.
func (m *Mailbox) Pop() (*task.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.items) > 0 {
		p := m.items[0]
		m.items = m.items[1:]
		if t, ok := p.Claim(); ok {
			return t, true
		}
	}
	return nil, false
}

// DrainUnclaimed empties the mailbox, claiming and returning every
// still-unclaimed task. Used when an arena slot is being retired and its
// mail must be redirected back into the arena's general stream rather than
// silently dropped.
func (m *Mailbox) DrainUnclaimed() []*task.Task {
	m.mu.Lock()
	items := m.items
	m.items = nil
	m.mu.Unlock()

	tasks := make([]*task.Task, 0, len(items))
	for _, p := range items {
		if t, ok := p.Claim(); ok {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// Empty reports whether the mailbox currently holds no proxies, claimed or
// not. Racy
// by nature, intended only as a scheduling hint.
func (m *Mailbox) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) == 0
}

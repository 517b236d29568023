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

package permit

import (
	"runtime"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/lindb/common/pkg/logger"
)

// NumPriorityLevels mirrors arena.NumPriorityLevels: the manager keeps one
// client list per arena priority lane so high-priority arenas are always
// allotted their demand before any capacity flows to lower ones.
const NumPriorityLevels = 3

// Manager is the process-wide worker budget authority ("market", in the
// source terminology): every arena registers a Client describing how many
// workers it could use, and Manager allots shares of a hard concurrency
// ceiling across all registered clients, high-priority lanes first.
type Manager struct {
	mu          sync.RWMutex
	lists       [NumPriorityLevels][]*Client
	softLimit   atomic.Int32
	hardLimit   int
	abaEpoch    atomic.Uint64
	warnedClamp atomic.Bool
	logger      logger.Logger
}

// NewManager creates a Manager with a fixed hard concurrency ceiling
// (never exceeded regardless of soft limit or mandatory demand) and a
// soft limit initially equal to it.
func NewManager(hardLimit int) *Manager {
	if hardLimit < 1 {
		hardLimit = 1
	}
	m := &Manager{
		hardLimit: hardLimit,
		logger:    logger.GetLogger("Permit", "Manager"),
	}
	m.softLimit.Store(int32(hardLimit))
	return m
}

// NewManagerFromEnvironment seeds the hard limit from GOMAXPROCS after
// letting go.uber.org/automaxprocs apply any container CPU-quota
// correction — the same dependency the teacher imports purely to set
// GOMAXPROCS at startup, reused here a second time as the scheduler's own
// concurrency ceiling rather than read independently via runtime.NumCPU.
func NewManagerFromEnvironment() *Manager {
	_, _ = maxprocs.Set()
	return NewManager(runtime.GOMAXPROCS(0))
}

func clampLevel(priority int32) int {
	const normal = NumPriorityLevels / 2
	p := int(priority) + normal
	if p < 0 || p >= NumPriorityLevels {
		return normal
	}
	return p
}

// Register creates and returns a new Client in the list for priority,
// recomputing allotments immediately.
func (m *Manager) Register(priority int32) *Client {
	level := clampLevel(priority)
	c := newClient(m)

	m.mu.Lock()
	m.lists[level] = append(m.lists[level], c)
	m.mu.Unlock()

	m.recompute()
	return c
}

// Unregister removes c from the manager, recomputing allotments for
// everyone else.
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	for level := range m.lists {
		for i, cc := range m.lists[level] {
			if cc == c {
				m.lists[level] = append(m.lists[level][:i], m.lists[level][i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	m.recompute()
}

// SetSoftLimit changes the operator-facing concurrency cap (never above
// the hard limit) and recomputes allotments.
func (m *Manager) SetSoftLimit(n int) {
	if n < 0 {
		n = 0
	}
	m.softLimit.Store(int32(n))
	m.recompute()
}

// SoftLimit returns the current soft concurrency cap.
func (m *Manager) SoftLimit() int {
	return int(m.softLimit.Load())
}

// HardLimit returns the manager's fixed concurrency ceiling.
func (m *Manager) HardLimit() int {
	return m.hardLimit
}

// ABAEpoch returns the allotment recomputation epoch, bumped every time
// recompute runs. No scheduler path reads it; it is exposed for
// diagnostics.
func (m *Manager) ABAEpoch() uint64 {
	return m.abaEpoch.Load()
}

// recompute re-derives every registered client's allotment: mandatory
// demand is served first even past the soft limit (up to the hard limit),
// then each priority level's minimum demand, high level first, with any
// leftover capacity carried down into lower levels and spread round-robin
// up to each client's reported maximum.
func (m *Manager) recompute() {
	m.mu.Lock()
	defer m.mu.Unlock()

	available := int(m.softLimit.Load())
	if available > m.hardLimit {
		available = m.hardLimit
	}

	mandatoryFloor := 0
	for level := NumPriorityLevels - 1; level >= 0; level-- {
		for _, c := range m.lists[level] {
			if c.mandatoryCount.Load() > 0 {
				mandatoryFloor++
			}
		}
	}
	if available < mandatoryFloor {
		if mandatoryFloor > m.hardLimit {
			mandatoryFloor = m.hardLimit
		}
		if available < mandatoryFloor && !m.warnedClamp.Swap(true) {
			m.logger.Warn("soft concurrency limit is below mandatory worker demand, clamping up",
				logger.Int("mandatory", mandatoryFloor), logger.Int("softLimit", available))
		}
		available = mandatoryFloor
	}

	remaining := available
	for level := NumPriorityLevels - 1; level >= 0; level-- {
		remaining -= m.allocateLevel(m.lists[level], remaining)
	}
	m.abaEpoch.Add(1)
}

// allocateLevel grants clients, in order: one seat each to mandatory
// clients, then up to their reported minimum, then the remainder
// round-robin up to each client's reported maximum. Returns the number of
// seats it used.
func (m *Manager) allocateLevel(clients []*Client, available int) int {
	if len(clients) == 0 || available <= 0 {
		for _, c := range clients {
			c.commitTicket(0)
		}
		return 0
	}

	granted := make([]int32, len(clients))
	used := 0

	for i, c := range clients {
		if used >= available {
			break
		}
		if c.mandatoryCount.Load() > 0 {
			granted[i] = 1
			used++
		}
	}
	for i, c := range clients {
		want := c.minWorkers.Load()
		for granted[i] < want && used < available {
			granted[i]++
			used++
		}
	}
	for progressed := true; used < available && progressed; {
		progressed = false
		for i, c := range clients {
			if used >= available {
				break
			}
			if granted[i] < c.maxWorkers.Load() {
				granted[i]++
				used++
				progressed = true
			}
		}
	}

	for i, c := range clients {
		c.commitTicket(granted[i])
	}
	return used
}

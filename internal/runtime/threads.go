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
	"sync"

	"github.com/lindb/ptask/internal/permit"
)

// Parameter identifies a process-wide scheduler setting that can be
// requested by multiple concurrently-held handles, following the source's
// "the strictest/largest currently-requested value wins, recomputed as
// requests come and go" rule — not a one-way ratchet: releasing the
// tightest request can loosen the aggregate again.
type Parameter int

const (
	// MaxAllowedParallelism caps the soft concurrency limit the permit
	// Manager hands out; the smallest value requested by any live holder
	// wins.
	MaxAllowedParallelism Parameter = iota
	// ThreadStackSize is stored for API completeness only: goroutines
	// have no fixed, settable per-goroutine stack size, so this never
	// affects the Go runtime. The largest value requested by any live
	// holder is retained so an embedder can read back what was asked
	// for.
	ThreadStackSize
)

// GlobalControl is a registry of live parameter requests (one map per
// parameter) behind one mutex, aggregated lazily on every Set/Clear: min for
// MaxAllowedParallelism, max for ThreadStackSize. A request only
// contributes to the aggregate while its handle is held; Clear removes it
// and immediately recomputes, which can loosen the aggregate back up.
type GlobalControl struct {
	mu      sync.Mutex
	manager *permit.Manager
	nextID  int64

	parallelism map[int64]int
	stackSize   map[int64]int
}

// NewGlobalControl wraps manager for parameter aggregation.
func NewGlobalControl(manager *permit.Manager) *GlobalControl {
	return &GlobalControl{
		manager:     manager,
		parallelism: make(map[int64]int),
		stackSize:   make(map[int64]int),
	}
}

// Set records a new request for value against param and returns a handle
// id to pass to Clear once the request should no longer contribute.
func (g *GlobalControl) Set(param Parameter, value int) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	id := g.nextID
	switch param {
	case MaxAllowedParallelism:
		g.parallelism[id] = value
		g.applyParallelismLocked()
	case ThreadStackSize:
		g.stackSize[id] = value
	}
	return id
}

// Clear drops the request identified by id for param, recomputing the
// aggregate from whatever requests remain.
func (g *GlobalControl) Clear(param Parameter, id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch param {
	case MaxAllowedParallelism:
		delete(g.parallelism, id)
		g.applyParallelismLocked()
	case ThreadStackSize:
		delete(g.stackSize, id)
	}
}

// applyParallelismLocked pushes the current minimum requested parallelism
// (or the manager's hard limit, if nobody has an active request) down to
// the permit manager's soft limit. Caller must hold g.mu.
func (g *GlobalControl) applyParallelismLocked() {
	limit := g.manager.HardLimit()
	for _, v := range g.parallelism {
		if v < limit {
			limit = v
		}
	}
	g.manager.SetSoftLimit(limit)
}

// Get returns the currently aggregated value for param: the minimum live
// request for MaxAllowedParallelism (or the manager's current soft limit
// if none), the maximum live request for ThreadStackSize (or 0).
func (g *GlobalControl) Get(param Parameter) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch param {
	case MaxAllowedParallelism:
		return g.manager.SoftLimit()
	case ThreadStackSize:
		max := 0
		for _, v := range g.stackSize {
			if v > max {
				max = v
			}
		}
		return max
	default:
		return 0
	}
}

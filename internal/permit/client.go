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

// Package permit implements the process-wide worker budget: arenas
// register a Client describing how many workers they could use, and the
// Manager ("market", in the source terminology) allots a share of the
// hard concurrency limit to each registered client in priority order.
package permit

import "go.uber.org/atomic"

//go:generate mockgen -source=./client.go -destination=./client_mock.go -package=permit

// Processor receives ticket changes for a Client. Implemented by
// internal/dispatcher, which is the thing that actually starts and stops
// worker goroutines; Manager never imports dispatcher directly, closing
// the loop through this interface instead.
type Processor interface {
	// Process is called whenever the number of workers c is entitled to
	// run changes. The callee should converge its live worker count
	// towards c.Allotted() asynchronously; Process itself must not block.
	Process(c *Client)
}

// Client is one arena's registration with the Manager.
type Client struct {
	minWorkers     atomic.Int32
	maxWorkers     atomic.Int32
	mandatoryCount atomic.Int32
	allotted       atomic.Int32
	activeWorkers  atomic.Int32
	isTopPriority  bool

	manager   *Manager
	processor Processor
}

func newClient(m *Manager) *Client {
	c := &Client{manager: m}
	return c
}

// SetProcessor wires the client to the component that actually starts and
// stops worker goroutines in response to allotment changes.
func (c *Client) SetProcessor(p Processor) {
	c.processor = p
}

// UpdateRequest records the client's current [min, max] concurrency
// demand and asks the manager to recompute allotments.
func (c *Client) UpdateRequest(minWorkers, maxWorkers int) {
	c.minWorkers.Store(int32(minWorkers))
	c.maxWorkers.Store(int32(maxWorkers))
	c.manager.recompute()
}

// RequestMandatory toggles whether this client needs at least one worker
// even if the manager's soft limit is currently zero.
func (c *Client) RequestMandatory(active bool) {
	if active {
		c.mandatoryCount.Inc()
	} else if c.mandatoryCount.Load() > 0 {
		c.mandatoryCount.Dec()
	}
	c.manager.recompute()
}

// MinWorkers returns the client's last-reported minimum useful worker
// count.
func (c *Client) MinWorkers() int {
	return int(c.minWorkers.Load())
}

// MaxWorkers returns the client's last-reported maximum usable worker
// count.
func (c *Client) MaxWorkers() int {
	return int(c.maxWorkers.Load())
}

// Allotted returns the number of workers the manager currently grants
// this client.
func (c *Client) Allotted() int {
	return int(c.allotted.Load())
}

// commitTicket is called by the manager after recomputing allotments; it
// stores the new value and, if it changed, notifies the processor.
func (c *Client) commitTicket(n int32) {
	if c.allotted.Swap(n) == n {
		return
	}
	if c.processor != nil {
		c.processor.Process(c)
	}
}

// TryJoin attempts to claim one of this client's allotted-but-unstarted
// worker seats, returning true if the caller should start a worker for
// it.
func (c *Client) TryJoin() bool {
	for {
		active := c.activeWorkers.Load()
		if active >= c.allotted.Load() {
			return false
		}
		if c.activeWorkers.CAS(active, active+1) {
			return true
		}
	}
}

// LeaveWorker reports that one of this client's active workers has
// stopped (idled out or the arena asked it to retire).
func (c *Client) LeaveWorker() {
	c.activeWorkers.Dec()
}

// ActiveWorkers returns the number of workers currently running for this
// client.
func (c *Client) ActiveWorkers() int {
	return int(c.activeWorkers.Load())
}

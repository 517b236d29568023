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

// Package dispatcher turns permit allotment changes into goroutines: it
// implements permit.Processor and starts or stops worker goroutines for a
// registered client as the manager grants or withdraws seats, collapsing
// the source's RML plugin-loaded thread pool down to plain goroutines
// (see DESIGN.md). This generalizes the teacher's own
// internal/concurrent/pool.go dispatch()/newWorker() pairing — there a
// single pool reacts to one tasks channel; here N independent
// registrations each react to their own allotment changes.
package dispatcher

import (
	"sync"

	"github.com/lindb/common/pkg/logger"

	"github.com/lindb/ptask/internal/permit"
)

// WorkerFunc is run on its own goroutine from the moment the dispatcher
// starts it until stop is closed; it must return promptly after that.
type WorkerFunc func(stop <-chan struct{})

type registration struct {
	client *permit.Client
	start  WorkerFunc
	active []chan struct{}
}

// Dispatcher implements permit.Processor, converging each registered
// client's live worker goroutine count towards its current allotment.
type Dispatcher struct {
	mu   sync.Mutex
	regs []*registration
	wg   sync.WaitGroup

	logger logger.Logger
}

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{logger: logger.GetLogger("Dispatcher", "Dispatcher")}
}

// Register associates client with start, the function to run on a
// goroutine each time the client is granted an additional worker seat.
// The caller is responsible for calling client.SetProcessor(d) so that
// allotment changes actually reach this dispatcher.
func (d *Dispatcher) Register(client *permit.Client, start WorkerFunc) {
	d.mu.Lock()
	d.regs = append(d.regs, &registration{client: client, start: start})
	d.mu.Unlock()
}

// Unregister stops every live worker goroutine for client and forgets it.
func (d *Dispatcher) Unregister(client *permit.Client) {
	d.mu.Lock()
	for i, r := range d.regs {
		if r.client == client {
			for _, stop := range r.active {
				close(stop)
			}
			d.regs = append(d.regs[:i], d.regs[i+1:]...)
			break
		}
	}
	d.mu.Unlock()
}

// Process implements permit.Processor. It is called by the manager on
// whatever goroutine recomputed allotments, so it must not block: starting
// a worker only spawns a goroutine, it never waits for it to run, and
// retiring one only closes its stop channel.
func (d *Dispatcher) Process(c *permit.Client) {
	reg := d.lookup(c)
	if reg == nil {
		return
	}
	for c.TryJoin() {
		stop := make(chan struct{})
		d.mu.Lock()
		reg.active = append(reg.active, stop)
		d.mu.Unlock()

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer c.LeaveWorker()
			reg.start(stop)
		}()
	}
	// The allotment may have shrunk (e.g. mandatory-concurrency demand
	// withdrawn once the arena drained): retire the most recently started
	// worker(s) first, since the oldest is more likely mid-task. The
	// retired worker's own defer calls c.LeaveWorker, so activeWorkers
	// converges back down asynchronously as each one actually exits.
	d.mu.Lock()
	for len(reg.active) > c.Allotted() && len(reg.active) > 0 {
		last := len(reg.active) - 1
		close(reg.active[last])
		reg.active = reg.active[:last]
	}
	d.mu.Unlock()
}

func (d *Dispatcher) lookup(c *permit.Client) *registration {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.regs {
		if r.client == c {
			return r
		}
	}
	return nil
}

// Stop closes every live worker's stop channel and waits for all of them
// to return.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	regs := d.regs
	d.regs = nil
	d.mu.Unlock()

	for _, r := range regs {
		for _, stop := range r.active {
			close(stop)
		}
	}
	d.wg.Wait()
}

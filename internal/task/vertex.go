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

package task

import "go.uber.org/atomic"

// Counter is a throwaway WaitVertex anchoring an external wait: the
// dispatch loop entry point used by a caller outside of any running task
// (e.g. Arena.Execute) reserves one slot per child it spawns and blocks
// until the count returns to zero.
type Counter struct {
	refs atomic.Int32
}

// NewCounter creates a Counter with n reservations already accounted for;
// 0 is the common case, letting each spawned child call reserve() itself
// via setParent.
func NewCounter(n int32) *Counter {
	c := &Counter{}
	c.refs.Store(n)
	return c
}

func (c *Counter) reserve() {
	c.refs.Inc()
}

func (c *Counter) release() (*Task, bool) {
	c.refs.Dec()
	return nil, false
}

// Done reports whether every reservation against c has been released.
func (c *Counter) Done() bool {
	return c.refs.Load() <= 0
}

// BindChild attaches child's completion to c, for use by an external,
// outside-any-task blocking wait (e.g. Arena.Execute). child must not yet
// have been spawned.
func (c *Counter) BindChild(child *Task) {
	child.setParent(c)
}

// ContinuationVertex gates a join of several predecessor tasks: once every
// predecessor attached via reserve() has released, the wrapped successor
// task becomes runnable and is handed back to whoever called release.
type ContinuationVertex struct {
	refs      atomic.Int32
	successor *Task
}

// NewContinuationVertex wraps successor, the task to run once every
// predecessor attached to this vertex has finished.
func NewContinuationVertex(successor *Task) *ContinuationVertex {
	return &ContinuationVertex{successor: successor}
}

func (v *ContinuationVertex) reserve() {
	v.refs.Inc()
}

func (v *ContinuationVertex) release() (*Task, bool) {
	if v.refs.Dec() == 0 {
		return v.successor, true
	}
	return nil, false
}

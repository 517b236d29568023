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

package dispatch

import (
	taskctx "github.com/lindb/ptask/internal/context"
	"github.com/lindb/ptask/internal/rterror"
	"github.com/lindb/ptask/internal/task"
)

// taskContext is the task.Context a running task body sees; it closes
// over the Loop driving it and the task currently executing.
type taskContext struct {
	loop *Loop
	task *task.Task
}

// Spawn schedules child without waiting for it, tagging it with whatever
// isolation scope is currently active so it stays fenced the same way its
// spawning task is.
func (c *taskContext) Spawn(child *task.Task) error {
	if c.loop.slot == nil {
		return rterror.ErrMissingWait
	}
	child.Isolation = c.loop.isolation
	c.loop.spawn(child)
	return nil
}

// SpawnAndWaitForAll schedules every child under a fresh isolation scope
// anchored on c.task, then drives a nested dispatch loop until all of
// them have finished.
func (c *taskContext) SpawnAndWaitForAll(children ...*task.Task) error {
	if c.loop.slot == nil {
		return rterror.ErrMissingWait
	}
	for _, child := range children {
		if child == c.task {
			// A task waiting on its own completion can never observe
			// itself finish: it is blocked in this very call.
			return rterror.ErrImproperLock
		}
	}

	prevIsolation := c.loop.isolation
	iso := nextIsolation()
	c.loop.isolation = iso

	for _, child := range children {
		child.Isolation = iso
		c.task.BindChild(child)
		c.loop.spawn(child)
	}
	c.loop.waitForSelf(c.task, iso)

	c.loop.isolation = prevIsolation
	return nil
}

// Group returns the task group context the currently running task
// belongs to.
func (c *taskContext) Group() *taskctx.GroupContext {
	return c.task.Ctx
}

// Isolation returns the isolation tag currently active for this task's
// execution (0 if it is not nested inside any SpawnAndWaitForAll).
func (c *taskContext) Isolation() uint64 {
	return c.loop.isolation
}

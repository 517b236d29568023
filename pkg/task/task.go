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

// Package task is the public surface over internal/task and
// internal/context: the types and constructors an embedder needs to build
// a spawn graph, without reaching into internal/ itself.
package task

import (
	taskctx "github.com/lindb/ptask/internal/context"
	internaltask "github.com/lindb/ptask/internal/task"
)

type (
	// Task is a single schedulable unit of work.
	Task = internaltask.Task
	// Func is the body of a Task; it receives a Context for spawning and
	// waiting on further work.
	Func = internaltask.Func
	// Context is the capability a running task body is handed: Spawn,
	// SpawnAndWaitForAll, Group, and Isolation.
	Context = internaltask.Context
	// Handle assembles a continuation's predecessor join before the
	// continuation task is spawned.
	Handle = internaltask.Handle
	// GroupContext is a node in the cancellation/exception tree every
	// task belongs to.
	GroupContext = taskctx.GroupContext
)

// NewRoot creates a GroupContext with no parent at the given scheduling
// priority (clamped to the arena's supported lanes when used to enqueue).
func NewRoot(priority int32) *GroupContext {
	return taskctx.NewRoot(priority)
}

// New creates a task with no predecessor wiring: once spawned it reports
// its completion only to whatever nested wait its spawner is blocked in.
func New(name string, ctx *GroupContext, body Func) *Task {
	return internaltask.New(name, ctx, body)
}

// NewDeferred creates a task meant to be wired into a continuation chain
// via NewHandle/Handle.AddPredecessor before it is ever spawned.
func NewDeferred(name string, ctx *GroupContext, body Func) *Task {
	return internaltask.NewDeferred(name, ctx, body)
}

// NewHandle wraps a deferred task while its continuation wiring is
// assembled.
func NewHandle(t *Task) *Handle {
	return internaltask.NewHandle(t)
}

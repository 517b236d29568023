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

// Handle wraps a deferred task (one created via NewDeferred) while its
// continuation wiring is still being assembled, before it is handed to
// the scheduler.
//
// Predecessors may only be added between freshly-allocated deferred
// tasks: AddPredecessor folds pred's own parent pointer into the same
// ContinuationVertex as h's, rather than letting pred's existing parent
// (if any) be silently discarded. Calling AddPredecessor on a task that
// already has an unrelated parent, or on a task that has already been
// spawned, is a programming error the caller must avoid — Handle exists
// precisely to make that easy by only being constructible from
// NewDeferred.
type Handle struct {
	t      *Task
	vertex *ContinuationVertex
	added  map[*Task]struct{}
}

// NewHandle wraps t (which must come from NewDeferred and not yet be
// spawned) for continuation-chain assembly.
func NewHandle(t *Task) *Handle {
	return &Handle{t: t, vertex: NewContinuationVertex(t), added: make(map[*Task]struct{})}
}

// AddPredecessor makes pred a join predecessor of h's task: once pred (and
// every other predecessor added this way) has finished, h's task is
// automatically spawned. Idempotent: adding the same pred more than once
// reserves the vertex only on the first call, since pred's own Finish only
// ever releases it once.
func (h *Handle) AddPredecessor(pred *Task) {
	if _, ok := h.added[pred]; ok {
		return
	}
	h.added[pred] = struct{}{}
	pred.setParent(h.vertex)
}

// Release finalizes the handle, returning the task ready to be spawned by
// the caller. If no predecessors were ever added, the returned task's
// completion will never be held back by the vertex: the caller is
// responsible for spawning it directly (Release does not spawn it itself,
// since Handle has no access to the dispatch surface).
func (h *Handle) Release() *Task {
	return h.t
}

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

package arena

import (
	"container/list"
	"sync"

	"github.com/lindb/ptask/internal/task"
)

// NumPriorityLevels is the number of scheduling lanes a Stream maintains:
// low, normal, high. Strict priority: a lane is only drained once every
// lane above it is empty. There is no starvation-based elevation across
// lanes (see DESIGN.md's Open Questions — the sources never pin down one
// policy, so none is invented here).
const NumPriorityLevels = 3

// streamSubQueues is the number of round-robin buckets each priority lane
// is split into. One lane mutex guards all of a lane's buckets, so pushes
// to the same lane are still serialized.
const streamSubQueues = 4

type lane struct {
	mu      sync.Mutex
	buckets [streamSubQueues]*list.List
	next    int // next bucket to push into, round-robin
	head    int // next bucket to pop from, round-robin
}

func newLane() *lane {
	l := &lane{}
	for i := range l.buckets {
		l.buckets[i] = list.New()
	}
	return l
}

func (l *lane) push(t *task.Task) {
	l.mu.Lock()
	l.buckets[l.next].PushBack(t)
	l.next = (l.next + 1) % streamSubQueues
	l.mu.Unlock()
}

func (l *lane) pop() (*task.Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := 0; k < streamSubQueues; k++ {
		i := (l.head + k) % streamSubQueues
		b := l.buckets[i]
		if e := b.Front(); e != nil {
			b.Remove(e)
			l.head = (i + 1) % streamSubQueues
			return e.Value.(*task.Task), true
		}
	}
	return nil, false
}

func (l *lane) popMatching(pred func(*task.Task) bool) (*task.Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := 0; i < streamSubQueues; i++ {
		b := l.buckets[i]
		for e := b.Front(); e != nil; e = e.Next() {
			t := e.Value.(*task.Task)
			if pred(t) {
				b.Remove(e)
				return t, true
			}
		}
	}
	return nil, false
}

func (l *lane) empty() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range l.buckets {
		if b.Len() > 0 {
			return false
		}
	}
	return true
}

// Stream is an arena's FIFO task stream: tasks that Arena.Enqueue receives
// without affinity, mail drained from a slot that is leaving, and isolated
// steals put back because they were not eligible land here, ordered by
// priority lane and drained high-priority-first. Pop is FIFO within a
// lane; once PopMatching has taken a task out of turn, a later task in
// another bucket can be popped before an earlier one.
type Stream struct {
	lanes [NumPriorityLevels]*lane
}

// NewStream creates an empty Stream.
func NewStream() *Stream {
	s := &Stream{}
	for i := range s.lanes {
		s.lanes[i] = newLane()
	}
	return s
}

// clampPriority maps an arbitrary GroupContext priority onto a valid lane
// index, defaulting out-of-range values to the normal (middle) lane.
func clampPriority(priority int32) int {
	const normal = NumPriorityLevels / 2
	p := int(priority) + normal
	if p < 0 || p >= NumPriorityLevels {
		return normal
	}
	return p
}

// Push enqueues t into the lane its context's priority maps to.
func (s *Stream) Push(t *task.Task) {
	idx := normal
	if t.Ctx != nil {
		idx = clampPriority(t.Ctx.Priority())
	}
	s.lanes[idx].push(t)
}

const normal = NumPriorityLevels / 2

// Pop drains the highest-priority non-empty lane first.
func (s *Stream) Pop() (*task.Task, bool) {
	for i := NumPriorityLevels - 1; i >= 0; i-- {
		if t, ok := s.lanes[i].pop(); ok {
			return t, true
		}
	}
	return nil, false
}

// PopMatching drains the highest-priority non-empty lane that contains an
// element satisfying pred, used by a nested wait to skip tasks belonging
// to an unrelated isolated region.
func (s *Stream) PopMatching(pred func(*task.Task) bool) (*task.Task, bool) {
	for i := NumPriorityLevels - 1; i >= 0; i-- {
		if t, ok := s.lanes[i].popMatching(pred); ok {
			return t, true
		}
	}
	return nil, false
}

// Empty reports whether every lane is currently empty. Racy by nature,
// intended only as a scheduling hint.
func (s *Stream) Empty() bool {
	for _, l := range s.lanes {
		if !l.empty() {
			return false
		}
	}
	return true
}

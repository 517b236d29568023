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
	"go.uber.org/atomic"

	"github.com/lindb/ptask/internal/deque"
)

// Slot is one worker's occupied seat in an arena: its local deque for
// LIFO spawn/pop, and its affinity mailbox.
type Slot struct {
	Index    int
	Deque    *deque.Deque
	Mailbox  *deque.Mailbox
	occupied atomic.Bool
}

func newSlot(index int) *Slot {
	return &Slot{
		Index:   index,
		Deque:   deque.New(),
		Mailbox: deque.NewMailbox(),
	}
}

// tryOccupy claims the slot for a thread joining the arena. Returns false
// if another thread beat it to the claim.
func (s *Slot) tryOccupy() bool {
	return !s.occupied.Swap(true)
}

// vacate releases the slot back to the free pool.
func (s *Slot) vacate() {
	s.occupied.Store(false)
}

// Occupied reports whether a thread currently holds this slot.
func (s *Slot) Occupied() bool {
	return s.occupied.Load()
}

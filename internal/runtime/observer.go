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

import "sync"

//go:generate mockgen -source=./observer.go -destination=./observer_mock.go -package=runtime

// Observer is notified once per slot-occupancy cycle: OnSchedulerEntry
// when a goroutine (worker or the blocking Execute caller) occupies an
// arena slot, OnSchedulerExit when it gives the slot back. isWorker
// distinguishes a dispatcher-started background worker from the calling
// goroutine of a blocking Execute.
type Observer interface {
	OnSchedulerEntry(isWorker bool)
	OnSchedulerExit(isWorker bool)
}

type observerList struct {
	mu        sync.RWMutex
	observers []Observer
}

func (l *observerList) register(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

func (l *observerList) unregister(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.observers {
		if existing == o {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}

func (l *observerList) snapshot() []Observer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Observer, len(l.observers))
	copy(out, l.observers)
	return out
}

func (l *observerList) fireEntry(isWorker bool) {
	for _, o := range l.snapshot() {
		o.OnSchedulerEntry(isWorker)
	}
}

func (l *observerList) fireExit(isWorker bool) {
	for _, o := range l.snapshot() {
		o.OnSchedulerExit(isWorker)
	}
}

// RegisterObserver adds o to the arena's observer list.
func (c *Control) RegisterObserver(o Observer) {
	c.observers.register(o)
}

// UnregisterObserver removes o from the arena's observer list.
func (c *Control) UnregisterObserver(o Observer) {
	c.observers.unregister(o)
}

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

// Package metrics is the concrete type internal/concurrent/pool.go always
// assumed existed behind its *metrics.ConcurrentStatistics field, rebuilt
// here against github.com/prometheus/client_golang rather than LinDB's own
// internal/linmetric, since linmetric's flat-buffer wire encoder has no
// collector this single-process scheduler reports to. Every hot-path field
// is bound once per arena at construction, the same "no label lookup on the
// hot path" idiom linmetric's BoundMin/BoundHistogram follow.
package metrics

import (
	"time"

	"go.uber.org/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	tasksExecutedVec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ptask",
		Name:      "tasks_executed_total",
		Help:      "Number of task bodies that ran to completion or returned an error.",
	}, []string{"arena"})
	tasksPanickedVec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ptask",
		Name:      "tasks_panicked_total",
		Help:      "Number of task bodies recovered from a panic.",
	}, []string{"arena"})
	tasksStolenVec = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ptask",
		Name:      "tasks_stolen_total",
		Help:      "Number of tasks picked up via work-stealing rather than a slot's own deque.",
	}, []string{"arena"})
	workersActiveVec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ptask",
		Name:      "workers_active",
		Help:      "Number of worker goroutines currently running for an arena.",
	}, []string{"arena"})
	waitingTimeVec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ptask",
		Name:      "task_wait_seconds",
		Help:      "Time a task spent enqueued before a worker began executing it.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"arena"})
	executionTimeVec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ptask",
		Name:      "task_exec_seconds",
		Help:      "Time spent inside a task body.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"arena"})
)

// MustRegister registers every ptask collector with reg. Safe to call once
// per process; a demo binary's main calls this with
// prometheus.DefaultRegisterer before serving /metrics.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(tasksExecutedVec, tasksPanickedVec, tasksStolenVec,
		workersActiveVec, waitingTimeVec, executionTimeVec)
}

// ArenaStats is the bound set of collectors for one named arena, handed to
// the dispatch loop so it never does a label lookup per task.
type ArenaStats struct {
	tasksExecuted prometheus.Counter
	tasksPanicked prometheus.Counter
	tasksStolen   prometheus.Counter
	workersActive prometheus.Gauge
	waitingTime   prometheus.Observer
	executionTime prometheus.Observer

	activeWorkers atomic.Int32
}

// NewArenaStats binds every collector to arena name. Call once per arena.
func NewArenaStats(arena string) *ArenaStats {
	return &ArenaStats{
		tasksExecuted: tasksExecutedVec.WithLabelValues(arena),
		tasksPanicked: tasksPanickedVec.WithLabelValues(arena),
		tasksStolen:   tasksStolenVec.WithLabelValues(arena),
		workersActive: workersActiveVec.WithLabelValues(arena),
		waitingTime:   waitingTimeVec.WithLabelValues(arena),
		executionTime: executionTimeVec.WithLabelValues(arena),
	}
}

// TaskExecuted records one task body running to completion, the latency
// from createdAt to the worker picking it up, and the body's own runtime.
func (s *ArenaStats) TaskExecuted(createdAt, startedAt time.Time) {
	s.tasksExecuted.Inc()
	s.waitingTime.Observe(startedAt.Sub(createdAt).Seconds())
	s.executionTime.Observe(time.Since(startedAt).Seconds())
}

// TaskPanicked records a recovered panic inside a task body.
func (s *ArenaStats) TaskPanicked() {
	s.tasksPanicked.Inc()
}

// TaskStolen records a task picked up by stealing rather than from the
// worker's own local deque or mailbox.
func (s *ArenaStats) TaskStolen() {
	s.tasksStolen.Inc()
}

// WorkerStarted records one more live worker goroutine for this arena.
func (s *ArenaStats) WorkerStarted() {
	s.activeWorkers.Inc()
	s.workersActive.Set(float64(s.activeWorkers.Load()))
}

// WorkerStopped records one fewer live worker goroutine for this arena.
func (s *ArenaStats) WorkerStopped() {
	s.activeWorkers.Dec()
	s.workersActive.Set(float64(s.activeWorkers.Load()))
}

// ActiveWorkers returns the arena's current live worker count.
func (s *ArenaStats) ActiveWorkers() int32 {
	return s.activeWorkers.Load()
}

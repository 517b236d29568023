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

package main

import (
	"fmt"
	"time"

	"go.uber.org/atomic"

	"github.com/spf13/cobra"

	"github.com/lindb/ptask/pkg/task"
	"github.com/lindb/ptask/pkg/taskarena"
)

func newEnqueueDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue-demo",
		Short: "enqueue a task under a soft limit of 0 and watch mandatory concurrency carry it",
		RunE:  runEnqueueDemo,
	}
}

func runEnqueueDemo(_ *cobra.Command, _ []string) error {
	scope := taskarena.SetGlobalControl(taskarena.MaxAllowedParallelism, 0)
	defer scope.Close()

	arena := taskarena.NewArena(4, 1, taskarena.Normal)
	defer arena.Close()

	var flag atomic.Bool
	arena.Enqueue(func(ctx task.Context) error {
		flag.Store(true)
		return nil
	})

	start := time.Now()
	deadline := start.Add(5 * time.Second)
	for !flag.Load() {
		if time.Now().After(deadline) {
			return fmt.Errorf("enqueued task did not run within %s", time.Since(start))
		}
		time.Sleep(time.Millisecond)
	}
	fmt.Printf("enqueued task observed after %s despite a soft concurrency limit of 0\n", time.Since(start))

	// Scenario 5: once no further work exists, the mandatory worker should
	// retire rather than linger.
	time.Sleep(100 * time.Millisecond)
	fmt.Printf("active workers now: %d\n", arena.Stats().ActiveWorkers())
	return nil
}

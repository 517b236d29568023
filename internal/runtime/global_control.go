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

import (
	"sync"

	"github.com/lindb/ptask/internal/permit"
)

// globalMu, globalManager, and globalRefs implement a ref-counted
// process-wide permit.Manager singleton, grounded on
// coordinator/master_controller.go's acquire/release-counted master
// context: the first caller to ask for the global manager constructs it,
// the last to release it tears it down, and everyone in between shares
// the same instance.
var (
	globalMu      sync.Mutex
	globalManager *permit.Manager
	globalControl *GlobalControl
	globalRefs    int
)

// AcquireGlobalManager returns the process-wide permit.Manager, creating
// it (hard limit seeded from GOMAXPROCS after automaxprocs correction) on
// first use. Every call must be matched with ReleaseGlobalManager.
func AcquireGlobalManager() *permit.Manager {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalManager == nil {
		globalManager = permit.NewManagerFromEnvironment()
		globalControl = NewGlobalControl(globalManager)
	}
	globalRefs++
	return globalManager
}

// AcquireGlobalControl returns the GlobalControl paired with the
// process-wide manager, creating both on first use. Every call must be
// matched with ReleaseGlobalManager.
func AcquireGlobalControl() *GlobalControl {
	AcquireGlobalManager()
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalControl
}

// ReleaseGlobalManager drops one reference to the global manager, tearing
// it (and its paired GlobalControl) down once nobody holds it anymore.
func ReleaseGlobalManager() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalRefs > 0 {
		globalRefs--
	}
	if globalRefs == 0 {
		globalManager = nil
		globalControl = nil
	}
}

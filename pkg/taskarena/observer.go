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

package taskarena

import "github.com/lindb/ptask/internal/runtime"

// Observer is re-exported from internal/runtime: it is notified exactly
// once per slot-occupancy cycle, for a background worker or for the
// goroutine blocked in Execute.
type Observer = runtime.Observer

// RegisterObserver adds o to this arena's observer list.
func (a *Arena) RegisterObserver(o Observer) {
	a.control.RegisterObserver(o)
}

// UnregisterObserver removes o from this arena's observer list.
func (a *Arena) UnregisterObserver(o Observer) {
	a.control.UnregisterObserver(o)
}

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

// GlobalControlParam is re-exported from internal/runtime.
type GlobalControlParam = runtime.Parameter

const (
	MaxAllowedParallelism = runtime.MaxAllowedParallelism
	ThreadStackSize       = runtime.ThreadStackSize
)

// GlobalControlScope is an RAII-style handle: the value passed to
// SetGlobalControl contributes to the process-wide aggregate only while
// the scope is held. Close must be called exactly once.
type GlobalControlScope struct {
	gc     *runtime.GlobalControl
	param  GlobalControlParam
	handle int64
	closed bool
}

// SetGlobalControl requests value for param, returning a scope the caller
// must Close to withdraw the request. While multiple scopes are open for
// the same param, the aggregate is the minimum requested value for
// MaxAllowedParallelism or the maximum for ThreadStackSize.
func SetGlobalControl(param GlobalControlParam, value int) *GlobalControlScope {
	gc := runtime.AcquireGlobalControl()
	handle := gc.Set(param, value)
	return &GlobalControlScope{gc: gc, param: param, handle: handle}
}

// Close withdraws this scope's request, recomputing the process-wide
// aggregate from whatever requests remain.
func (s *GlobalControlScope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.gc.Clear(s.param, s.handle)
	runtime.ReleaseGlobalManager()
}

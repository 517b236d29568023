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

// Package rterror defines the sentinel errors shared by the scheduler
// packages.
package rterror

import (
	"errors"
	"fmt"
)

var (
	// ErrImproperLock is returned when a blocking wait is attempted from a
	// context that would deadlock the calling goroutine (e.g. waiting for a
	// vertex that the current task itself is gating).
	ErrImproperLock = errors.New("ptask: improper lock, wait would deadlock caller")

	// ErrMissingWait is returned by Spawn and SpawnAndWaitForAll when the
	// calling goroutine has no arena slot attached to spawn into.
	ErrMissingWait = errors.New("ptask: release of a task with no pending wait")

	// ErrCancelled is returned by blocking operations that observe a
	// cancelled task group context.
	ErrCancelled = errors.New("ptask: task group context cancelled")

	// ErrBlockingSchInit is returned when a blocking release of an arena's
	// last public reference is attempted from a goroutine that is itself
	// running a task body under that arena.
	ErrBlockingSchInit = errors.New("ptask: nested blocking scheduler init is not allowed")

	// ErrOutOfArena is returned when an arena cannot hand out a slot to a
	// thread attempting to join it, because every slot in the range that
	// thread may use is occupied.
	ErrOutOfArena = errors.New("ptask: arena has no free slot or is terminated")
)

// FromRecover turns the value returned by a recover() call into an error,
// preserving it unchanged if it already is one.
func FromRecover(r any) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("ptask: task panic: %v", r)
}

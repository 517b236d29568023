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

package task

import (
	"testing"

	"github.com/stretchr/testify/assert"

	taskctx "github.com/lindb/ptask/internal/context"
)

func noop(Context) error { return nil }

func TestTask_NestedWaitAnchorTracksChildren(t *testing.T) {
	ctx := taskctx.NewRoot(0)
	parent := New("parent", ctx, noop)
	assert.True(t, parent.Done())

	childA := New("childA", ctx, noop)
	childB := New("childB", ctx, noop)
	parent.BindChild(childA)
	parent.BindChild(childB)

	// case 1: two outstanding children, parent's wait is not done
	assert.False(t, parent.Done())

	childA.Finish()
	// case 2: one of two children finished, still not done
	assert.False(t, parent.Done())

	childB.Finish()
	// case 3: both children finished, wait anchor is back at baseline
	assert.True(t, parent.Done())
}

func TestCounter_DoneOnlyAfterEveryChildReleases(t *testing.T) {
	ctx := taskctx.NewRoot(0)
	counter := NewCounter(0)
	assert.True(t, counter.Done())

	a := New("a", ctx, noop)
	b := New("b", ctx, noop)
	counter.BindChild(a)
	counter.BindChild(b)
	assert.False(t, counter.Done())

	a.Finish()
	assert.False(t, counter.Done())
	b.Finish()
	assert.True(t, counter.Done())
}

func TestContinuationVertex_ReleasesSuccessorOnLastPredecessor(t *testing.T) {
	ctx := taskctx.NewRoot(0)
	successor := New("successor", ctx, noop)
	vertex := NewContinuationVertex(successor)

	pred1 := New("pred1", ctx, noop)
	pred2 := New("pred2", ctx, noop)
	pred1.setParent(vertex)
	pred2.setParent(vertex)

	// case 1: first predecessor finishing does not yet release the successor
	ready, became := pred1.Finish()
	assert.False(t, became)
	assert.Nil(t, ready)

	// case 2: last predecessor finishing hands back the successor
	ready, became = pred2.Finish()
	assert.True(t, became)
	assert.Same(t, successor, ready)
}

func TestTask_FinishWithNoParentIsNoop(t *testing.T) {
	ctx := taskctx.NewRoot(0)
	solo := New("solo", ctx, noop)
	ready, became := solo.Finish()
	assert.Nil(t, ready)
	assert.False(t, became)
}

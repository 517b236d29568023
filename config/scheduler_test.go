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

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultScheduler_MatchesGOMAXPROCSAndReservesOneSlot(t *testing.T) {
	s := NewDefaultScheduler()
	assert.Equal(t, runtime.GOMAXPROCS(0), s.MaxAllowedParallelism)
	assert.Equal(t, 1, s.ReservedForExternal)
	assert.EqualValues(t, 0, s.IdleSleepBackoff)
	assert.EqualValues(t, 0, s.StealRNGSeed)
}

func TestScheduler_TOMLIncludesEveryField(t *testing.T) {
	s := NewDefaultScheduler()
	s.MaxAllowedParallelism = 7
	s.ReservedForExternal = 2
	s.StealRNGSeed = 42

	out := s.TOML()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "## Config for the task scheduler"))
	assert.Contains(t, out, "[scheduler]")
	assert.Contains(t, out, "max-allowed-parallelism = 7")
	assert.Contains(t, out, "reserved-for-external = 2")
	assert.Contains(t, out, "steal-rng-seed = 42")
}

func TestLoadSchedulerFromFile_OverridesOnlyFieldsPresentInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.toml")
	body := "[scheduler]\nmax-allowed-parallelism = 3\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	s, err := LoadSchedulerFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.MaxAllowedParallelism)
	// case: a field absent from the file keeps NewDefaultScheduler's value
	assert.Equal(t, 1, s.ReservedForExternal)
}

func TestLoadSchedulerFromFile_MissingFileReturnsError(t *testing.T) {
	_, err := LoadSchedulerFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

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

	"github.com/spf13/cobra"

	"github.com/lindb/ptask/config"
)

var configPath string

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the scheduler config, either defaults or a loaded toml file",
		RunE:  runConfig,
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a scheduler toml config; defaults are printed if empty")
	return cmd
}

func runConfig(_ *cobra.Command, _ []string) error {
	scheduler := config.NewDefaultScheduler()
	if configPath != "" {
		loaded, err := config.LoadSchedulerFromFile(configPath)
		if err != nil {
			return fmt.Errorf("load scheduler config: %w", err)
		}
		scheduler = loaded
	}
	fmt.Println(scheduler.TOML())
	return nil
}

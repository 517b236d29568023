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
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lindb/ptask/config"
	"github.com/lindb/ptask/internal/metrics"
	"github.com/lindb/ptask/pkg/task"
	"github.com/lindb/ptask/pkg/taskarena"
)

var servePort string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run an arena behind an HTTP server exposing /status and /metrics",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&servePort, "port", ":8811", "listen address")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a scheduler toml config; defaults are used if empty")
	return cmd
}

func runServe(_ *cobra.Command, _ []string) error {
	metrics.MustRegister(prometheus.DefaultRegisterer)

	scheduler := config.NewDefaultScheduler()
	if configPath != "" {
		loaded, err := config.LoadSchedulerFromFile(configPath)
		if err != nil {
			return err
		}
		scheduler = loaded
	}

	arena := taskarena.NewArena(scheduler.MaxAllowedParallelism, scheduler.ReservedForExternal, taskarena.Normal)
	arena.SetIdleBackoff(time.Duration(scheduler.IdleSleepBackoff))
	defer arena.Close()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"activeWorkers": arena.Stats().ActiveWorkers(),
		})
	})
	engine.POST("/enqueue", func(c *gin.Context) {
		arena.Enqueue(func(task.Context) error {
			time.Sleep(10 * time.Millisecond)
			return nil
		})
		c.JSON(http.StatusAccepted, gin.H{"enqueued": true})
	})

	server := &http.Server{Addr: servePort, Handler: engine}

	ctx := newCtxWithSignals()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

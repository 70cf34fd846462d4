// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package serve implements the serve command, which exposes generation and
// feedback over HTTP.
package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/postgen/internal/commands/shared"
	"github.com/tombee/postgen/internal/config"
	"github.com/tombee/postgen/internal/log"
	"github.com/tombee/postgen/internal/server"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generate and feedback HTTP API",
		Long: `Start an HTTP server with these routes:

  POST /api/posts      {"description": "..."} -> {"post": "...", "span_id": "..."}
  POST /api/feedback   {"span_id": "...", "feedback": "like"|"dislike"}
  GET  /health
  GET  /metrics        Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String(config.FlagAddr, "", "Listen address (default: 127.0.0.1:8080)")
	cmd.Flags().String(config.FlagModel, "", "Model to use (default: gpt-4o)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := shared.LoadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := shared.NewApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			a.Logger.Warn("failed to flush traces", "error", err)
		}
	}()

	// Fail at startup rather than on the first request.
	gen, err := a.Generator()
	if err != nil {
		return shared.NewConfigError("cannot generate posts", err)
	}

	srv := server.New(gen, a.Relay, server.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		RequestTimeout:  cfg.Server.RequestTimeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		MetricsHandler:  a.Tracing.MetricsHandler(),
		Logger:          a.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Info("starting server",
		"addr", cfg.Server.Addr,
		log.ModelKey, cfg.LLM.Model,
		"phoenix", cfg.Phoenix.Endpoint,
		"project", cfg.Phoenix.ProjectName)
	if !shared.GetQuiet() && !shared.GetJSON() {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s http://%s\n", shared.RenderOK("Serving on"), cfg.Server.Addr)
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		return shared.NewExecutionError("server failed", err)
	}
	return nil
}

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

// Package diagnostics implements the doctor command.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/postgen/internal/commands/shared"
	"github.com/tombee/postgen/internal/config"
	"github.com/tombee/postgen/internal/secrets"
	"github.com/tombee/postgen/internal/tracing/storage"
	"github.com/tombee/postgen/pkg/phoenix"
)

// DoctorResult contains the overall health check results
type DoctorResult struct {
	shared.JSONResponse
	ConfigPath      string   `json:"config_path"`
	ConfigExists    bool     `json:"config_exists"`
	ConfigValid     bool     `json:"config_valid"`
	ConfigError     string   `json:"config_error,omitempty"`
	Model           string   `json:"model,omitempty"`
	OpenAIKey       bool     `json:"openai_key"`
	PhoenixEndpoint string   `json:"phoenix_endpoint,omitempty"`
	PhoenixProject  string   `json:"phoenix_project,omitempty"`
	PhoenixHealthy  bool     `json:"phoenix_healthy"`
	PhoenixError    string   `json:"phoenix_error,omitempty"`
	TracesEndpoint  string   `json:"traces_endpoint,omitempty"`
	HistoryPath     string   `json:"history_path,omitempty"`
	HistoryHealthy  bool     `json:"history_healthy"`
	HistoryError    string   `json:"history_error,omitempty"`
	Recommendations []string `json:"recommendations"`
	OverallHealthy  bool     `json:"overall_healthy"`
}

// NewDoctorCommand creates the doctor command
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, API keys and the Phoenix connection",
		Long: `Perform a health check of the postgen setup.

This command checks:
  - Config file is valid (a missing file means defaults)
  - An OpenAI API key is available
  - The Phoenix server answers
  - The local history database opens

Provides actionable recommendations for fixing any issues found.`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}

	return cmd
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	result := check(ctx, cmd)

	if shared.GetJSON() {
		if err := shared.EmitJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		printResult(cmd.OutOrStdout(), result)
	}

	if !result.OverallHealthy {
		return shared.NewExecutionError("health check found issues", nil)
	}
	return nil
}

func check(ctx context.Context, cmd *cobra.Command) DoctorResult {
	result := DoctorResult{
		JSONResponse:    shared.NewJSONResponse("doctor", true),
		Recommendations: []string{},
		OverallHealthy:  true,
	}
	fail := func(recommendation string) {
		result.OverallHealthy = false
		result.Success = false
		result.Recommendations = append(result.Recommendations, recommendation)
	}

	result.ConfigPath = shared.GetConfigPath()
	if result.ConfigPath == "" {
		p, err := config.ConfigPath()
		if err != nil {
			result.ConfigError = err.Error()
			fail("Set XDG_CONFIG_HOME or HOME, or pass --config with an explicit path.")
			return result
		}
		result.ConfigPath = p
	}
	if _, err := os.Stat(result.ConfigPath); err == nil {
		result.ConfigExists = true
	}

	cfg, err := config.Load(shared.GetConfigPath())
	if err == nil {
		err = cfg.ApplyFlags(cmd.Flags())
	}
	if err != nil {
		result.ConfigError = err.Error()
		fail("Fix the configuration error above, or remove the file to use defaults.")
		return result
	}
	result.ConfigValid = true
	result.Model = cfg.LLM.Model

	if err := cfg.ResolveSecrets(ctx, secrets.NewDefaultResolver()); err != nil {
		fail(fmt.Sprintf("Could not read API keys: %v", err))
	}
	result.OpenAIKey = cfg.LLM.APIKey != ""
	if !result.OpenAIKey {
		fail("No OpenAI API key. Run 'postgen auth set-key' or export OPENAI_API_KEY.")
	}

	result.PhoenixEndpoint = cfg.Phoenix.Endpoint
	result.PhoenixProject = cfg.Phoenix.ProjectName
	if cfg.Tracing.Enabled {
		result.TracesEndpoint = cfg.TracesEndpoint()
	}
	client, err := phoenix.New(phoenix.Config{
		BaseURL: cfg.Phoenix.Endpoint,
		APIKey:  cfg.Phoenix.APIKey,
		Timeout: cfg.Phoenix.Timeout,
	})
	if err == nil {
		err = client.Ping(ctx)
	}
	if err != nil {
		result.PhoenixError = err.Error()
		var statusErr *phoenix.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == 401 || statusErr.StatusCode == 403) {
			fail("Phoenix rejected the API key. Run 'postgen auth set-key --provider phoenix'.")
		} else {
			fail(fmt.Sprintf("Phoenix is not reachable at %s. Start it with 'phoenix serve' or set PHOENIX_COLLECTOR_ENDPOINT.", cfg.Phoenix.Endpoint))
		}
	} else {
		result.PhoenixHealthy = true
	}

	if cfg.History.Enabled {
		result.HistoryPath = cfg.History.Path
		store, err := storage.New(storage.Config{Path: cfg.History.Path})
		if err != nil {
			result.HistoryError = err.Error()
			fail(fmt.Sprintf("Cannot open history at %s. Check permissions or set history.path.", cfg.History.Path))
		} else {
			result.HistoryHealthy = true
			store.Close()
		}
	}

	return result
}

func printResult(w io.Writer, result DoctorResult) {
	fmt.Fprintln(w, shared.Header.Render("postgen Health Check"))
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Path: %s\n", result.ConfigPath)
	if result.ConfigExists {
		fmt.Fprintln(w, "  Status: Found")
	} else {
		fmt.Fprintln(w, "  Status: Not found (using defaults)")
	}
	if !result.ConfigValid {
		fmt.Fprintf(w, "  %s %s\n", shared.RenderStatus(false, "INVALID"), result.ConfigError)
	} else {
		fmt.Fprintf(w, "  Model: %s\n", result.Model)
		fmt.Fprintf(w, "  OpenAI key: %s\n", checkMark(result.OpenAIKey))
	}
	fmt.Fprintln(w)

	if result.ConfigValid {
		fmt.Fprintln(w, "Phoenix:")
		fmt.Fprintf(w, "  Endpoint: %s\n", result.PhoenixEndpoint)
		fmt.Fprintf(w, "  Project: %s\n", result.PhoenixProject)
		if result.TracesEndpoint != "" {
			fmt.Fprintf(w, "  Traces: %s\n", result.TracesEndpoint)
		} else {
			fmt.Fprintln(w, "  Traces: disabled")
		}
		fmt.Fprintf(w, "  Reachable: %s\n", checkMark(result.PhoenixHealthy))
		if result.PhoenixError != "" {
			fmt.Fprintf(w, "  Error: %s\n", result.PhoenixError)
		}
		fmt.Fprintln(w)

		if result.HistoryPath != "" {
			fmt.Fprintln(w, "History:")
			fmt.Fprintf(w, "  Path: %s\n", result.HistoryPath)
			fmt.Fprintf(w, "  Opens: %s\n", checkMark(result.HistoryHealthy))
			fmt.Fprintln(w)
		}
	}

	if len(result.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
		fmt.Fprintln(w)
	}

	if result.OverallHealthy {
		fmt.Fprintln(w, "Overall Status: "+shared.RenderOK("Healthy"))
	} else {
		fmt.Fprintln(w, "Overall Status: "+shared.RenderError("Issues Found"))
	}
}

func checkMark(ok bool) string {
	if ok {
		return shared.StatusOK.Render(shared.SymbolOK)
	}
	return shared.StatusError.Render(shared.SymbolError)
}

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

package shared

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tombee/postgen/internal/app"
	"github.com/tombee/postgen/internal/config"
	"github.com/tombee/postgen/internal/log"
	"github.com/tombee/postgen/internal/secrets"
	"github.com/tombee/postgen/pkg/llm"
)

var providerOverride llm.Provider

// SetProviderForTest replaces the OpenAI provider for commands under test.
func SetProviderForTest(p llm.Provider) {
	providerOverride = p
}

// LoadConfig loads the file named by --config (or the XDG default), applies
// environment and flag overrides, and fills missing API keys from the keychain.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(GetConfigPath())
	if err != nil {
		return nil, NewConfigError("failed to load configuration", err)
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return nil, NewConfigError("invalid flag value", err)
	}
	if err := cfg.ResolveSecrets(cmd.Context(), secrets.NewDefaultResolver()); err != nil {
		return nil, NewConfigError("failed to read API keys", err)
	}
	return cfg, nil
}

// NewLogger builds the command logger. POSTGEN_DEBUG and POSTGEN_LOG_LEVEL
// win over the config file; --verbose wins over both.
func NewLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	lc := log.FromEnv()
	lc.Output = cmd.ErrOrStderr()
	if os.Getenv("POSTGEN_DEBUG") == "" && os.Getenv("POSTGEN_LOG_LEVEL") == "" {
		lc.Level = cfg.Log.Level
	}
	lc.Format = log.Format(cfg.Log.Format)
	lc.AddSource = lc.AddSource || cfg.Log.AddSource
	if GetVerbose() {
		lc.Level = "debug"
	}
	return log.New(lc)
}

// NewApp wires the generator, relay and tracer provider for a command.
// Callers must Close the returned App so buffered spans reach Phoenix.
func NewApp(cmd *cobra.Command, cfg *config.Config) (*app.App, error) {
	a, err := app.New(cmd.Context(), cfg, app.Options{
		Version:  version,
		Logger:   NewLogger(cmd, cfg),
		Provider: providerOverride,
	})
	if err != nil {
		return nil, NewExecutionError("failed to initialize", err)
	}
	return a, nil
}

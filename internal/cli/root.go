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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/postgen/internal/commands/shared"
	"github.com/tombee/postgen/internal/config"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for postgen
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postgen",
		Short: "postgen - traced social media post generation",
		Long: `postgen writes a short promotional post for a product description with an
LLM, records the call as a trace in Arize Phoenix, and sends your thumbs-up or
thumbs-down back to Phoenix as an annotation on that trace.

Run 'postgen auth set-key' to store your OpenAI API key.
Run 'postgen generate "Blue ceramic mug, 12oz"' to try it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	verbose, quiet, json, cfgPath := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(cfgPath, "config", "", "Path to config file (default: ~/.config/postgen/config.yaml)")
	cmd.PersistentFlags().String(config.FlagPhoenixEndpoint, "", "Phoenix base URL (default: http://localhost:6006)")
	cmd.PersistentFlags().String(config.FlagProject, "", "Phoenix project name")

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}

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

package main

import (
	"github.com/tombee/postgen/internal/cli"
	"github.com/tombee/postgen/internal/commands/auth"
	"github.com/tombee/postgen/internal/commands/completion"
	"github.com/tombee/postgen/internal/commands/diagnostics"
	"github.com/tombee/postgen/internal/commands/feedback"
	"github.com/tombee/postgen/internal/commands/generate"
	"github.com/tombee/postgen/internal/commands/history"
	"github.com/tombee/postgen/internal/commands/serve"
	versioncmd "github.com/tombee/postgen/internal/commands/version"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)

	rootCmd := cli.NewRootCommand()

	// Core commands
	rootCmd.AddCommand(generate.NewGenerateCommand())
	rootCmd.AddCommand(feedback.NewFeedbackCommand())
	rootCmd.AddCommand(history.NewHistoryCommand())
	rootCmd.AddCommand(serve.NewServeCommand())

	// Setup and diagnostics
	rootCmd.AddCommand(auth.NewAuthCommand())
	rootCmd.AddCommand(diagnostics.NewDoctorCommand())
	rootCmd.AddCommand(completion.NewCommand())
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}

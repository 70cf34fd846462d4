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

/*
Package cli provides the root command for the postgen CLI.

This package creates the Cobra command tree and handles global concerns like
version information, persistent flags, and exit codes. Individual commands
are implemented in the internal/commands subpackages.

# Command Tree

	postgen
	├── generate      Generate a post from a product description
	├── feedback      Send a like or dislike for a generated post
	├── history       List recent generations and their span IDs
	├── serve         Run the HTTP API
	├── auth          Manage API keys in the system keychain
	├── doctor        Check configuration, keys and Phoenix
	├── completion    Generate shell completion scripts
	└── version       Show version

# Usage

From main.go:

	cli.SetVersion(version, commit, date)
	rootCmd := cli.NewRootCommand()
	// ... add commands ...
	if err := rootCmd.Execute(); err != nil {
	    cli.HandleExitError(err)
	}

# Global Flags

All commands inherit these flags:

	--verbose, -v         Enable verbose output
	--quiet, -q           Suppress non-error output
	--json                Output in JSON format
	--config              Path to config file
	--phoenix-endpoint    Phoenix base URL
	--project             Phoenix project name
*/
package cli

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

// Package auth implements the auth command, which stores API keys in the
// system keychain.
package auth

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/postgen/internal/commands/completion"
	"github.com/tombee/postgen/internal/commands/shared"
	"github.com/tombee/postgen/internal/secrets"
)

var providerKeys = map[string]string{
	"openai":  secrets.KeyOpenAIAPIKey,
	"phoenix": secrets.KeyPhoenixAPIKey,
}

// promptKey asks for a key with hidden input.
var promptKey = func(provider string) (string, error) {
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s API key:", provider)).
				EchoMode(huh.EchoModePassword).
				Value(&value).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("API key is required")
					}
					return nil
				}),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			os.Exit(130)
		}
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func newStore() *secrets.Resolver {
	return secrets.NewResolver(secrets.NewKeychainBackend())
}

// NewAuthCommand creates the auth command
func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage OpenAI and Phoenix API keys",
		Long: `Store API keys in the system keychain so they need not be exported.

Keys from OPENAI_API_KEY / PHOENIX_API_KEY or the config file take
precedence over the keychain.`,
	}

	cmd.AddCommand(newSetKeyCommand(), newDeleteKeyCommand(), newStatusCommand())
	return cmd
}

func addProviderFlag(cmd *cobra.Command, provider *string) {
	cmd.Flags().StringVar(provider, "provider", "openai", "Which key: openai or phoenix")
	_ = cmd.RegisterFlagCompletionFunc("provider", completion.CompleteKeyProviders)
}

func secretKey(provider string) (string, error) {
	key, ok := providerKeys[provider]
	if !ok {
		return "", shared.NewInvalidInputError(
			fmt.Sprintf("unknown provider %q (expected openai or phoenix)", provider), nil)
	}
	return key, nil
}

func newSetKeyCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store an API key in the keychain",
		Long: `Store an API key in the system keychain.

The key is read from a hidden prompt, or from stdin when it is piped:
  echo "$OPENAI_API_KEY" | postgen auth set-key`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secretKey(provider)
			if err != nil {
				return err
			}

			value, err := readKey(cmd.InOrStdin(), provider)
			if err != nil {
				return shared.NewInvalidInputError("failed to read API key", err)
			}
			if value == "" {
				return shared.NewInvalidInputError("API key cannot be empty", nil)
			}

			if err := newStore().Set(cmd.Context(), key, value); err != nil {
				if errors.Is(err, secrets.ErrBackendUnavailable) {
					envVar := "OPENAI_API_KEY"
					if provider == "phoenix" {
						envVar = "PHOENIX_API_KEY"
					}
					return shared.NewExecutionError(
						fmt.Sprintf("keychain unavailable; export %s instead", envVar), err)
				}
				return shared.NewExecutionError("failed to store API key", err)
			}

			if !shared.GetQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("Stored %s API key in keychain", provider)))
			}
			return nil
		},
	}
	addProviderFlag(cmd, &provider)
	return cmd
}

func newDeleteKeyCommand() *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "delete-key",
		Short: "Remove an API key from the keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secretKey(provider)
			if err != nil {
				return err
			}

			if err := newStore().Delete(cmd.Context(), key); err != nil {
				if errors.Is(err, secrets.ErrSecretNotFound) {
					return shared.NewInvalidInputError(fmt.Sprintf("no %s API key in keychain", provider), nil)
				}
				return shared.NewExecutionError("failed to delete API key", err)
			}

			if !shared.GetQuiet() {
				fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("Deleted %s API key", provider)))
			}
			return nil
		},
	}
	addProviderFlag(cmd, &provider)
	return cmd
}

// KeyStatus reports where a provider's key was found.
type KeyStatus struct {
	Provider string `json:"provider"`
	Set      bool   `json:"set"`
	Source   string `json:"source,omitempty"`
	Masked   string `json:"masked,omitempty"`
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which API keys are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := keyStatuses(cmd, secrets.NewResolver(secrets.NewEnvBackend()), newStore())

			out := cmd.OutOrStdout()
			if shared.GetJSON() {
				return shared.EmitJSON(out, struct {
					shared.JSONResponse
					Keys []KeyStatus `json:"keys"`
				}{shared.NewJSONResponse("auth status", true), statuses})
			}

			for _, s := range statuses {
				if s.Set {
					fmt.Fprintf(out, "%s %s %s\n",
						shared.RenderOK(s.Provider), s.Masked, shared.Muted.Render("("+s.Source+")"))
				} else {
					fmt.Fprintln(out, shared.RenderWarn(s.Provider+" not set"))
				}
			}
			return nil
		},
	}
}

func keyStatuses(cmd *cobra.Command, stores ...*secrets.Resolver) []KeyStatus {
	statuses := make([]KeyStatus, 0, len(providerKeys))
	for _, provider := range []string{"openai", "phoenix"} {
		status := KeyStatus{Provider: provider}
	lookup:
		for _, store := range stores {
			for _, backend := range store.Backends() {
				value, err := backend.Get(cmd.Context(), providerKeys[provider])
				if err == nil && value != "" {
					status.Set = true
					status.Source = backend.Name()
					status.Masked = maskSecret(value)
					break lookup
				}
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// readKey reads from stdin when it is piped and prompts otherwise.
func readKey(stdin io.Reader, provider string) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return promptKey(provider)
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// maskSecret masks a secret value for display.
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

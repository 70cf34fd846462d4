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

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	// EnvBackendPriority is the priority for environment variable backend.
	EnvBackendPriority = 100

	envSecretPrefix = "POSTGEN_SECRET_"
)

// envAliases maps well-known keys to the variables the upstream SDKs read.
var envAliases = map[string]string{
	KeyOpenAIAPIKey:  "OPENAI_API_KEY",
	KeyPhoenixAPIKey: "PHOENIX_API_KEY",
}

// EnvBackend provides read-only access to secrets via environment variables.
// It checks POSTGEN_SECRET_<KEY> first, then the well-known alias
// (e.g. OPENAI_API_KEY).
type EnvBackend struct {
	lookup func(string) string
}

// NewEnvBackend creates a new environment variable backend.
func NewEnvBackend() *EnvBackend {
	return &EnvBackend{lookup: os.Getenv}
}

// Name returns the backend identifier.
func (e *EnvBackend) Name() string {
	return "env"
}

// Get retrieves a secret from environment variables.
func (e *EnvBackend) Get(ctx context.Context, key string) (string, error) {
	if value := e.lookup(normalizeKey(key)); value != "" {
		return value, nil
	}
	if alias, ok := envAliases[key]; ok {
		if value := e.lookup(alias); value != "" {
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: environment variable not set", ErrSecretNotFound)
}

// Set returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Set(ctx context.Context, key string, value string) error {
	return ErrReadOnlyBackend
}

// Delete returns ErrReadOnlyBackend as environment backend is read-only.
func (e *EnvBackend) Delete(ctx context.Context, key string) error {
	return ErrReadOnlyBackend
}

// Available returns true as environment variables are always available.
func (e *EnvBackend) Available() bool {
	return true
}

// Priority returns the backend priority (highest).
func (e *EnvBackend) Priority() int {
	return EnvBackendPriority
}

// ReadOnly returns true as environment backend is read-only.
func (e *EnvBackend) ReadOnly() bool {
	return true
}

// normalizeKey converts a secret key to an environment variable name.
// Example: "openai/api_key" -> "POSTGEN_SECRET_OPENAI_API_KEY"
func normalizeKey(key string) string {
	return envSecretPrefix + strings.ToUpper(strings.ReplaceAll(key, "/", "_"))
}

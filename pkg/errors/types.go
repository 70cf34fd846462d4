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

// Package errors holds the typed errors shared across postgen packages.
package errors

import (
	"fmt"
)

// ValidationError represents user input validation failures.
type ValidationError struct {
	// Field identifies which input failed validation.
	Field string

	// Message is the human-readable error description.
	Message string

	// Hint provides actionable guidance for fixing the error.
	Hint string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// IsUserVisible implements UserVisibleError.
func (e *ValidationError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ValidationError) UserMessage() string { return e.Message }

// Suggestion implements UserVisibleError.
func (e *ValidationError) Suggestion() string { return e.Hint }

// ProviderError represents LLM provider failures.
type ProviderError struct {
	// Provider is the name of the LLM provider (e.g., "openai").
	Provider string

	// StatusCode is the HTTP status code, if the provider returned one.
	StatusCode int

	// Message is the human-readable error message.
	Message string

	// RequestID correlates this error with provider logs.
	RequestID string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s error", e.Provider)

	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [HTTP %d]", msg, e.StatusCode)
	}

	msg = fmt.Sprintf("%s: %s", msg, e.Message)

	if e.RequestID != "" {
		msg = fmt.Sprintf("%s (request-id: %s)", msg, e.RequestID)
	}

	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *ProviderError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ProviderError) UserMessage() string { return e.Message }

// Suggestion implements UserVisibleError.
func (e *ProviderError) Suggestion() string {
	switch e.StatusCode {
	case 401, 403:
		return "Check OPENAI_API_KEY or run 'postgen auth set-key'"
	case 429:
		return "The provider is rate limiting requests; wait and run the command again"
	default:
		return ""
	}
}

// ConfigError represents configuration problems.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "llm.model").
	Key string

	// Reason explains what's wrong with the configuration.
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error).
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *ConfigError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ConfigError) UserMessage() string { return e.Reason }

// Suggestion implements UserVisibleError.
func (e *ConfigError) Suggestion() string {
	if e.Key == "" {
		return ""
	}
	return fmt.Sprintf("Fix %q in the config file or set the matching environment variable", e.Key)
}

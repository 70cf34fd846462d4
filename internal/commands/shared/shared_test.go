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
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgerrors "github.com/tombee/postgen/pkg/errors"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitExecutionFailed},
		{"invalid input", NewInvalidInputError("no description", nil), ExitInvalidInput},
		{"generation", NewGenerationError("failed", errors.New("401")), ExitGenerationFailed},
		{"feedback", NewFeedbackError("not recorded", nil), ExitFeedbackFailed},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewFeedbackError("x", nil)), ExitFeedbackFailed},
		{"config error", &pgerrors.ConfigError{Key: "llm.model", Reason: "empty"}, ExitConfigError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "failed: cause", NewExecutionError("failed", errors.New("cause")).Error())
	assert.Equal(t, "failed", NewExecutionError("failed", nil).Error())

	cause := errors.New("cause")
	assert.ErrorIs(t, NewGenerationError("failed", cause), cause)
}

func TestPrintError_WithSuggestion(t *testing.T) {
	var buf bytes.Buffer
	err := NewConfigError("failed to load configuration",
		&pgerrors.ConfigError{Key: "phoenix.endpoint", Reason: "bad URL"})

	PrintError(&buf, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Error: failed to load configuration"))
	assert.Contains(t, out, "Suggestion:")
	assert.Contains(t, out, "phoenix.endpoint")
}

func TestPrintError_NoSuggestion(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestEmitJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := NewGenerationError("generation failed", errors.New("invalid api key"))

	require.NoError(t, EmitJSONError(&buf, "generate", err))
	assert.JSONEq(t, `{
		"@version": "1.0",
		"command": "generate",
		"success": false,
		"errors": [{"code": "E101", "message": "generation failed: invalid api key"}]
	}`, buf.String())
}

func TestErrorCodeFor(t *testing.T) {
	assert.Equal(t, ErrorCodeInvalidConfig, ErrorCodeFor(&pgerrors.ConfigError{Reason: "x"}))
	assert.Equal(t, ErrorCodeInternal, ErrorCodeFor(errors.New("x")))
}

func TestIsNonInteractive_EnvIndicators(t *testing.T) {
	for _, env := range []struct{ key, value string }{
		{"POSTGEN_NON_INTERACTIVE", "true"},
		{"CI", "true"},
		{"CI", "1"},
		{"GITHUB_ACTIONS", "true"},
		{"JENKINS_HOME", "/var/jenkins"},
	} {
		t.Run(env.key+"="+env.value, func(t *testing.T) {
			t.Setenv(env.key, env.value)
			assert.True(t, IsNonInteractive())
		})
	}
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "12s", formatElapsed(12_400_000_000))
	assert.Equal(t, "2m", formatElapsed(120_000_000_000))
	assert.Equal(t, "1m 23s", formatElapsed(83_000_000_000))
}

func TestSpinner_NonTTY(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf)
	s.Start("Generating post")
	s.Stop()
	assert.Equal(t, "Generating post\n", buf.String())
}

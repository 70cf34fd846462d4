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

package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	pgerrors "github.com/tombee/postgen/pkg/errors"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *pgerrors.ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &pgerrors.ValidationError{Field: "description", Message: "must not be empty"},
			wantMsg: "validation failed on description: must not be empty",
		},
		{
			name:    "without field",
			err:     &pgerrors.ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestProviderError_Error(t *testing.T) {
	err := &pgerrors.ProviderError{
		Provider:   "openai",
		StatusCode: 401,
		Message:    "invalid api key",
		RequestID:  "req_123",
	}

	assert.Equal(t, "provider openai error [HTTP 401]: invalid api key (request-id: req_123)", err.Error())
	assert.Contains(t, err.Suggestion(), "OPENAI_API_KEY")
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("generate: %w", &pgerrors.ProviderError{Provider: "openai", Message: "request failed", Cause: cause})

	assert.ErrorIs(t, err, cause)

	var provErr *pgerrors.ProviderError
	assert.ErrorAs(t, err, &provErr)
	assert.Empty(t, provErr.Suggestion())
}

func TestConfigError(t *testing.T) {
	cause := errors.New("yaml: line 3")
	err := &pgerrors.ConfigError{Key: "llm.model", Reason: "must not be empty", Cause: cause}

	assert.Equal(t, "config error at llm.model: must not be empty", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Suggestion(), "llm.model")

	noKey := &pgerrors.ConfigError{Reason: "unreadable"}
	assert.Equal(t, "config error: unreadable", noKey.Error())
	assert.Empty(t, noKey.Suggestion())
}

func TestUserVisibleError(t *testing.T) {
	var uve pgerrors.UserVisibleError = &pgerrors.ValidationError{Message: "bad", Hint: "try again"}
	assert.True(t, uve.IsUserVisible())
	assert.Equal(t, "bad", uve.UserMessage())
	assert.Equal(t, "try again", uve.Suggestion())
}

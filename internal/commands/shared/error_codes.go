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

// Error codes for structured JSON output
const (
	ErrorCodeInvalidInput     = "E001" // Missing or malformed argument
	ErrorCodeGenerationFailed = "E101" // Completion request failed
	ErrorCodeFeedbackFailed   = "E102" // Annotation not accepted
	ErrorCodeInvalidConfig    = "E201" // Configuration unusable
	ErrorCodeMissingAPIKey    = "E202" // No API key configured
	ErrorCodeInternal         = "E402" // Internal error
)

// ErrorCodeFor maps an error to its JSON error code.
func ErrorCodeFor(err error) string {
	switch ExitCode(err) {
	case ExitInvalidInput:
		return ErrorCodeInvalidInput
	case ExitGenerationFailed:
		return ErrorCodeGenerationFailed
	case ExitFeedbackFailed:
		return ErrorCodeFeedbackFailed
	case ExitConfigError:
		return ErrorCodeInvalidConfig
	default:
		return ErrorCodeInternal
	}
}

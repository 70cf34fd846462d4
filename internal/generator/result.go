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

package generator

// Result is the outcome of one generation.
type Result struct {
	// Text is the generated post, or a description of the failure when Err
	// is set.
	Text string

	// SpanID is the 16 lowercase hex character ID of the generation span.
	// Empty when generation failed or the span was not recorded, in which
	// case feedback cannot be attached.
	SpanID string

	// Err is set when generation failed.
	Err *Error
}

// OK reports whether a post was generated.
func (r Result) OK() bool {
	return r.Err == nil
}

// AcceptsFeedback reports whether feedback can be attached to this result.
func (r Result) AcceptsFeedback() bool {
	return r.Err == nil && r.SpanID != ""
}

// Error describes a failed generation.
type Error struct {
	Cause error
}

func (e *Error) Error() string {
	return "Error generating post: " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

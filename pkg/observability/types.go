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

package observability

import (
	"strings"
	"time"
)

// Span is the stored representation of a finished span.
type Span struct {
	TraceID    string
	SpanID     string
	ParentID   string
	Name       string
	Kind       SpanKind
	StartTime  time.Time
	EndTime    time.Time
	Status     SpanStatus
	Attributes map[string]any
}

// SpanKind categorizes the type of work represented by a span.
type SpanKind string

const (
	// SpanKindInternal represents work happening within the application.
	SpanKindInternal SpanKind = "internal"

	// SpanKindClient represents an outbound synchronous call.
	SpanKindClient SpanKind = "client"

	// SpanKindServer represents handling an inbound synchronous request.
	SpanKindServer SpanKind = "server"
)

// SpanStatus indicates whether a span completed successfully.
type SpanStatus struct {
	Code    StatusCode
	Message string
}

// StatusCode represents the outcome of a span.
type StatusCode int

const (
	StatusCodeUnset StatusCode = 0
	StatusCodeOK    StatusCode = 1
	StatusCodeError StatusCode = 2
)

// TraceContext carries the identifiers of a span.
// SpanID is the 64-bit span identifier as 16 lowercase hex digits.
type TraceContext struct {
	TraceID string
	SpanID  string
}

// HasSpanID reports whether the context holds a usable span identifier.
// The all-zero identifier produced by no-op tracers is not usable.
func (tc TraceContext) HasSpanID() bool {
	return len(tc.SpanID) == 16 && strings.Trim(tc.SpanID, "0") != ""
}

// Duration returns the span's execution time, or 0 for unfinished spans.
func (s *Span) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// StringAttr returns the string attribute stored under key, or "".
func (s *Span) StringAttr(key string) string {
	if v, ok := s.Attributes[key].(string); ok {
		return v
	}
	return ""
}

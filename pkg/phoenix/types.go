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

package phoenix

import (
	"fmt"
	"net/http"
)

// AnnotatorKind identifies who produced an annotation.
type AnnotatorKind string

const (
	AnnotatorHuman AnnotatorKind = "HUMAN"
	AnnotatorLLM   AnnotatorKind = "LLM"
	AnnotatorCode  AnnotatorKind = "CODE"
)

// SpanAnnotationsRequest is the body of POST /v1/span_annotations.
type SpanAnnotationsRequest struct {
	Data []SpanAnnotation `json:"data"`
}

// SpanAnnotation attaches a judgment to a span.
type SpanAnnotation struct {
	SpanID        string           `json:"span_id"`
	Name          string           `json:"name"`
	AnnotatorKind AnnotatorKind    `json:"annotator_kind"`
	Result        AnnotationResult `json:"result"`
	Metadata      map[string]any   `json:"metadata"`
}

// AnnotationResult is the label, score and explanation of an annotation.
type AnnotationResult struct {
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// StatusError is returned when Phoenix answers with anything but 200.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("phoenix returned HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("phoenix returned HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

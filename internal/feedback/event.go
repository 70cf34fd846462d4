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

package feedback

import (
	"fmt"

	"github.com/tombee/postgen/pkg/phoenix"
)

// AnnotationName is the name feedback annotations are recorded under.
const AnnotationName = "user feedback"

// Polarity is the direction of a user's reaction.
type Polarity string

const (
	Like    Polarity = "like"
	Dislike Polarity = "dislike"
)

// ParsePolarity maps a raw feedback value to a polarity. Only the exact
// value "like" is positive; every other value counts as a dislike.
func ParsePolarity(feedback string) Polarity {
	if feedback == string(Like) {
		return Like
	}
	return Dislike
}

// Label returns the glyph recorded as the annotation label.
func (p Polarity) Label() string {
	if p == Like {
		return "👍"
	}
	return "👎"
}

// Score returns 1 for a like and 0 otherwise.
func (p Polarity) Score() float64 {
	if p == Like {
		return 1
	}
	return 0
}

// Event is one user reaction to a generated post.
type Event struct {
	SpanID      string
	Polarity    Polarity
	Label       string
	Score       float64
	Explanation string
}

// NewEvent builds the event for a raw feedback value. The explanation keeps
// the raw value as given.
func NewEvent(spanID, feedback string) Event {
	p := ParsePolarity(feedback)
	return Event{
		SpanID:      spanID,
		Polarity:    p,
		Label:       p.Label(),
		Score:       p.Score(),
		Explanation: fmt.Sprintf("User provided %s feedback", feedback),
	}
}

// Annotation converts the event to its wire form.
func (e Event) Annotation() phoenix.SpanAnnotation {
	return phoenix.SpanAnnotation{
		SpanID:        e.SpanID,
		Name:          AnnotationName,
		AnnotatorKind: phoenix.AnnotatorHuman,
		Result: phoenix.AnnotationResult{
			Label:       e.Label,
			Score:       e.Score,
			Explanation: e.Explanation,
		},
		Metadata: map[string]any{},
	}
}

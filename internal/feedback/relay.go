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

// Package feedback delivers user reactions to Phoenix as span annotations.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tombee/postgen/internal/log"
	"github.com/tombee/postgen/pkg/phoenix"
)

// AnnotationPoster sends span annotations. *phoenix.Client implements it.
type AnnotationPoster interface {
	PostSpanAnnotations(ctx context.Context, annotations []phoenix.SpanAnnotation) error
}

// Metrics records delivery outcomes.
type Metrics interface {
	RecordFeedback(ctx context.Context, polarity, status string)
}

// Reason classifies a delivery failure.
type Reason string

const (
	ReasonMissingSpanID Reason = "missing_span_id"
	ReasonTransport     Reason = "transport"
	ReasonStatus        Reason = "status"
)

// DeliveryError describes why an annotation was not recorded.
type DeliveryError struct {
	Reason Reason
	// StatusCode is set when Reason is ReasonStatus.
	StatusCode int
	Cause      error
}

func (e *DeliveryError) Error() string {
	switch e.Reason {
	case ReasonMissingSpanID:
		return "feedback not sent: no span ID"
	case ReasonStatus:
		return fmt.Sprintf("feedback rejected with HTTP %d: %v", e.StatusCode, e.Cause)
	default:
		return fmt.Sprintf("feedback not delivered: %v", e.Cause)
	}
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// Relay forwards feedback. It holds no mutable state and is safe for
// concurrent use.
type Relay struct {
	poster  AnnotationPoster
	logger  *slog.Logger
	metrics Metrics
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithLogger sets the relay's logger.
func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithMetrics records each delivery attempt.
func WithMetrics(m Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

// NewRelay creates a Relay that posts through poster.
func NewRelay(poster AnnotationPoster, opts ...RelayOption) *Relay {
	r := &Relay{poster: poster, logger: log.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = log.WithComponent(r.logger, "feedback")
	return r
}

// Send delivers feedback for spanID and reports whether Phoenix accepted it.
func (r *Relay) Send(ctx context.Context, spanID, feedback string) bool {
	return r.Deliver(ctx, spanID, feedback) == nil
}

// Deliver delivers feedback for spanID with a single request. An empty span
// ID fails without any network call. Failures are returned as *DeliveryError.
func (r *Relay) Deliver(ctx context.Context, spanID, feedback string) error {
	event := NewEvent(spanID, feedback)

	if spanID == "" {
		err := &DeliveryError{Reason: ReasonMissingSpanID}
		r.logger.Debug("feedback skipped", log.PolarityKey, event.Polarity, "reason", err.Reason)
		r.record(ctx, event.Polarity, "skipped")
		return err
	}

	logger := log.WithSpan(r.logger, spanID)

	err := r.poster.PostSpanAnnotations(ctx, []phoenix.SpanAnnotation{event.Annotation()})
	if err != nil {
		delivery := &DeliveryError{Reason: ReasonTransport, Cause: err}
		var statusErr *phoenix.StatusError
		if errors.As(err, &statusErr) {
			delivery.Reason = ReasonStatus
			delivery.StatusCode = statusErr.StatusCode
		}

		logger.Warn("feedback delivery failed", log.PolarityKey, event.Polarity, "reason", delivery.Reason, "error", err)
		r.record(ctx, event.Polarity, "error")
		return delivery
	}

	logger.Info("feedback recorded", log.PolarityKey, event.Polarity)
	r.record(ctx, event.Polarity, "success")
	return nil
}

func (r *Relay) record(ctx context.Context, p Polarity, status string) {
	if r.metrics != nil {
		r.metrics.RecordFeedback(ctx, string(p), status)
	}
}

// Acknowledgement is the message shown to the user after a reaction.
func Acknowledgement(p Polarity, recorded bool) string {
	msg := "Thanks for the feedback! We'll try to improve. 👎"
	if p == Like {
		msg = "Thanks for the positive feedback! 👍"
	}
	if recorded {
		msg += " (Recorded in Phoenix)"
	}
	return msg
}

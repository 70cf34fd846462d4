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

package server

import (
	"errors"
	"net/http"

	"github.com/tombee/postgen/internal/feedback"
)

type errorResponse struct {
	Error string `json:"error"`
}

type generateRequest struct {
	Description string `json:"description"`
}

type generateResponse struct {
	Post   string `json:"post"`
	SpanID string `json:"span_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

type feedbackRequest struct {
	SpanID   string `json:"span_id"`
	Feedback string `json:"feedback"`
}

type feedbackResponse struct {
	Recorded bool   `json:"recorded"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

// handleGenerate runs one generation. A failed generation answers 502 with
// the error text in both post and error so clients never mistake it for content.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.gen.Generate(r.Context(), req.Description)
	if !result.OK() {
		writeJSON(w, http.StatusBadGateway, generateResponse{
			Post:  result.Text,
			Error: result.Err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Post:   result.Text,
		SpanID: result.SpanID,
	})
}

// handleFeedback relays a reaction. Delivery failures are reported in the
// body with recorded=false rather than as an HTTP error.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	polarity := feedback.ParsePolarity(req.Feedback)
	err := s.relay.Deliver(r.Context(), req.SpanID, req.Feedback)

	resp := feedbackResponse{
		Recorded: err == nil,
		Message:  feedback.Acknowledgement(polarity, err == nil),
	}
	if err != nil {
		var delivery *feedback.DeliveryError
		if errors.As(err, &delivery) {
			resp.Error = string(delivery.Reason)
		} else {
			resp.Error = err.Error()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

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

// Package feedback implements the feedback command.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/postgen/internal/commands/completion"
	"github.com/tombee/postgen/internal/commands/shared"
	"github.com/tombee/postgen/internal/feedback"
)

// Response is the --json output of feedback.
type Response struct {
	shared.JSONResponse
	SpanID   string `json:"span_id"`
	Feedback string `json:"feedback"`
	Recorded bool   `json:"recorded"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

// NewFeedbackCommand creates the feedback command
func NewFeedbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback <span-id> <like|dislike>",
		Short: "Record a thumbs up or down on a generated post",
		Long: `Attach a "user feedback" annotation to the generation span in Phoenix.
A like is recorded as 👍 with score 1, a dislike as 👎 with score 0.

The span ID is printed by 'postgen generate' and listed by 'postgen history'.`,
		Example:           `  postgen feedback 3f2a9c1d4b5e6f70 like`,
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: completion.CompleteFeedbackArgs,
		RunE:              runFeedback,
	}
	return cmd
}

func runFeedback(cmd *cobra.Command, args []string) error {
	spanID, value := args[0], args[1]
	if value != string(feedback.Like) && value != string(feedback.Dislike) {
		return shared.NewInvalidInputError(
			fmt.Sprintf("feedback must be %q or %q, got %q", feedback.Like, feedback.Dislike, value), nil)
	}

	cfg, err := shared.LoadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := shared.NewApp(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Close(ctx)
	}()

	polarity := feedback.ParsePolarity(value)
	deliverErr := a.Relay.Deliver(cmd.Context(), spanID, value)
	message := feedback.Acknowledgement(polarity, deliverErr == nil)

	if shared.GetJSON() {
		resp := Response{
			JSONResponse: shared.NewJSONResponse("feedback", deliverErr == nil),
			SpanID:       spanID,
			Feedback:     value,
			Recorded:     deliverErr == nil,
			Message:      message,
		}
		var de *feedback.DeliveryError
		if errors.As(deliverErr, &de) {
			resp.Error = string(de.Reason)
		}
		if err := shared.EmitJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), message)
	}

	if deliverErr != nil {
		return shared.NewFeedbackError("feedback was not recorded", deliverErr)
	}
	return nil
}

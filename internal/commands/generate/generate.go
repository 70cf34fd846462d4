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

// Package generate implements the generate command.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tombee/postgen/internal/commands/shared"
	"github.com/tombee/postgen/internal/config"
	"github.com/tombee/postgen/internal/feedback"
	"github.com/tombee/postgen/internal/generator"
)

const skip = "skip"

// Response is the --json output of generate.
type Response struct {
	shared.JSONResponse
	Post   string `json:"post"`
	SpanID string `json:"span_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// promptFeedback asks for a reaction to the post. Replaced in tests.
var promptFeedback = func() (string, error) {
	choice := skip
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How is this post?").
				Description("Your reaction is recorded in Phoenix on this generation's trace").
				Options(
					huh.NewOption("👍 Like", string(feedback.Like)),
					huh.NewOption("👎 Dislike", string(feedback.Dislike)),
					huh.NewOption("Skip", skip),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return skip, nil
		}
		return "", err
	}
	return choice, nil
}

// interactive reports whether to offer the feedback prompt. Replaced in tests.
var interactive = func() bool {
	return !shared.IsNonInteractive()
}

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	var noFeedback bool

	cmd := &cobra.Command{
		Use:   "generate [description]",
		Short: "Generate a social media post from a product description",
		Long: `Generate a short promotional post (title, message under 100 words, and
hashtags) for a product description. The description is taken from the
arguments, or read from stdin when none are given.

The call is traced to Phoenix. The printed span ID identifies the generation
for 'postgen feedback'. On a terminal you are asked for a thumbs up or down
right away unless --no-feedback is set.`,
		Example: `  postgen generate "Blue ceramic mug, 12oz, dishwasher safe."
  cat product.txt | postgen generate --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, noFeedback)
		},
	}

	cmd.Flags().String(config.FlagModel, "", "Model to use (default: gpt-4o)")
	cmd.Flags().BoolVar(&noFeedback, "no-feedback", false, "Do not prompt for feedback after generating")

	return cmd
}

func run(cmd *cobra.Command, args []string, noFeedback bool) error {
	description, err := readDescription(cmd.InOrStdin(), args)
	if err != nil {
		return err
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

	gen, err := a.Generator()
	if err != nil {
		return shared.NewConfigError("cannot generate posts", err)
	}

	useJSON := shared.GetJSON()

	var spinner *shared.Spinner
	if !useJSON && !shared.GetQuiet() {
		spinner = shared.NewSpinner(cmd.ErrOrStderr())
		spinner.Start("Generating post")
	}
	result := gen.Generate(cmd.Context(), description)
	if spinner != nil {
		spinner.Stop()
	}

	if useJSON {
		return emitResult(cmd.OutOrStdout(), result)
	}

	if !result.OK() {
		return shared.NewGenerationError("generation failed", result.Err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Text)
	if result.SpanID != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n%s %s\n", shared.RenderLabel("Span ID:"), result.SpanID)
	}

	if noFeedback || !result.AcceptsFeedback() || !interactive() {
		return nil
	}

	choice, err := promptFeedback()
	if err != nil {
		return shared.NewExecutionError("feedback prompt failed", err)
	}
	if choice == skip {
		return nil
	}

	recorded := a.Relay.Send(cmd.Context(), result.SpanID, choice)
	fmt.Fprintln(cmd.ErrOrStderr(), feedback.Acknowledgement(feedback.ParsePolarity(choice), recorded))
	return nil
}

func emitResult(w io.Writer, result generator.Result) error {
	resp := Response{
		JSONResponse: shared.NewJSONResponse("generate", result.OK()),
		Post:         result.Text,
		SpanID:       result.SpanID,
	}
	if !result.OK() {
		resp.Error = result.Err.Error()
	}
	if err := shared.EmitJSON(w, resp); err != nil {
		return err
	}
	if !result.OK() {
		return shared.NewGenerationError("generation failed", result.Err)
	}
	return nil
}

// readDescription joins the arguments, or reads stdin when there are none
// and stdin is not a terminal.
func readDescription(stdin io.Reader, args []string) (string, error) {
	description := strings.TrimSpace(strings.Join(args, " "))
	if description != "" {
		return description, nil
	}

	if f, ok := stdin.(*os.File); ok && isTerminal(f) {
		return "", shared.NewInvalidInputError("no product description given", nil)
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", shared.NewInvalidInputError("failed to read description from stdin", err)
	}
	description = strings.TrimSpace(string(data))
	if description == "" {
		return "", shared.NewInvalidInputError("no product description given", nil)
	}
	return description, nil
}

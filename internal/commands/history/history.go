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

// Package history implements the history command, which reads the local
// copy of generation spans.
package history

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/tombee/postgen/internal/commands/completion"
	"github.com/tombee/postgen/internal/commands/shared"
	"github.com/tombee/postgen/internal/config"
	"github.com/tombee/postgen/internal/tracing/storage"
	"github.com/tombee/postgen/pkg/observability"
)

// Entry is one generation in --json output.
type Entry struct {
	SpanID      string    `json:"span_id"`
	TraceID     string    `json:"trace_id"`
	Description string    `json:"description"`
	Post        string    `json:"post,omitempty"`
	Model       string    `json:"model,omitempty"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartTime   time.Time `json:"start_time"`
	DurationMS  int64     `json:"duration_ms"`
}

// ListResponse is the --json output of history.
type ListResponse struct {
	shared.JSONResponse
	Generations []Entry `json:"generations"`
}

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently generated posts",
		Long: `List recent generations recorded on this machine, newest first, with the
span IDs needed for 'postgen feedback'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of generations to list")

	cmd.AddCommand(newShowCommand(), newPruneCommand())
	return cmd
}

func newShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "show <span-id>",
		Short:             "Show one generation in full",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteSpanIDs,
		RunE:              runShow,
	}
}

func newPruneCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete local history older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd, olderThan)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Delete generations older than this")
	return cmd
}

func openStore(cmd *cobra.Command) (*storage.SQLiteStore, error) {
	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		return nil, shared.NewConfigError("failed to load configuration", err)
	}
	if !cfg.History.Enabled {
		p := shared.GetConfigPath()
		if p == "" {
			p, _ = config.ConfigPath()
		}
		return nil, shared.NewConfigError("history is disabled", fmt.Errorf("set history.enabled: true in %s", p))
	}
	store, err := storage.New(storage.Config{Path: cfg.History.Path})
	if err != nil {
		return nil, shared.NewExecutionError("failed to open history", err)
	}
	return store, nil
}

func runList(cmd *cobra.Command, limit int) error {
	if limit < 1 {
		return shared.NewInvalidInputError("--limit must be at least 1", nil)
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	generations, err := store.ListGenerations(cmd.Context(), limit)
	if err != nil {
		return shared.NewExecutionError("failed to read history", err)
	}

	out := cmd.OutOrStdout()

	if shared.GetJSON() {
		resp := ListResponse{
			JSONResponse: shared.NewJSONResponse("history", true),
			Generations:  make([]Entry, 0, len(generations)),
		}
		for _, g := range generations {
			resp.Generations = append(resp.Generations, toEntry(g))
		}
		return shared.EmitJSON(out, resp)
	}

	if len(generations) == 0 {
		fmt.Fprintln(out, "No generations recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSPAN ID\tSTATUS\tMODEL\tDESCRIPTION")
	for _, g := range generations {
		model := g.Model
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			g.StartTime.Local().Format("2006-01-02 15:04:05"),
			g.SpanID,
			status(g),
			model,
			truncate(oneLine(g.Description), 48),
		)
	}
	return w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	span, err := store.GetSpan(cmd.Context(), args[0])
	if err != nil {
		return shared.NewInvalidInputError("no generation with that span ID", err)
	}
	if span.StringAttr(observability.AttrSpanKind) != observability.KindChain {
		return shared.NewInvalidInputError(fmt.Sprintf("span %s is not a generation", args[0]), nil)
	}

	g := storage.Generation{
		SpanID:      span.SpanID,
		TraceID:     span.TraceID,
		Description: span.StringAttr(observability.AttrInputValue),
		Post:        span.StringAttr(observability.AttrOutputValue),
		Status:      span.Status.Code,
		Error:       span.Status.Message,
		StartTime:   span.StartTime,
		EndTime:     span.EndTime,
	}

	out := cmd.OutOrStdout()
	if shared.GetJSON() {
		return shared.EmitJSON(out, struct {
			shared.JSONResponse
			Entry
		}{shared.NewJSONResponse("history show", true), toEntry(g)})
	}

	fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Span ID:"), g.SpanID)
	fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Trace ID:"), g.TraceID)
	fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Time:"), g.StartTime.Local().Format(time.RFC3339))
	fmt.Fprintf(out, "%s %s\n", shared.RenderLabel("Status:"), status(g))
	fmt.Fprintf(out, "\n%s\n%s\n", shared.Header.Render("Description"), g.Description)
	if g.Failed() {
		fmt.Fprintf(out, "\n%s\n%s\n", shared.Header.Render("Error"), g.Error)
	} else {
		fmt.Fprintf(out, "\n%s\n%s\n", shared.Header.Render("Post"), g.Post)
	}
	return nil
}

func runPrune(cmd *cobra.Command, olderThan time.Duration) error {
	if olderThan <= 0 {
		return shared.NewInvalidInputError("--older-than must be positive", nil)
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	deleted, err := store.DeleteSpansOlderThan(cmd.Context(), time.Now().Add(-olderThan))
	if err != nil {
		return shared.NewExecutionError("failed to prune history", err)
	}

	if shared.GetJSON() {
		return shared.EmitJSON(cmd.OutOrStdout(), struct {
			shared.JSONResponse
			Deleted int64 `json:"deleted_spans"`
		}{shared.NewJSONResponse("history prune", true), deleted})
	}
	if !shared.GetQuiet() {
		fmt.Fprintln(cmd.OutOrStdout(), shared.RenderOK(fmt.Sprintf("Deleted %d spans", deleted)))
	}
	return nil
}

func toEntry(g storage.Generation) Entry {
	return Entry{
		SpanID:      g.SpanID,
		TraceID:     g.TraceID,
		Description: g.Description,
		Post:        g.Post,
		Model:       g.Model,
		Status:      status(g),
		Error:       g.Error,
		StartTime:   g.StartTime,
		DurationMS:  g.EndTime.Sub(g.StartTime).Milliseconds(),
	}
}

func status(g storage.Generation) string {
	if g.Failed() {
		return "error"
	}
	return "ok"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate shortens s to max runes, ending with "...".
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}

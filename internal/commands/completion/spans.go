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

package completion

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/postgen/internal/config"
	"github.com/tombee/postgen/internal/tracing/storage"
)

const (
	historyTimeout   = 200 * time.Millisecond
	maxSpanCompletes = 20
)

// SafeCompletionWrapper wraps a completion function with panic recovery.
// Returns empty completion list on panic or error.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}

// CompleteSpanIDs completes span IDs of successful generations from local
// history, described by the start of the product description.
func CompleteSpanIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		cfg, err := config.Load("")
		if err != nil || !cfg.History.Enabled {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		store, err := storage.New(storage.Config{Path: cfg.History.Path})
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		defer cancel()

		generations, err := store.ListGenerations(ctx, maxSpanCompletes)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		completions := make([]string, 0, len(generations))
		for _, g := range generations {
			if g.Failed() {
				continue
			}
			// Format: "spanID\tdescription"
			completions = append(completions, g.SpanID+"\t"+describe(g.Description))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteFeedbackArgs completes `feedback <span-id> <like|dislike>`.
func CompleteFeedbackArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return CompleteSpanIDs(cmd, args, toComplete)
	case 1:
		return []string{"like\tThumbs up", "dislike\tThumbs down"}, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{}, cobra.ShellCompDirectiveNoFileComp
}

// CompleteKeyProviders completes the auth --provider flag.
func CompleteKeyProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{"openai\tOpenAI API key", "phoenix\tPhoenix API key"}, cobra.ShellCompDirectiveNoFileComp
}

func describe(description string) string {
	const max = 40
	runes := []rune(description)
	for i, r := range runes {
		if r == '\n' || r == '\t' {
			runes = runes[:i]
			break
		}
	}
	if len(runes) > max {
		return string(runes[:max-3]) + "..."
	}
	return string(runes)
}

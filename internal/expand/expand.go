// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package expand produces related query terms for a set of seed topics.
// Producers are opaque, possibly slow, possibly failing; the package
// guarantees the length contract: Terms always returns exactly the
// requested count, padding from a deterministic template fallback and
// truncating any surplus.
package expand

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// Expander produces related query strings for seed terms.
type Expander interface {
	Expand(ctx context.Context, seeds []string, count int) ([]string, error)
}

// Terms invokes the expander and enforces the guaranteed-length contract.
// A nil expander or a failed call falls back entirely to template terms.
func Terms(ctx context.Context, e Expander, seeds []string, count int) []string {
	if count <= 0 {
		return nil
	}
	var terms []string
	if e != nil {
		if got, err := e.Expand(ctx, seeds, count); err == nil {
			terms = got
		}
	}
	return Conform(terms, seeds, count)
}

// fallbackTemplates derive query variants from a seed term. Ordered by
// usefulness; cycled when more padding is needed.
var fallbackTemplates = []string{
	"%s funding",
	"%s innovation",
	"%s policy",
	"%s research",
	"%s technology",
	"%s startups",
	"%s regulation",
}

// Conform pads or truncates terms to exactly count entries, dropping
// blanks and duplicates first. Padding comes from seed-derived templates.
func Conform(terms, seeds []string, count int) []string {
	if count <= 0 {
		return nil
	}

	seen := make(map[string]bool)
	out := make([]string, 0, count)
	add := func(term string) {
		term = strings.TrimSpace(term)
		if term == "" || seen[strings.ToLower(term)] || len(out) >= count {
			return
		}
		seen[strings.ToLower(term)] = true
		out = append(out, term)
	}

	for _, t := range terms {
		add(t)
	}

	if len(seeds) == 0 {
		seeds = []string{"emerging trends"}
	}
	for i := 0; len(out) < count; i++ {
		tmpl := fallbackTemplates[i%len(fallbackTemplates)]
		seed := seeds[(i/len(fallbackTemplates))%len(seeds)]
		add(fmt.Sprintf(tmpl, seed))
		if i > count*len(fallbackTemplates)*len(seeds) {
			// Template space exhausted; repeat the raw seed to honor the
			// length contract.
			out = append(out, seed)
		}
	}
	return out
}

// OpenAIExpander asks a chat model for related search queries.
type OpenAIExpander struct {
	client *openai.Client
	cfg    types.AIConfig
}

// NewOpenAIExpander builds an expander over the configured model.
func NewOpenAIExpander(cfg types.AIConfig) *OpenAIExpander {
	return &OpenAIExpander{client: openai.NewClient(cfg.APIKey), cfg: cfg}
}

// Expand requests count related queries, one per line. The caller (Terms)
// enforces the length contract, so short or noisy responses are fine here.
func (e *OpenAIExpander) Expand(ctx context.Context, seeds []string, count int) ([]string, error) {
	prompt := fmt.Sprintf(
		"List %d short web search queries related to: %s.\nOne query per line, no numbering, no commentary.",
		count, strings.Join(seeds, ", "))

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("expansion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty expansion response")
	}

	var terms []string
	for _, line := range strings.Split(resp.Choices[0].Message.Content, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "-•* \t")
		if line != "" {
			terms = append(terms, line)
		}
	}
	return terms, nil
}

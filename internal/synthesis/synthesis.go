// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synthesis turns a scan's context text into a short narrative
// via a generative-text provider. The provider is a single opaque call;
// when it is unconfigured or unreachable, callers receive the well-known
// Unavailable sentinel instead of an error-shaped surprise.
package synthesis

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	openai "github.com/sashabaranov/go-openai"

	"github.com/phia-francis/nesta-signal-scout-sub000/pkg/types"
)

// Request holds the formatted context and the mode the instruction
// template is selected by.
type Request struct {
	// Topic is the scanned topic, for the prompt preamble.
	Topic string

	// Mode names the scan mode; it selects the instruction template.
	Mode string

	// Context is the formatted signal context text.
	Context string
}

// Synthesis is a generated narrative with a 0-1 confidence estimate.
type Synthesis struct {
	Narrative  string  `json:"narrative" yaml:"narrative"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Model      string  `json:"model,omitempty" yaml:"model,omitempty"`
}

// Unavailable is the sentinel returned when no provider is configured or
// the call failed.
var Unavailable = Synthesis{
	Narrative:  "Synthesis unavailable: no generative provider reachable.",
	Confidence: 0,
}

// Synthesizer produces a narrative for a request.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Synthesis, error)
}

// instructionTmpl is the prompt sent to the provider. Mode-specific
// framing keeps deep dives analytical and quick scans terse.
var instructionTmpl = template.Must(template.New("synthesis").Parse(`You are a horizon-scanning analyst. Topic: {{.Topic}}.

{{.Instruction}}

Signals:
{{.Context}}

End your answer with a line "CONFIDENCE: X" where X is a number between 0.0 and 1.0 reflecting how well the signals support the narrative.`))

// modeInstructions frame the narrative per scan mode.
var modeInstructions = map[string]string{
	"radar":        "Summarize the emerging movement across these signals in 3-4 sentences.",
	"deep":         "Write an analytical brief: what is changing, who is funding it, and what to watch next. 2 short paragraphs.",
	"quick":        "One sentence: the single most notable development.",
	"monitor":      "Note only what changed recently and whether attention is growing. 2-3 sentences.",
	"research":     "Write an evidence-weighted synthesis of the research landscape. 2 short paragraphs.",
	"intelligence": "Brief a decision-maker: opportunities, risks, and one recommended action. 3-5 sentences.",
}

// confidencePattern extracts the trailing confidence line.
var confidencePattern = regexp.MustCompile(`(?i)CONFIDENCE:\s*([0-9]*\.?[0-9]+)`)

// OpenAISynthesizer calls a chat model for synthesis.
type OpenAISynthesizer struct {
	client *openai.Client
	cfg    types.AIConfig
}

// NewOpenAISynthesizer builds a synthesizer over the configured model.
func NewOpenAISynthesizer(cfg types.AIConfig) *OpenAISynthesizer {
	return &OpenAISynthesizer{client: openai.NewClient(cfg.APIKey), cfg: cfg}
}

// Synthesize renders the mode template and performs the provider call.
func (s *OpenAISynthesizer) Synthesize(ctx context.Context, req Request) (Synthesis, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Unavailable, err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return Unavailable, fmt.Errorf("synthesis request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Unavailable, fmt.Errorf("empty synthesis response")
	}

	narrative, confidence := ParseNarrative(resp.Choices[0].Message.Content)
	return Synthesis{
		Narrative:  narrative,
		Confidence: confidence,
		Model:      s.cfg.Model,
	}, nil
}

// BuildPrompt renders the instruction template for a request. Unknown
// modes fall back to the radar instruction.
func BuildPrompt(req Request) (string, error) {
	instruction, ok := modeInstructions[req.Mode]
	if !ok {
		instruction = modeInstructions["radar"]
	}

	var b strings.Builder
	err := instructionTmpl.Execute(&b, struct {
		Topic       string
		Instruction string
		Context     string
	}{Topic: req.Topic, Instruction: instruction, Context: req.Context})
	if err != nil {
		return "", fmt.Errorf("rendering synthesis prompt: %w", err)
	}
	return b.String(), nil
}

// ParseNarrative splits a raw response into narrative text and the
// trailing confidence value. A missing or unparseable confidence line
// yields 0.5: the model answered but did not self-assess.
func ParseNarrative(raw string) (string, float64) {
	confidence := 0.5
	if m := confidencePattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			confidence = v
			if confidence < 0 {
				confidence = 0
			}
			if confidence > 1 {
				confidence = 1
			}
		}
		raw = confidencePattern.ReplaceAllString(raw, "")
	}
	return strings.TrimSpace(raw), confidence
}

package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kalambet/pulse/internal/feedback"
	"github.com/kalambet/pulse/internal/llm"
)

const generationTimeout = 30 * time.Second

// ErrUnparseable marks a model response that is not valid JSON even after
// fence stripping. Callers treat it as an upstream failure.
var ErrUnparseable = errors.New("model output is not valid JSON")

// Chatter is the generative model dependency.
type Chatter interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

// Normalizer maps arbitrary raw feedback input into the canonical record
// shape by driving a generative model and validating its output.
type Normalizer struct {
	client Chatter
}

// New creates a Normalizer backed by the given model client.
func New(client Chatter) *Normalizer {
	return &Normalizer{client: client}
}

// Normalize runs one generation call over the raw input and returns the
// validated canonical record. A model response that cannot be parsed as
// JSON is a hard failure: the record's basic shape could not be recovered,
// so the caller must fail the ingestion. Out-of-range values inside a
// parseable response are the Validator's job and never fail.
func (n *Normalizer) Normalize(ctx context.Context, raw map[string]any) (feedback.Feedback, error) {
	rawJSON, err := json.Marshal(raw)
	if err != nil {
		return feedback.Feedback{}, fmt.Errorf("serializing raw input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	out, err := n.client.Generate(ctx, BuildPrompt(rawJSON))
	if err != nil {
		return feedback.Feedback{}, fmt.Errorf("generating canonical record: %w", err)
	}

	var candidate map[string]any
	if err := json.Unmarshal([]byte(stripFences(out)), &candidate); err != nil {
		return feedback.Feedback{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	return feedback.Validate(candidate), nil
}

// stripFences removes an optional fenced-code-block wrapper (with or
// without a language tag) around the model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")

	// A language tag may sit between the fence and the first newline.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		first := strings.TrimSpace(s[:idx])
		if first == "" || isLangTag(first) {
			s = s[idx+1:]
		}
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isLangTag(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

package normalize

import (
	"fmt"
	"strings"

	"github.com/kalambet/pulse/internal/feedback"
	"github.com/kalambet/pulse/internal/llm"
)

const systemPromptTemplate = `You are a feedback normalization engine. You receive one raw feedback record as JSON. The record may use any field names and any shape. Your output must be ONLY a single valid JSON object with exactly these fields:

- "id": string, copy verbatim from the input if present, otherwise omit
- "created_at": RFC3339 timestamp, copy from the input if present, otherwise omit
- "source": one of [%s]
- "source_url": string URL if present in the input
- "product_area": one of [%s] — use "other" when uncertain
- "title": short title, at most 100 characters
- "author": string if present in the input
- "thread_id": string if present in the input
- "body_text": the full feedback text, concatenated from whatever text the input carries
- "sentiment": one of [%s]
- "urgency": one of [%s] — "p1" only for outages or data loss
- "tags": array of short lowercase topic strings
- "confidence": object with numeric scores in [0,1] for "product_area", "sentiment", "urgency"

Rules:
- Copy identity fields (id, created_at, source, source_url, author, thread_id) verbatim; never invent them.
- Judge sentiment and urgency from the text itself.
- Do not include any prose, explanation, or markdown around the JSON.`

// BuildPrompt constructs the chat messages for one canonicalization call:
// a fixed instruction describing the canonical shape and closed sets, plus
// the serialized raw input as the user turn.
func BuildPrompt(rawJSON []byte) []llm.Message {
	system := fmt.Sprintf(systemPromptTemplate,
		quoteSet(feedback.Sources()),
		quoteSet(feedback.ProductAreas()),
		quoteSet(feedback.Sentiments()),
		quoteSet(feedback.Urgencies()),
	)

	return []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: string(rawJSON)},
	}
}

func quoteSet(members []string) string {
	quoted := make([]string, len(members))
	for i, m := range members {
		quoted[i] = `"` + m + `"`
	}
	return strings.Join(quoted, ", ")
}

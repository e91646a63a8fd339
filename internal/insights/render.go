package insights

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kalambet/pulse/internal/feedback"
)

const (
	// chatMessageLimit is the platform ceiling for one chat message.
	chatMessageLimit = 2000

	// keyThemesLen is the rune budget for the digest summary section.
	keyThemesLen = 600

	// sampleExcerptLen is the rune budget for one high-urgency bullet.
	sampleExcerptLen = 150

	ellipsis = "…"
)

var sentimentEmoji = map[string]string{
	"positive": "😊",
	"neutral":  "😐",
	"negative": "😠",
}

// Truncate returns s unchanged when it fits within n runes, otherwise the
// first n-1 runes with an ellipsis appended. The result never exceeds n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + ellipsis
}

// RenderAnswer formats an ask result for chat delivery.
func RenderAnswer(a Answer) string {
	var b strings.Builder
	b.WriteString(a.Answer)

	if len(a.Citations) > 0 {
		b.WriteString("\n\n**Sources**\n")
		for _, c := range a.Citations {
			b.WriteString("- " + c.Text)
			if c.SourceURL != "" {
				b.WriteString(" (<" + c.SourceURL + ">)")
			}
			b.WriteString("\n")
		}
	}

	return Truncate(b.String(), chatMessageLimit)
}

// RenderDigest formats a digest report for chat delivery.
func RenderDigest(r Report) string {
	if r.Total == 0 {
		return fmt.Sprintf("No feedback recorded for %s.", r.Date)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Feedback Digest for %s**\n\n", r.Date)
	fmt.Fprintf(&b, "Total feedback: %d\n\n", r.Total)

	sources := make([]string, 0, len(r.SourceSentiment))
	for src := range r.SourceSentiment {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		c := r.SourceSentiment[src]
		fmt.Fprintf(&b, "%s: %s %d  %s %d  %s %d\n",
			src,
			sentimentEmoji["positive"], c.Positive,
			sentimentEmoji["neutral"], c.Neutral,
			sentimentEmoji["negative"], c.Negative,
		)
	}

	if len(r.UrgencyCounts) > 0 {
		parts := make([]string, 0, 4)
		for _, level := range feedback.Urgencies() {
			parts = append(parts, fmt.Sprintf("%s %d", level, r.UrgencyCounts[level]))
		}
		fmt.Fprintf(&b, "\nUrgency (last 7 days): %s\n", strings.Join(parts, " | "))
	}

	if r.AISummary != "" {
		b.WriteString("\n**Key Themes**\n")
		b.WriteString(Truncate(r.AISummary, keyThemesLen))
		b.WriteString("\n")
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n**High Urgency**\n")
		for _, s := range r.Samples {
			b.WriteString("- " + Truncate(s.BodyText, sampleExcerptLen))
			if s.SourceURL != "" {
				b.WriteString(" (<" + s.SourceURL + ">)")
			}
			b.WriteString("\n")
		}
	}

	return Truncate(b.String(), chatMessageLimit)
}

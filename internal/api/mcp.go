package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/pulse/internal/insights"
)

// NewMCPServer creates an MCP server exposing the feedback tools. It
// shares the HTTP surface's dependencies so both paths go through the
// same normalization and persistence code.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"pulse",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("pulse — user feedback triage: ingest raw feedback, ask questions over it, and pull daily digests."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ingest_feedback",
			mcp.WithDescription("Normalize one raw feedback payload (any JSON shape) into the canonical schema and persist it."),
			mcp.WithString("record", mcp.Description("Raw feedback as a JSON object string"), mcp.Required()),
		),
		mcpIngestFeedback(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_feedback",
			mcp.WithDescription("Ask a natural-language question over the stored feedback and get a cited answer."),
			mcp.WithString("query", mcp.Description("Question to ask"), mcp.Required()),
		),
		mcpAskFeedback(deps),
	)

	s.AddTool(
		mcp.NewTool("daily_digest",
			mcp.WithDescription("Build the feedback digest for one day: totals, sentiment by source, urgency counts, and an AI summary."),
			mcp.WithString("date", mcp.Description("Day to report on as YYYY-MM-DD (default today)")),
		),
		mcpDailyDigest(deps),
	)

	return s
}

func mcpIngestFeedback(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		record, err := req.RequireString("record")
		if err != nil {
			return mcpError("record is required"), nil
		}

		var raw map[string]any
		if err := json.Unmarshal([]byte(record), &raw); err != nil {
			return mcpError(fmt.Sprintf("record is not a JSON object: %v", err)), nil
		}

		fb, err := deps.Normalizer.Normalize(ctx, raw)
		if err != nil {
			return mcpError(fmt.Sprintf("normalization failed: %v", err)), nil
		}

		key, err := deps.Gateway.Persist(ctx, fb)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to persist feedback: %v", err)), nil
		}

		b, err := json.Marshal(ingestResponse{
			Success:   true,
			ID:        fb.ID,
			CreatedAt: fb.CreatedAt.UTC().Format(time.RFC3339),
			R2Key:     key,
			Normalized: normalizedRecord{
				Source:      fb.Source,
				ProductArea: fb.ProductArea,
				Sentiment:   fb.Sentiment,
				Urgency:     fb.Urgency,
				Title:       fb.Title,
				Tags:        fb.Tags,
			},
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpAskFeedback(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		a := deps.Insights.Ask(ctx, query)
		return mcpText(insights.RenderAnswer(a)), nil
	}
}

func mcpDailyDigest(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		day := time.Now().UTC()
		if date := req.GetString("date", ""); date != "" {
			parsed, err := time.Parse("2006-01-02", date)
			if err != nil {
				return mcpError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date)), nil
			}
			day = parsed
		}

		report, err := deps.Insights.Digest(ctx, day)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to build digest: %v", err)), nil
		}

		return mcpText(insights.RenderDigest(report)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// Package interactions implements the deferred slash-command state machine:
// synchronous acknowledgment inside the webhook window, one background task
// per acknowledgment, and exactly one completion edit per task.
package interactions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/pulse/internal/discord"
	"github.com/kalambet/pulse/internal/insights"
)

const (
	// taskTimeout bounds one background completion, edit included.
	taskTimeout = 60 * time.Second

	// errorMessage is the fixed completion edit when a deferred command
	// fails. Users never see raw errors.
	errorMessage = "Something went wrong while processing your request."
)

// Insights answers questions and composes digests for chat delivery.
type Insights interface {
	Ask(ctx context.Context, query string) insights.Answer
	Digest(ctx context.Context, day time.Time) (insights.Report, error)
}

// Editor sends the completion edit for a deferred interaction.
type Editor interface {
	EditOriginal(ctx context.Context, appID, token, content string) error
}

// Handler routes interactions to synchronous responses and background tasks.
type Handler struct {
	insights Insights
	editor   Editor
	sessions *Registry
	runner   *Runner
	timeout  time.Duration
}

func NewHandler(ins Insights, editor Editor, sessions *Registry, runner *Runner) *Handler {
	return &Handler{
		insights: ins,
		editor:   editor,
		sessions: sessions,
		runner:   runner,
		timeout:  taskTimeout,
	}
}

// Handle processes one interaction and returns the synchronous response.
// Any background work is started before returning; the response itself is
// always immediate.
func (h *Handler) Handle(in discord.Interaction) discord.Response {
	switch in.Type {
	case discord.InteractionPing:
		return discord.Response{Type: discord.ResponsePong}
	case discord.InteractionApplicationCommand:
		return h.handleCommand(in)
	default:
		return ephemeral("This interaction type isn't supported.")
	}
}

func (h *Handler) handleCommand(in discord.Interaction) discord.Response {
	if in.Data == nil {
		return ephemeral("This interaction type isn't supported.")
	}

	switch in.Data.Name {
	case "ask":
		query, ok := in.Data.StringOption("query")
		query = strings.TrimSpace(query)
		if !ok || query == "" {
			// Validation failures answer synchronously; no task starts.
			return ephemeral("Please provide a query, e.g. /ask query: what are users saying about billing?")
		}
		return h.deferAndRun(in, func(ctx context.Context) (string, error) {
			return insights.RenderAnswer(h.insights.Ask(ctx, query)), nil
		})

	case "digest":
		day := time.Now().UTC()
		if raw, ok := in.Data.StringOption("date"); ok && strings.TrimSpace(raw) != "" {
			parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
			if err != nil {
				return ephemeral("Dates look like 2026-03-01. Try again?")
			}
			day = parsed
		}
		return h.deferAndRun(in, func(ctx context.Context) (string, error) {
			report, err := h.insights.Digest(ctx, day)
			if err != nil {
				return "", err
			}
			return insights.RenderDigest(report), nil
		})

	default:
		return ephemeral(fmt.Sprintf("Unknown command %q.", in.Data.Name))
	}
}

// deferAndRun acknowledges the command and schedules its completion. The
// acknowledgment promises exactly one edit, so the session registers first
// and anything that prevents the task from starting cancels the deferral.
func (h *Handler) deferAndRun(in discord.Interaction, task func(ctx context.Context) (string, error)) discord.Response {
	sess := Session{
		AppID:     in.ApplicationID,
		Token:     in.Token,
		Command:   in.Data.Name,
		StartedAt: time.Now().UTC(),
	}
	if err := h.sessions.Register(sess); err != nil {
		return ephemeral("I'm still working on that one.")
	}

	run := func() {
		defer h.sessions.Deregister(sess.Token)

		// Detached from the webhook request: the edit must happen even
		// though the HTTP exchange is long over.
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		content, err := task(ctx)
		if err != nil {
			slog.Error("deferred command failed", "command", sess.Command, "error", err)
			content = errorMessage
		}
		if err := h.editor.EditOriginal(ctx, sess.AppID, sess.Token, content); err != nil {
			slog.Error("completion edit failed", "command", sess.Command, "error", err)
		}
	}

	if !h.runner.Submit(run) {
		h.sessions.Deregister(sess.Token)
		return ephemeral("The service is busy right now. Please try again in a moment.")
	}

	return discord.Response{Type: discord.ResponseDeferredMessage}
}

func ephemeral(content string) discord.Response {
	return discord.Response{
		Type: discord.ResponseChannelMessage,
		Data: &discord.ResponseData{
			Content: content,
			Flags:   discord.MessageFlagEphemeral,
		},
	}
}

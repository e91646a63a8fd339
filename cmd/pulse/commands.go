package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/pulse/internal/config"
	"github.com/kalambet/pulse/internal/discord"
	"github.com/kalambet/pulse/internal/extract"
	"github.com/kalambet/pulse/internal/gateway"
	"github.com/kalambet/pulse/internal/objstore"
	"github.com/kalambet/pulse/internal/storage"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Send one piece of raw feedback for normalization",
	Long: `Send one piece of raw feedback for normalization.

Examples:
  pulse ingest --text "the dashboard is painfully slow"
  pulse ingest --file ./ticket.pdf --url https://support.example.com/t/123
  pulse ingest --json '{"text":"crash on login","username":"sam","channel":"#bugs"}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		file, _ := cmd.Flags().GetString("file")
		rawJSON, _ := cmd.Flags().GetString("json")
		url, _ := cmd.Flags().GetString("url")
		author, _ := cmd.Flags().GetString("author")
		title, _ := cmd.Flags().GetString("title")

		if text == "" && file == "" && rawJSON == "" {
			return fmt.Errorf("one of --text, --file, or --json is required")
		}

		req := map[string]any{}
		switch {
		case rawJSON != "":
			if err := json.Unmarshal([]byte(rawJSON), &req); err != nil {
				return fmt.Errorf("--json is not a JSON object: %w", err)
			}
		case file != "":
			content, err := extract.FromFile(file)
			if err != nil {
				return err
			}
			req["text"] = content
			if title == "" {
				title = file
			}
		default:
			req["text"] = text
		}
		if url != "" {
			req["url"] = url
		}
		if author != "" {
			req["author"] = author
		}
		if title != "" {
			req["title"] = title
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ingest", req)
		if err != nil {
			return err
		}

		var result struct {
			ID         string `json:"id"`
			R2Key      string `json:"r2_key"`
			Normalized struct {
				Source      string `json:"source"`
				ProductArea string `json:"product_area"`
				Sentiment   string `json:"sentiment"`
				Urgency     string `json:"urgency"`
			} `json:"normalized"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Stored feedback %s", result.ID)
		printStatus("Source", "%s / %s", result.Normalized.Source, result.Normalized.ProductArea)
		printStatus("Triage", "%s sentiment, %s urgency", result.Normalized.Sentiment, result.Normalized.Urgency)
		printStatus("Object", "%s", result.R2Key)
		return nil
	},
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question over the recorded feedback",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ask", map[string]any{"query": query})
		if err != nil {
			return err
		}

		var result struct {
			Answer    string `json:"answer"`
			Citations []struct {
				Text      string `json:"text"`
				SourceURL string `json:"source_url"`
			} `json:"citations"`
			Debug struct {
				Fallback bool `json:"fallback"`
			} `json:"debug"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Answer)
		for i, c := range result.Citations {
			fmt.Printf("\n%s %s\n", colorize(colorBold, fmt.Sprintf("[%d]", i+1)), c.Text)
			if c.SourceURL != "" {
				fmt.Printf("    %s\n", colorize(colorCyan, c.SourceURL))
			}
		}
		if result.Debug.Fallback {
			printWarning("search was unavailable; this is a fallback answer")
		}
		return nil
	},
}

// --- digest ---

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Show the feedback digest for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{}
		if date != "" {
			body["date"] = date
		}
		resp, err := client.post(cmd.Context(), "/digest", body)
		if err != nil {
			return err
		}

		var result struct {
			Date          string `json:"date"`
			TotalFeedback int    `json:"total_feedback"`
			StatsBySource map[string]struct {
				Positive int `json:"positive"`
				Neutral  int `json:"neutral"`
				Negative int `json:"negative"`
			} `json:"stats_by_source_sentiment"`
			UrgencyCounts      map[string]int          `json:"urgency_counts"`
			HighUrgencySamples []storage.UrgencySample `json:"high_urgency_samples"`
			AISummary          string                  `json:"ai_summary"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.TotalFeedback == 0 {
			fmt.Printf("No feedback recorded for %s.\n", result.Date)
			return nil
		}

		fmt.Printf("%s\n\n", colorize(colorBold, "Feedback Digest for "+result.Date))
		fmt.Printf("Total feedback: %d\n", result.TotalFeedback)

		sources := make([]string, 0, len(result.StatsBySource))
		for src := range result.StatsBySource {
			sources = append(sources, src)
		}
		sort.Strings(sources)
		for _, src := range sources {
			c := result.StatsBySource[src]
			fmt.Printf("  %-12s +%d  ~%d  -%d\n", src, c.Positive, c.Neutral, c.Negative)
		}

		if len(result.UrgencyCounts) > 0 {
			parts := make([]string, 0, len(result.UrgencyCounts))
			for _, u := range []string{"low", "medium", "high", "p1"} {
				parts = append(parts, fmt.Sprintf("%s %d", u, result.UrgencyCounts[u]))
			}
			fmt.Printf("\nUrgency (last 7 days): %s\n", strings.Join(parts, " | "))
		}

		if result.AISummary != "" {
			fmt.Printf("\n%s\n%s\n", colorize(colorBold, "Key Themes"), result.AISummary)
		}

		if len(result.HighUrgencySamples) > 0 {
			fmt.Printf("\n%s\n", colorize(colorBold, "High Urgency"))
			for _, s := range result.HighUrgencySamples {
				fmt.Printf("  - %s\n", s.BodyText)
				if s.SourceURL != "" {
					fmt.Printf("    %s\n", colorize(colorCyan, s.SourceURL))
				}
			}
		}
		return nil
	},
}

// --- register-commands ---

var registerCommandsCmd = &cobra.Command{
	Use:   "register-commands",
	Short: "Register the slash commands with the chat platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.DiscordAppID == "" || cfg.DiscordBotToken == "" {
			return fmt.Errorf("DISCORD_APP_ID and DISCORD_BOT_TOKEN are required")
		}

		cmds := []discord.Command{
			{
				Name:        "ask",
				Description: "Ask a question over the recorded feedback",
				Options: []discord.CommandOption{
					{Type: discord.OptionTypeString, Name: "query", Description: "What do you want to know?", Required: true},
				},
			},
			{
				Name:        "digest",
				Description: "Daily feedback digest",
				Options: []discord.CommandOption{
					{Type: discord.OptionTypeString, Name: "date", Description: "Day to report on (YYYY-MM-DD)"},
				},
			},
		}

		client := discord.NewClient(cfg.DiscordBotToken)
		if err := client.RegisterCommands(cmd.Context(), cfg.DiscordAppID, cmds); err != nil {
			return err
		}

		printSuccess("Registered %d commands for app %s", len(cmds), cfg.DiscordAppID)
		return nil
	},
}

// --- backfill ---

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Rebuild the relational copy from the object store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.S3Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required")
		}

		objects, err := objstore.New(objstore.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return fmt.Errorf("configuring object store: %w", err)
		}

		store, err := storage.Open(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		gw := gateway.New(objects, store)
		ctx := cmd.Context()

		keys, err := objects.List(ctx, "feedback/")
		if err != nil {
			return fmt.Errorf("listing objects: %w", err)
		}
		printStep("Reindexing %d objects...", len(keys))

		var failed int
		for _, key := range keys {
			objBody, err := objects.Get(ctx, key)
			if err != nil {
				printError("fetch %s: %v", key, err)
				failed++
				continue
			}
			if _, err := gw.Reindex(ctx, key, objBody); err != nil {
				printError("reindex %s: %v", key, err)
				failed++
			}
		}

		if failed > 0 {
			printWarning("%d of %d objects failed", failed, len(keys))
		}
		printSuccess("Reindexed %d feedback records", len(keys)-failed)
		return nil
	},
}

func init() {
	ingestCmd.Flags().String("text", "", "feedback text to ingest")
	ingestCmd.Flags().String("file", "", "file to extract text from (txt, md, html, pdf)")
	ingestCmd.Flags().String("json", "", "raw feedback payload as a JSON object")
	ingestCmd.Flags().String("url", "", "link back to the original feedback")
	ingestCmd.Flags().String("author", "", "author of the feedback")
	ingestCmd.Flags().String("title", "", "title for the feedback")

	digestCmd.Flags().String("date", "", "day to report on (YYYY-MM-DD, default today)")
}

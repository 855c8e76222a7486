// Command narrative runs the story-generation pipeline, either as a local
// one-shot generation or as an HTTP/SSE service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/storyloom/narrative/internal/agent"
	"github.com/storyloom/narrative/internal/config"
	"github.com/storyloom/narrative/internal/persist"
	"github.com/storyloom/narrative/internal/pipeline"
	"github.com/storyloom/narrative/internal/server"
	"github.com/storyloom/narrative/internal/stage"
	"github.com/storyloom/narrative/internal/storage"
	"github.com/storyloom/narrative/internal/story"
)

func main() {
	root := &cobra.Command{
		Use:   "narrative",
		Short: "AI-assisted serialized fiction pipeline",
	}

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	root.AddCommand(generateCmd(), serveCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var req story.GenerationRequest
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a story from a prompt and print progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orchestrator, cleanup, err := buildOrchestrator(dryRun)
			if err != nil {
				return err
			}
			defer cleanup()

			run, events, err := orchestrator.StartGeneration(ctx, req)
			if err != nil {
				return err
			}
			slog.Info("run started", "run_id", run.ID)

			for ev := range events {
				fmt.Printf("[%4d] %-14s %s\n", ev.Seq, ev.Phase, ev.Message)
				if ev.Terminal {
					if payload, err := json.MarshalIndent(ev.Payload, "", "  "); err == nil && ev.Payload != nil {
						fmt.Println(string(payload))
					}
					if ev.Phase == pipeline.PhaseFailed {
						return fmt.Errorf("generation failed")
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Prompt, "prompt", "p", "", "story premise (required)")
	cmd.Flags().StringVar(&req.Genre, "genre", "", "genre hint")
	cmd.Flags().StringVar(&req.Tone, "tone", "", "tone hint")
	cmd.Flags().IntVar(&req.CharacterCount, "characters", 0, "number of characters")
	cmd.Flags().IntVar(&req.PartCount, "parts", 0, "number of parts")
	cmd.Flags().IntVar(&req.ChaptersPerPart, "chapters", 0, "chapters per part")
	cmd.Flags().IntVar(&req.ScenesPerChapter, "scenes", 0, "scenes per chapter")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "use the mock backend and an in-memory store")
	cmd.MarkFlagRequired("prompt")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation API over HTTP/SSE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			orchestrator, store, cleanup, err := orchestratorFromConfig(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			return server.New(orchestrator, store, slog.Default()).Run(cfg.Server.Addr)
		},
	}
}

func buildOrchestrator(dryRun bool) (*pipeline.Orchestrator, func(), error) {
	if dryRun {
		orchestrator := pipeline.New(agent.NewMockGenerator(), persist.NewWriter(persist.NewMemStore(), slog.Default()))
		return orchestrator, func() {}, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	orchestrator, _, cleanup, err := orchestratorFromConfig(cfg)
	return orchestrator, cleanup, err
}

func orchestratorFromConfig(cfg *config.Config) (*pipeline.Orchestrator, *persist.SQLiteStore, func(), error) {
	client := agent.NewClient(cfg.AI.APIKey,
		agent.WithAPIConfig(cfg.AI.BaseURL, cfg.AI.Model),
		agent.WithTimeout(cfg.Limits.CallTimeout),
		agent.WithRetry(cfg.Limits.MaxRetries),
		agent.WithRateLimit(cfg.Limits.RateLimit.RequestsPerMinute, cfg.Limits.RateLimit.BurstSize),
	)

	store, err := persist.OpenSQLite(cfg.Paths.Database, slog.Default())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}

	stageCfg := stage.DefaultConfig()
	stageCfg.Model = cfg.AI.Model
	stageCfg.Temperature = cfg.AI.Temperature
	stageCfg.CallTimeout = cfg.Limits.CallTimeout

	orchestrator := pipeline.New(client, persist.NewWriter(store, slog.Default()),
		pipeline.WithWorkers(cfg.Limits.SceneWorkers),
		pipeline.WithRunTimeout(cfg.Limits.RunTimeout),
		pipeline.WithBufferSize(cfg.Limits.EventBuffer),
		pipeline.WithStageConfig(stageCfg),
		pipeline.WithArtifacts(storage.NewFileSystem(cfg.Paths.Artifacts)),
	)

	return orchestrator, store, func() { store.Close() }, nil
}

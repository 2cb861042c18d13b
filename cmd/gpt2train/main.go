// Command gpt2train trains, samples from, and serves a GPT-2-style model
// over a YAML config.Config, sequencing the model/train/optim/checkpoint
// packages the way the core's driver-composes-them contract intends.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"atomic-gpt-explorer/checkpoint"
	"atomic-gpt-explorer/config"
	"atomic-gpt-explorer/model"
	"atomic-gpt-explorer/ops"
	"atomic-gpt-explorer/server"
	"atomic-gpt-explorer/tokenizer"
	"atomic-gpt-explorer/train"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "gpt2train",
		Short: "Train, sample from, and serve a GPT-2-style model",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional, defaults are used otherwise)")

	root.AddCommand(newTrainCmd(&configPath))
	root.AddCommand(newGenerateCmd(&configPath))
	root.AddCommand(newServeCmd(&configPath))
	return root
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func newTrainCmd(configPath *string) *cobra.Command {
	var corpusPath string
	var steps int
	var workers int

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run the training loop against a text corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if steps > 0 {
				cfg.Training.Steps = steps
			}
			if corpusPath == "" {
				corpusPath = cfg.Training.CorpusPath
			}
			if corpusPath == "" {
				return fmt.Errorf("train: no corpus provided (use --corpus or training.corpus_path)")
			}

			raw, err := os.ReadFile(corpusPath)
			if err != nil {
				return fmt.Errorf("train: read corpus: %w", err)
			}

			pool := ops.Pool(ops.NewPool(workers))
			log := newLogger()
			loop := train.New(cfg, tokenizer.New(), pool, log, []string{string(raw)})

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if cfg.Training.CheckpointDir != "" {
				if err := os.MkdirAll(cfg.Training.CheckpointDir, 0o755); err != nil {
					return fmt.Errorf("train: create checkpoint dir: %w", err)
				}
			}

			return loop.Run(ctx, cfg.Training.Steps)
		},
	}
	cmd.Flags().StringVar(&corpusPath, "corpus", "", "path to a plain-text training corpus")
	cmd.Flags().IntVar(&steps, "steps", 0, "override the number of training steps from config")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")
	return cmd
}

func newGenerateCmd(configPath *string) *cobra.Command {
	var checkpointPath string
	var prompt string
	var maxNewTokens int
	var temperature float32
	var topK int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Sample text from a trained checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkpointPath == "" {
				return fmt.Errorf("generate: --checkpoint is required")
			}
			_, _, w, err := checkpoint.Load(checkpointPath)
			if err != nil {
				return err
			}

			tok := tokenizer.New()
			pool := ops.Pool(ops.NewPool(0))
			out := model.Generate(pool, w, tok, newSeededRand(), tok.Encode(prompt), model.GenerateOptions{
				Temperature:  temperature,
				TopK:         topK,
				MaxNewTokens: maxNewTokens,
			})
			fmt.Println(tok.Decode(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "path to a checkpoint produced by train")
	cmd.Flags().StringVar(&prompt, "prompt", "", "prompt text to continue")
	cmd.Flags().IntVar(&maxNewTokens, "max-new-tokens", 64, "number of tokens to generate")
	cmd.Flags().Float32Var(&temperature, "temperature", 0.7, "sampling temperature")
	cmd.Flags().IntVar(&topK, "top-k", 0, "restrict sampling to the top-k tokens (0 = disabled)")
	return cmd
}

func newSeededRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

func newServeCmd(configPath *string) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the training/generation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			pool := ops.Pool(ops.NewPool(workers))
			log := newLogger()
			srv := server.New(pool, log)
			log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
			return srv.Routes().Run(cfg.Server.Addr)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")
	return cmd
}

// Copyright 2025 Candlekeep Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/candlekeep/oracle"
	"github.com/candlekeep/oracle/ai"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "oracle",
		Usage: "Answer D&D questions from a monster store and a lore corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question from the monster store and lore corpus",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{
						Name:  "session",
						Usage: "Opaque session identifier echoed in the response",
					},
				),
			},
			{
				Name:      "narrate",
				Usage:     "Generate narrative prose for a scene prompt",
				ArgsUsage: "<prompt>",
				Action:    narrateCommand,
				Flags: append(connectionFlags(),
					&cli.StringFlag{
						Name:    "style",
						Aliases: []string{"s"},
						Usage:   "Narration style (mysterious, dramatic, action, neutral)",
						Value:   "neutral",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "store",
			Usage:    "Path to the SQLite monster store",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "index",
			Usage:    "Path to the BadgerDB lore index directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "Model service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Completion model name",
			Value: "qwen2.5:3b",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
	}
}

func openOracle(c *cli.Context) (*oracle.Oracle, error) {
	config := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithCompletionModel(c.String("completion-model")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model configuration: %w", err)
	}

	return oracle.New(c.String("store"), c.String("index"), oracle.WithAIConfig(config))
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	o, err := openOracle(c)
	if err != nil {
		return err
	}
	defer o.Close()

	envelope := o.Answer(context.Background(), question, c.String("session"))
	if !envelope.Success {
		return cli.Exit(envelope.Message, 1)
	}

	fmt.Println(envelope.Answer)
	fmt.Printf("\nroute: %s\n", envelope.Route)
	if len(envelope.Sources) > 0 {
		fmt.Printf("sources: %s\n", strings.Join(envelope.Sources, ", "))
	}
	fmt.Printf("elapsed: %s\n", envelope.Diagnostics.Elapsed.Round(time.Millisecond))
	return nil
}

func narrateCommand(c *cli.Context) error {
	prompt := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if prompt == "" {
		return fmt.Errorf("a scene prompt is required")
	}

	o, err := openOracle(c)
	if err != nil {
		return err
	}
	defer o.Close()

	narration, err := o.Narrate(context.Background(), prompt, c.String("style"))
	if err != nil {
		return err
	}

	fmt.Println(narration)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", levelStr)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	return nil
}

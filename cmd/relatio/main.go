// Copyright 2025 Poiesic Systems
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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/relatio"
	"github.com/poiesic/relatio/config"
	"github.com/poiesic/relatio/core"
	"github.com/poiesic/relatio/index"
	"github.com/poiesic/relatio/ingest"
	"github.com/poiesic/relatio/retrieve"
)

func main() {
	app := &cli.App{
		Name:  "relatio",
		Usage: "Contextual retrieval over mail, wiki, and file documents",
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
				Name:   "ingest",
				Usage:  "Ingest documents from a JSON file or directory",
				Action: ingestCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to a document JSON file or a directory of them",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source-name",
						Usage: "Sync cursor name for this input",
						Value: "file",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Run a contextual query against ingested documents",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of primary results",
						Value:   10,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Restrict results to one source system (mail, wiki, file)",
					},
					&cli.StringFlag{
						Name:  "author",
						Usage: "Restrict results to documents by this author",
					},
					&cli.TimestampFlag{
						Name:   "since",
						Usage:  "Only documents created on or after this time",
						Layout: time.RFC3339,
					},
					&cli.TimestampFlag{
						Name:   "until",
						Usage:  "Only documents created before this time",
						Layout: time.RFC3339,
					},
					&cli.StringFlag{
						Name:  "hint",
						Usage: "Context hint biasing the ranking, e.g. a project name",
					},
					&cli.StringFlag{
						Name:  "prefer-author",
						Usage: "Author whose chunks get an authorship boost",
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Embed the vectorless backlog, or everything with --all",
				Action: reembedCommand,
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Re-embed every chunk, not just the backlog",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to the database directory (overrides config)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a TOML configuration file",
		},
	}
}

// openSystem loads configuration and opens the system for a command.
func openSystem(c *cli.Context) (*relatio.System, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}
	if cfg.Storage.Path == "" {
		return nil, fmt.Errorf("database path is required (--db or storage.path in config)")
	}

	return relatio.NewSystem(c.Context, cfg)
}

func ingestCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	pipeline, err := system.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	if _, err := os.Stat(c.String("input")); err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	source := ingest.NewFileSource(c.String("source-name"), c.String("input"))

	if err := pipeline.Run(c.Context, source); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	diagnostics := pipeline.Diagnostics()
	for _, diag := range diagnostics {
		fmt.Fprintf(os.Stderr, "skipped document %d at %s: %s\n",
			diag.DocumentID, diag.Stage, diag.Reason)
	}
	fmt.Fprintf(os.Stderr, "Ingestion complete (%d documents skipped)\n", len(diagnostics))

	return nil
}

func searchCommand(c *cli.Context) error {
	queryText := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if queryText == "" {
		return fmt.Errorf("a query is required")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	engine, err := system.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	filter := index.Filter{
		Author: c.String("author"),
	}
	if since := c.Timestamp("since"); since != nil {
		filter.After = *since
	}
	if until := c.Timestamp("until"); until != nil {
		filter.Before = *until
	}
	if source := c.String("source"); source != "" {
		sourceType, err := core.ParseSourceType(source)
		if err != nil {
			return err
		}
		filter.SourceTypes = []core.SourceType{sourceType}
	}

	result, err := engine.Retrieve(c.Context, retrieve.Query{
		Text:            queryText,
		ContextHint:     c.String("hint"),
		PreferredAuthor: c.String("prefer-author"),
		Filter:          filter,
		Limit:           c.Int("limit"),
	})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	response, err := engine.Contextualize(c.Context, result)
	if err != nil {
		return fmt.Errorf("failed to assemble results: %w", err)
	}

	printResponse(response)
	return nil
}

func printResponse(response *retrieve.Response) {
	fmt.Printf("Found %d results\n", len(response.Results))
	if response.ExpansionSkipped {
		fmt.Println("(relationship expansion skipped: stage budget exceeded)")
	}

	for i, item := range response.Results {
		marker := " "
		if item.Related {
			marker = "+"
		}
		fmt.Printf("%s %2d. [%.3f] %s: %s", marker, i+1, item.FinalScore, item.Source, item.Title)
		if item.Author != "" {
			fmt.Printf(" (%s)", item.Author)
		}
		if item.AgeBucket != "" {
			fmt.Printf(" [%s]", item.AgeBucket)
		}
		fmt.Println()

		if item.Relationship != "" {
			fmt.Printf("       %s\n", item.Relationship)
		}
		fmt.Printf("       %s\n", excerpt(item.Text, 160))
	}
}

// excerpt truncates text to at most n runes on a single line.
func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

func reembedCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	reembedder, err := system.NewReembedder(c.Bool("all"), os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create reembedder: %w", err)
	}

	if err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("re-embedding failed: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

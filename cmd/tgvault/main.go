// Copyright 2025 The tgvault Authors
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

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "tgvault",
		Usage: "Telegram chat archive with semantic search",
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
				Name:   "backfill",
				Usage:  "Embed archived messages that are missing a vector",
				Action: backfillCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of messages to process in each batch",
						Value: 100,
					},
					&cli.Int64Flag{
						Name:  "chat-id",
						Usage: "Restrict the run to a single chat",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N messages",
						Value: 100,
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Semantically search the archive",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "chat-id",
						Usage: "Restrict results to a single chat",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Restrict results to a message type (text, photo, ...)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Skip the first N results",
					},
					&cli.StringFlag{
						Name:  "from",
						Usage: "Only messages sent at or after this RFC3339 time",
					},
					&cli.StringFlag{
						Name:  "to",
						Usage: "Only messages sent before this RFC3339 time",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the read-only archive API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (overrides ADDR)",
					},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Long-poll Telegram and archive incoming messages",
				Action: ingestCommand,
			},
			{
				Name:   "seed",
				Usage:  "Insert sample chats and messages for local development",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of sample messages per chat",
						Value: 50,
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	level, err := parseLogLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", raw)
}

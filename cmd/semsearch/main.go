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

	"github.com/poiesic/semsearch/ai"
	"github.com/poiesic/semsearch/backfill"
	"github.com/poiesic/semsearch/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	backfillDefaults := backfill.DefaultConfig()
	return &cli.App{
		Name:  "semsearch",
		Usage: "Semantic search over a product catalog",
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
				Name:      "import",
				Usage:     "Import catalog items from a JSON file",
				ArgsUsage: "FILE",
				Action:    importCommand,
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:  "no-embed",
						Usage: "Store items without embedding them; run backfill later",
					},
				),
			},
			{
				Name:   "backfill",
				Usage:  "Embed every item that has no stored vector",
				Action: backfillCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of items to embed in each batch",
						Value: backfillDefaults.BatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N items",
						Value: backfillDefaults.ReportInterval,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per item for retryable failures",
						Value: backfillDefaults.MaxRetries,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: backfillDefaults.RetryDelay,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of batches embedded in parallel",
						Value: backfillDefaults.Concurrency,
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Find the items most similar to a query",
				ArgsUsage: "QUERY...",
				Action:    searchCommand,
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results",
						Value:   search.DefaultLimit,
					},
					&cli.Float64Flag{
						Name:    "threshold",
						Aliases: []string{"t"},
						Usage:   "Minimum cosine similarity of a result",
						Value:   search.DefaultThreshold,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Bound on the query embedding call (0 disables)",
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show item counts, the corpus stamp and the active provider",
				Action: statusCommand,
				Flags:  commonFlags(),
			},
		},
	}
}

// commonFlags returns the store and provider flags shared by every command.
// A fresh slice is returned so commands can append their own flags.
func commonFlags() []cli.Flag {
	defaults := ai.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			EnvVars:  []string{"SEMSEARCH_DB"},
			Required: true,
		},
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   "Embedding provider (" + strings.Join(ai.KnownProviders, ", ") + ")",
			EnvVars: []string{"EMBEDDING_PROVIDER"},
			Value:   defaults.Provider,
		},
		&cli.IntFlag{
			Name:    "dimension",
			Usage:   "Override the provider's vector dimension",
			EnvVars: []string{"EMBEDDING_DIMENSION"},
		},
		&cli.DurationFlag{
			Name:    "request-timeout",
			Usage:   "Bound on each outbound embedding call",
			EnvVars: []string{"EMBEDDING_REQUEST_TIMEOUT"},
			Value:   defaults.RequestTimeout,
		},
		&cli.StringFlag{
			Name:    "openai-key",
			Usage:   "OpenAI API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "openai-model",
			Usage:   "OpenAI embedding model",
			EnvVars: []string{"OPENAI_EMBEDDING_MODEL"},
			Value:   defaults.OpenAIModel,
		},
		&cli.StringFlag{
			Name:    "openai-base-url",
			Usage:   "OpenAI API base URL",
			EnvVars: []string{"OPENAI_BASE_URL"},
			Value:   defaults.OpenAIBaseURL,
		},
		&cli.StringFlag{
			Name:    "azure-endpoint",
			Usage:   "Azure OpenAI resource endpoint",
			EnvVars: []string{"AZURE_OPENAI_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "azure-key",
			Usage:   "Azure OpenAI API key",
			EnvVars: []string{"AZURE_OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "azure-deployment",
			Usage:   "Azure OpenAI embedding deployment",
			EnvVars: []string{"AZURE_OPENAI_DEPLOYMENT"},
			Value:   defaults.AzureDeployment,
		},
		&cli.StringFlag{
			Name:    "ollama-host",
			Usage:   "Ollama server URL",
			EnvVars: []string{"OLLAMA_HOST"},
			Value:   defaults.OllamaHost,
		},
		&cli.StringFlag{
			Name:    "ollama-model",
			Usage:   "Ollama embedding model",
			EnvVars: []string{"OLLAMA_EMBEDDING_MODEL"},
			Value:   defaults.OllamaModel,
		},
		&cli.StringFlag{
			Name:    "vertex-project",
			Usage:   "Google Cloud project for Vertex AI",
			EnvVars: []string{"GOOGLE_CLOUD_PROJECT"},
		},
		&cli.StringFlag{
			Name:    "vertex-location",
			Usage:   "Google Cloud region for Vertex AI",
			EnvVars: []string{"GOOGLE_CLOUD_LOCATION"},
			Value:   defaults.VertexLocation,
		},
		&cli.StringFlag{
			Name:    "vertex-model",
			Usage:   "Vertex AI embedding model",
			EnvVars: []string{"VERTEX_EMBEDDING_MODEL"},
			Value:   defaults.VertexModel,
		},
		&cli.StringFlag{
			Name:    "vertex-token",
			Usage:   "OAuth2 access token for Vertex AI",
			EnvVars: []string{"VERTEX_ACCESS_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "precomputed-file",
			Usage:   "JSON file of precomputed embeddings",
			EnvVars: []string{"PRECOMPUTED_EMBEDDINGS_FILE"},
		},
		&cli.BoolFlag{
			Name:    "precomputed-strict",
			Usage:   "Fail on precomputed cache misses instead of using a fallback vector",
			EnvVars: []string{"PRECOMPUTED_STRICT"},
		},
	}
}

// aiConfigFromFlags builds the provider configuration for a command.
func aiConfigFromFlags(c *cli.Context) *ai.Config {
	config := ai.NewConfig(
		ai.WithProvider(c.String("provider")),
		ai.WithDimension(c.Int("dimension")),
		ai.WithRequestTimeout(c.Duration("request-timeout")),
		ai.WithOpenAI(c.String("openai-key"), c.String("openai-model")),
		ai.WithOpenAIBaseURL(c.String("openai-base-url")),
		ai.WithAzure(c.String("azure-endpoint"), c.String("azure-key"), c.String("azure-deployment")),
		ai.WithOllama(c.String("ollama-host"), c.String("ollama-model")),
		ai.WithVertex(c.String("vertex-project"), c.String("vertex-location"), c.String("vertex-token")),
		ai.WithPrecomputedFile(c.String("precomputed-file"), c.Bool("precomputed-strict")),
	)
	if model := c.String("vertex-model"); model != "" {
		config.VertexModel = model
	}
	return config
}

// backfillConfigFromFlags builds and checks the backfill configuration.
func backfillConfigFromFlags(c *cli.Context) (*backfill.Config, error) {
	config := &backfill.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Concurrency:    c.Int("concurrency"),
	}

	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return nil, fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return nil, fmt.Errorf("max-retries must be greater than 0")
	}
	if config.RetryDelay < 0 {
		return nil, fmt.Errorf("retry-delay must not be negative")
	}
	if config.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be greater than 0")
	}
	return config, nil
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

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

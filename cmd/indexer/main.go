package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/utafrali/aisearch/internal/app"
	"github.com/utafrali/aisearch/internal/categoryboost"
	"github.com/utafrali/aisearch/internal/config"
	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/event"
	"github.com/utafrali/aisearch/internal/rollout"
	"github.com/utafrali/aisearch/pkg/database"
	pkgkafka "github.com/utafrali/aisearch/pkg/kafka"
	"github.com/utafrali/aisearch/pkg/logger"
)

const serviceName = "aisearch-indexer"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runner carries the state the Before hook prepares for every command.
type runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newApp() *cli.App {
	r := &runner{}
	return &cli.App{
		Name:  "indexer",
		Usage: "Operate the product search index: rollouts, synonyms and boost rules",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override LOG_LEVEL (debug, info, warn, error)",
			},
		},
		Before: r.setup,
		Commands: []*cli.Command{
			{
				Name:   "rollout",
				Usage:  "Build a new versioned index from the product source and swap the read alias to it",
				Action: r.rolloutCommand,
			},
			{
				Name:   "reload-synonyms",
				Usage:  "Push a synonym rule file to the synonym set and reload search analyzers",
				Action: r.reloadSynonymsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "PRODUCTION or REGRESSION",
						Value: string(domain.SynonymModeProduction),
					},
					&cli.StringFlag{
						Name:  "index",
						Usage: "Index or alias to reload (defaults to the read alias)",
					},
					&cli.StringFlag{
						Name:  "synonyms-set",
						Usage: "Synonym set id (defaults to AISEARCH_SYNONYMS_SET)",
					},
				},
			},
			{
				Name:   "ensure-synonyms",
				Usage:  "Push the production synonym rules without reloading analyzers",
				Action: r.ensureSynonymsCommand,
			},
			{
				Name:   "publish-category-boost",
				Usage:  "Publish a category boost rule file to Redis",
				Action: r.publishCategoryBoostCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "JSON or YAML rule document",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "key",
						Usage: "Redis hash key (defaults to AISEARCH_CATEGORY_BOOST_REDIS_KEY)",
					},
				},
			},
		},
	}
}

func (r *runner) setup(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if l := c.String("log-level"); l != "" {
		level = l
	}
	// Logs go to stderr so that command output stays machine readable.
	r.cfg = cfg
	r.logger = logger.NewWithWriter(serviceName, level, c.App.ErrWriter)
	return nil
}

func (r *runner) rolloutCommand(c *cli.Context) error {
	ctx := c.Context

	components, err := app.NewComponents(ctx, r.cfg, r.logger)
	if err != nil {
		return err
	}
	defer components.Close()

	var notifier rollout.Notifier
	if r.cfg.KafkaEnabled() {
		producer := pkgkafka.NewProducer(r.cfg.KafkaBrokers, r.logger)
		defer producer.Close()
		notifier = event.NewRolloutPublisher(producer, serviceName, r.logger)
	}

	orchestrator, err := components.NewOrchestrator(ctx, notifier)
	if err != nil {
		return err
	}
	result, err := orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	return writeJSON(c, result)
}

func (r *runner) reloadSynonymsCommand(c *cli.Context) error {
	ctx := c.Context

	mode, err := domain.ParseSynonymMode(c.String("mode"))
	if err != nil {
		return err
	}

	components, err := app.NewComponents(ctx, r.cfg, r.logger)
	if err != nil {
		return err
	}
	defer components.Close()

	result, err := components.Synonyms.Reload(ctx, domain.SynonymReloadRequest{
		Mode:         mode,
		Index:        c.String("index"),
		SynonymSetID: c.String("synonyms-set"),
	})
	if err != nil {
		return err
	}
	return writeJSON(c, result)
}

func (r *runner) ensureSynonymsCommand(c *cli.Context) error {
	ctx := c.Context

	components, err := app.NewComponents(ctx, r.cfg, r.logger)
	if err != nil {
		return err
	}
	defer components.Close()

	count, err := components.Synonyms.EnsureProductionSet(ctx)
	if err != nil {
		return err
	}
	return writeJSON(c, map[string]any{
		"synonymsSet": components.Synonyms.SetID(),
		"ruleCount":   count,
	})
}

func (r *runner) publishCategoryBoostCommand(c *cli.Context) error {
	ctx := c.Context

	doc, err := categoryboost.NewFileSource(c.String("file")).Load(ctx)
	if err != nil {
		return err
	}
	// Parse before publishing so that a bad document never reaches readers.
	rules, err := domain.NewCategoryBoostRuleSet(doc)
	if err != nil {
		return fmt.Errorf("rule file %s: %w", c.String("file"), err)
	}

	client, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     r.cfg.RedisHost,
		Port:     r.cfg.RedisPort,
		Password: r.cfg.RedisPassword,
		DB:       r.cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	key := c.String("key")
	if key == "" {
		key = r.cfg.CategoryBoostRedisKey
	}
	if err := categoryboost.NewRedisSource(client, key).Publish(ctx, doc); err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "category boost rules published",
		slog.String("key", key),
		slog.String("version", rules.Version()),
	)
	return writeJSON(c, map[string]any{
		"key":       key,
		"version":   rules.Version(),
		"ruleCount": rules.Len(),
	})
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"sentinel/internal/adapters/config"
	sqliteclient "sentinel/internal/adapters/sqlite"
	"sentinel/internal/domain/article"
	"sentinel/internal/pipeline"
	"sentinel/internal/queue"
	sqliterepo "sentinel/internal/repository/sqlite"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// publishBatchLimit bounds a single publish scan. The ingest worker
// picks up anything beyond it on its next run.
const publishBatchLimit = 10000

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()
	log := logger.Get()

	ctx := context.Background()

	switch os.Args[1] {
	case "reset":
		err = runReset(ctx, cfg, log)
	case "seed":
		err = runSeed(ctx, cfg, log)
	case "status":
		err = runStatus(ctx, cfg)
	case "publish-all":
		err = runPublish(ctx, cfg, log, 0)
	case "publish-recent":
		hours := 24
		if len(os.Args) > 2 {
			hours, err = strconv.Atoi(os.Args[2])
			if err != nil || hours <= 0 {
				fmt.Fprintln(os.Stderr, "publish-recent: hours must be a positive integer")
				os.Exit(1)
			}
		}
		err = runPublish(ctx, cfg, log, hours)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: devtool <command>

Commands:
  reset                  Drop and recreate all tables (refused in production)
  seed                   Insert canned test articles into the knowledge database
  status                 Print database and queue counts
  publish-all            Enqueue every unprocessed raw article for analysis
  publish-recent [hours] Enqueue unprocessed raw articles from the last N hours (default 24)`)
}

func runReset(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	if cfg.App.Env == "production" {
		return errors.New("reset is not allowed in production")
	}

	if err := resetDatabase(ctx, cfg.Database.RiskPath, cfg.Database,
		"news_articles", "risk_calculations", "sse_events", "tasks"); err != nil {
		return errors.Wrap(err, "reset risk database")
	}
	if err := resetDatabase(ctx, cfg.Database.KnowledgePath, cfg.Database,
		"raw_news_data"); err != nil {
		return errors.Wrap(err, "reset knowledge database")
	}

	log.Info("✓ Databases reset")
	return nil
}

// resetDatabase drops the given tables and reopens the client, which
// recreates the schema.
func resetDatabase(ctx context.Context, path string, cfg config.DatabaseConfig, tables ...string) error {
	client, err := sqliteclient.NewClient(path, cfg)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if _, err := client.DB().ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			client.Close()
			return errors.Wrapf(err, "drop %s", table)
		}
	}
	if err := client.Close(); err != nil {
		return err
	}

	client, err = sqliteclient.NewClient(path, cfg)
	if err != nil {
		return err
	}
	return client.Close()
}

func runSeed(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	client, err := sqliteclient.NewClient(cfg.Database.KnowledgePath, cfg.Database)
	if err != nil {
		return errors.Wrap(err, "open knowledge database")
	}
	defer client.Close()

	repo := sqliterepo.NewRawArticleRepository(client.DB())
	now := time.Now().UTC()

	seedArticles := []article.Raw{
		{
			Headline:    "Federal Reserve signals two additional rate hikes this year",
			Content:     "The Federal Reserve indicated it expects to raise interest rates twice more this year, citing persistent inflation in services and a tight labor market. Bond markets sold off sharply on the announcement.",
			SourceName:  "Reuters",
			URL:         "https://example.com/fed-rate-hikes",
			PublishedAt: now.Add(-2 * time.Hour),
		},
		{
			Headline:    "Regional bank reports unexpected loan loss provisions",
			Content:     "A mid-sized regional bank disclosed loan loss provisions three times analyst estimates, driven by deteriorating commercial real estate exposure. Shares fell 18% in pre-market trading.",
			SourceName:  "Bloomberg",
			URL:         "https://example.com/regional-bank-losses",
			PublishedAt: now.Add(-4 * time.Hour),
		},
		{
			Headline:    "Major exchange halts trading after system outage",
			Content:     "Trading was halted for two hours following a failure in the matching engine. The exchange said no orders were lost but regulators have opened an inquiry into operational resilience.",
			SourceName:  "Financial Times",
			URL:         "https://example.com/exchange-outage",
			PublishedAt: now.Add(-6 * time.Hour),
		},
		{
			Headline:    "Corporate bond issuance hits quarterly record",
			Content:     "Investment-grade issuers priced a record volume of new debt this quarter as treasurers moved to lock in rates ahead of expected tightening. Spreads remained stable.",
			SourceName:  "Reuters",
			URL:         "https://example.com/bond-issuance-record",
			PublishedAt: now.Add(-8 * time.Hour),
		},
		{
			Headline:    "Money market fund outflows accelerate for third week",
			Content:     "Institutional investors pulled $45 billion from prime money market funds, the third consecutive weekly outflow, raising questions about short-term funding conditions.",
			SourceName:  "Wall Street Journal",
			URL:         "https://example.com/mmf-outflows",
			PublishedAt: now.Add(-12 * time.Hour),
		},
	}

	for i := range seedArticles {
		id, err := repo.Insert(ctx, &seedArticles[i])
		if err != nil {
			return errors.Wrapf(err, "seed article %d", i+1)
		}
		log.Infow("Seeded article", "id", id, "headline", seedArticles[i].Headline)
	}

	log.Infof("✓ Seeded %d articles", len(seedArticles))
	return nil
}

func runStatus(ctx context.Context, cfg *config.Config) error {
	riskClient, err := sqliteclient.NewClient(cfg.Database.RiskPath, cfg.Database)
	if err != nil {
		return errors.Wrap(err, "open risk database")
	}
	defer riskClient.Close()

	knowledgeClient, err := sqliteclient.NewClient(cfg.Database.KnowledgePath, cfg.Database)
	if err != nil {
		return errors.Wrap(err, "open knowledge database")
	}
	defer knowledgeClient.Close()

	raws := sqliterepo.NewRawArticleRepository(knowledgeClient.DB())
	articles := sqliterepo.NewArticleRepository(riskClient.DB())
	calcs := sqliterepo.NewCalculationRepository(riskClient.DB())
	backend := queue.NewSQLiteBackend(riskClient.DB())

	total, processed, err := raws.Counts(ctx)
	if err != nil {
		return err
	}
	articleCount, err := articles.Count(ctx)
	if err != nil {
		return err
	}
	depth, err := backend.Depth(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Raw news:          %s total, %s processed, %s pending\n",
		humanize.Comma(total), humanize.Comma(processed), humanize.Comma(total-processed))
	fmt.Printf("Analyzed articles: %s\n", humanize.Comma(articleCount))
	fmt.Printf("Queue depth:       %s\n", humanize.Comma(depth))

	latest, err := calcs.Latest(ctx)
	if errors.Is(err, errors.ErrNotFound) {
		fmt.Println("Risk score:        no calculations yet")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Risk score:        %.1f (%s) for %s, %d articles\n",
		latest.Score, latest.Trend, latest.Date, latest.ArticleCount)

	fmt.Printf("Exposure:          $%s\n", humanize.CommafWithDigits(latest.TotalExposure.InexactFloat64(), 0))
	return nil
}

// runPublish enqueues unprocessed raw articles for analysis. hours == 0
// means all of them; otherwise only those published within the given
// window of the newest unprocessed article.
func runPublish(ctx context.Context, cfg *config.Config, log *logger.Logger, hours int) error {
	riskClient, err := sqliteclient.NewClient(cfg.Database.RiskPath, cfg.Database)
	if err != nil {
		return errors.Wrap(err, "open risk database")
	}
	defer riskClient.Close()

	knowledgeClient, err := sqliteclient.NewClient(cfg.Database.KnowledgePath, cfg.Database)
	if err != nil {
		return errors.Wrap(err, "open knowledge database")
	}
	defer knowledgeClient.Close()

	raws := sqliterepo.NewRawArticleRepository(knowledgeClient.DB())
	q := queue.New(queue.NewSQLiteBackend(riskClient.DB()), cfg.Queue, log)

	pending, err := raws.Unprocessed(ctx, publishBatchLimit)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Info("No unprocessed articles to publish")
		return nil
	}

	if hours > 0 {
		// Window is anchored at the newest unprocessed article, not
		// wall-clock now, so stale backlogs can still be republished.
		latest := pending[0].PublishedAt
		for _, raw := range pending {
			if raw.PublishedAt.After(latest) {
				latest = raw.PublishedAt
			}
		}
		cutoff := latest.Add(-time.Duration(hours) * time.Hour)

		recent := pending[:0]
		for _, raw := range pending {
			if !raw.PublishedAt.Before(cutoff) {
				recent = append(recent, raw)
			}
		}
		pending = recent
	}

	enqueued := 0
	for _, raw := range pending {
		taskID, err := q.Enqueue(ctx, pipeline.TaskProcessArticle, pipeline.ProcessArticleArgs{NewsID: raw.ID})
		if err != nil {
			log.Errorw("Failed to enqueue article", "news_id", raw.ID, "error", err)
			continue
		}
		log.Debugw("Enqueued article", "news_id", raw.ID, "task_id", taskID)
		enqueued++
	}

	log.Infof("✓ Published %d of %d unprocessed articles", enqueued, len(pending))
	return nil
}

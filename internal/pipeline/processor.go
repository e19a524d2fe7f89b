package pipeline

import (
	"context"
	"encoding/json"

	"github.com/dustin/go-humanize"

	"sentinel/internal/adapters/config"
	"sentinel/internal/domain/article"
	domainRisk "sentinel/internal/domain/risk"
	"sentinel/internal/events"
	"sentinel/internal/metrics"
	"sentinel/internal/queue"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// Queue task names.
const (
	TaskProcessArticle  = "process_article"
	TaskRecalculateRisk = "recalculate_risk"
)

// ProcessArticleArgs is the payload of a process_article task.
type ProcessArticleArgs struct {
	NewsID int64 `json:"news_id"`
}

// Analyzer produces an accepted risk analysis for a raw article.
type Analyzer interface {
	Optimize(ctx context.Context, raw *article.Raw) (*article.RiskAnalysis, article.Meta, error)
}

// Relevance gates articles before the expensive analysis.
type Relevance interface {
	ShouldProcess(ctx context.Context, raw *article.Raw) bool
}

// ThemeClassifier assigns a financial risk theme.
type ThemeClassifier interface {
	Classify(ctx context.Context, headline, content string, riskCategories []string) article.ThemeResult
}

// RiskRecalculator rebuilds the daily aggregate.
type RiskRecalculator interface {
	RecalculateLatest(ctx context.Context) (*domainRisk.DailyCalculation, error)
}

// Processor drives one raw article through the full analysis pipeline.
//
// The raw row is marked processed only after every other step finished:
// a crash anywhere before that replays the article, and the duplicate
// check absorbs the replay. That ordering is what turns the queue's
// at-least-once delivery into effectively-once storage.
type Processor struct {
	raws       article.RawRepository
	articles   article.Repository
	relevance  Relevance
	analyzer   Analyzer
	classifier ThemeClassifier
	risk       RiskRecalculator
	emitter    *events.Emitter
	cfg        config.PipelineConfig
	log        *logger.Logger
}

// NewProcessor creates a pipeline processor.
func NewProcessor(
	raws article.RawRepository,
	articles article.Repository,
	relevance Relevance,
	analyzer Analyzer,
	classifier ThemeClassifier,
	risk RiskRecalculator,
	emitter *events.Emitter,
	cfg config.PipelineConfig,
	log *logger.Logger,
) *Processor {
	return &Processor{
		raws:       raws,
		articles:   articles,
		relevance:  relevance,
		analyzer:   analyzer,
		classifier: classifier,
		risk:       risk,
		emitter:    emitter,
		cfg:        cfg,
		log:        log.With("component", "pipeline"),
	}
}

// Register wires the processor's task handlers into the queue.
func (p *Processor) Register(q *queue.Queue) {
	q.Register(TaskProcessArticle, p.HandleProcessArticle)
	q.Register(TaskRecalculateRisk, p.HandleRecalculateRisk)
}

// HandleProcessArticle is the process_article task handler.
func (p *Processor) HandleProcessArticle(ctx context.Context, args json.RawMessage) error {
	var parsed ProcessArticleArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return errors.Fatal(errors.Wrap(err, "parse task args"))
	}

	if err := p.ProcessArticle(ctx, parsed.NewsID); err != nil {
		// Best effort: the error column is diagnostics for operators,
		// the queue's retry bookkeeping is the source of truth.
		if markErr := p.raws.MarkFailed(ctx, parsed.NewsID, err.Error()); markErr != nil {
			p.log.Warn("Failed to record processing error", "news_id", parsed.NewsID, "error", markErr)
		}
		return err
	}
	return nil
}

// HandleRecalculateRisk is the recalculate_risk task handler.
func (p *Processor) HandleRecalculateRisk(ctx context.Context, _ json.RawMessage) error {
	_, err := p.risk.RecalculateLatest(ctx)
	return err
}

// ProcessArticle runs the full pipeline for one raw article. The
// returned error's kind controls the queue's verdict: fatal errors go
// to the dead letter log, everything else consumes a retry.
func (p *Processor) ProcessArticle(ctx context.Context, rawID int64) error {
	log := p.log.With("news_id", rawID)

	raw, err := p.raws.Get(ctx, rawID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			// The row is gone; retrying cannot bring it back.
			return errors.Fatal(err)
		}
		return err
	}
	log = log.With("headline", raw.Headline)

	if !p.relevance.ShouldProcess(ctx, raw) {
		log.Info("Article skipped by prefilter")
		return p.finish(ctx, rawID, "skipped_prefilter")
	}

	analysis, meta, err := p.analyzer.Optimize(ctx, raw)
	if err != nil {
		// Evaluator rejections and validation failures stay retryable:
		// the model output varies between attempts, so a later run can
		// produce an analysis that passes.
		return err
	}

	categories := append([]string{analysis.PrimaryRiskCategory}, analysis.SecondaryRiskCategories...)
	theme := p.classifier.Classify(ctx, raw.Headline, raw.Content, categories)

	// Positive news is out of scope for a risk dashboard.
	if analysis.SentimentScore > p.cfg.SentimentSkipThreshold {
		log.Info("Article skipped by sentiment gate", "sentiment", analysis.SentimentScore)
		return p.finish(ctx, rawID, "skipped_sentiment")
	}

	if p.cfg.LowImpactSkipEnabled && int(analysis.ImpactScore) <= p.cfg.LowImpactThreshold {
		log.Info("Article skipped as low impact", "impact", int(analysis.ImpactScore))
		return p.finish(ctx, rawID, "skipped_low_impact")
	}

	exists, err := p.articles.Exists(ctx, raw.Headline, raw.SourceName, raw.PublishedAt)
	if err != nil {
		return err
	}
	if exists {
		log.Info("Article already stored, skipping duplicate")
		return p.finish(ctx, rawID, "duplicate")
	}

	stored := &article.Article{
		Headline:         raw.Headline,
		Content:          raw.Content,
		SourceName:       raw.SourceName,
		URL:              raw.URL,
		PublishedAt:      raw.PublishedAt,
		Analysis:         *analysis,
		Theme:            theme,
		Meta:             meta,
		OverallRiskScore: analysis.OverallRiskScore(),
		DisplayPriority:  analysis.DisplayPriority(),
		RiskColor:        analysis.RiskColor(),
		Status:           "New",
	}
	articleID, err := p.articles.Insert(ctx, stored)
	if err != nil {
		return err
	}

	log.Info("Article stored",
		"article_id", articleID,
		"severity", analysis.SeverityLevel,
		"theme", theme.PrimaryTheme,
		"overall_risk", stored.OverallRiskScore,
		"exposure", humanize.Comma(analysis.FinancialExposure.IntPart()),
	)

	// Best effort from here on: the article is durable, and the daily
	// aggregate is recomputed from scratch on the next completion
	// anyway.
	if _, err := p.risk.RecalculateLatest(ctx); err != nil {
		log.Warn("Daily risk recompute failed", "error", err)
	}
	if err := p.emitter.EmitNewsUpdate(ctx, map[string]interface{}{
		"news_id":            articleID,
		"headline":           raw.Headline,
		"severity_level":     analysis.SeverityLevel,
		"overall_risk_score": stored.OverallRiskScore,
		"action":             "news_processed",
	}); err != nil {
		log.Warn("Failed to emit news update event", "error", err)
	}

	return p.finish(ctx, rawID, "stored")
}

// finish marks the raw row processed and records the outcome. Always
// the last pipeline step. A failed mark is logged and swallowed: the
// work is already durable, and replaying the whole task to flip one
// flag would refetch the LLM analysis for nothing.
func (p *Processor) finish(ctx context.Context, rawID int64, outcome string) error {
	if err := p.raws.MarkProcessed(ctx, rawID); err != nil {
		p.log.Warn("Failed to mark article processed", "news_id", rawID, "error", err)
	}
	metrics.ArticlesProcessed.WithLabelValues(outcome).Inc()
	return nil
}

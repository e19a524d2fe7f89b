package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentinel/internal/adapters/ai"
	"sentinel/internal/adapters/config"
	"sentinel/internal/domain/article"
	"sentinel/internal/metrics"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// Verdicts returned by the evaluator.
const (
	VerdictPass             = "PASS"
	VerdictNeedsImprovement = "NEEDS_IMPROVEMENT"
	VerdictFail             = "FAIL"
)

const workflowType = "evaluator_optimizer"

// Optimizer runs the generate-evaluate refinement loop until the
// evaluator passes the candidate or the iteration budget runs out.
type Optimizer struct {
	chat     ai.ChatProvider
	articles article.Repository
	cfg      config.Config
	log      *logger.Logger
}

// NewOptimizer creates an optimizer.
func NewOptimizer(chat ai.ChatProvider, articles article.Repository, cfg config.Config, log *logger.Logger) *Optimizer {
	return &Optimizer{
		chat:     chat,
		articles: articles,
		cfg:      cfg,
		log:      log.With("component", "optimizer"),
	}
}

// Optimize produces an accepted risk analysis for the article, or an
// error when the final candidate fails evaluation or cannot be parsed.
func (o *Optimizer) Optimize(ctx context.Context, raw *article.Raw) (*article.RiskAnalysis, article.Meta, error) {
	maxIterations := o.cfg.Pipeline.MaxOptimizationIterations
	if maxIterations < 1 {
		maxIterations = 1
	}

	scoringContext := o.scoringContext(ctx)

	var feedback []string
	var meta article.Meta

	for iteration := 1; iteration <= maxIterations; iteration++ {
		candidate, analysis, err := o.generate(ctx, raw, scoringContext, feedback)
		if err != nil {
			return nil, meta, err
		}

		verdict, verdictFeedback, err := o.evaluate(ctx, raw, candidate)
		if err != nil {
			return nil, meta, err
		}

		meta = article.Meta{
			IterationsUsed:  iteration,
			FinalEvaluation: verdict,
			Timestamp:       time.Now().UTC(),
			Workflow:        workflowType,
		}

		final := iteration == maxIterations
		switch {
		case verdict == VerdictPass:
			metrics.RecordOptimization(workflowType, verdict, iteration)
			return analysis, meta, nil

		case final && verdict == VerdictNeedsImprovement:
			// Budget spent; the imperfect-but-usable candidate ships,
			// flagged in the metadata.
			o.log.Warn("Accepting analysis flagged NEEDS_IMPROVEMENT on final iteration",
				"headline", raw.Headline,
				"iterations", iteration,
			)
			metrics.RecordOptimization(workflowType, verdict, iteration)
			return analysis, meta, nil

		case final:
			metrics.RecordOptimization(workflowType, verdict, iteration)
			return nil, meta, errors.Wrapf(errors.ErrEvaluationFailed,
				"article %q rejected after %d iteration(s): %s", raw.Headline, iteration, verdictFeedback)

		default:
			feedback = append(feedback, fmt.Sprintf("Attempt %d feedback: %s", iteration, verdictFeedback))
		}
	}

	// Unreachable: the loop always returns on the final iteration.
	return nil, meta, errors.Wrap(errors.ErrInternal, "refinement loop exited without verdict")
}

// generate asks the model for one candidate and parses it.
func (o *Optimizer) generate(ctx context.Context, raw *article.Raw, scoringContext string, feedback []string) (string, *article.RiskAnalysis, error) {
	resp, err := o.chat.Chat(ctx, ai.ChatRequest{
		Model:       o.cfg.AI.Model,
		Temperature: 0.1,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: fmt.Sprintf(generatorSystemPrompt, categoriesList())},
			{Role: ai.RoleUser, Content: generatorPrompt(raw, scoringContext, feedback)},
		},
	})
	if err != nil {
		return "", nil, errors.Wrap(err, "generator call")
	}

	body := resp.Content()
	thoughts := ExtractSection(body, "thoughts")
	response := ExtractSection(body, "response")
	if thoughts == "" || response == "" {
		return "", nil, errors.Wrap(errors.ErrMalformedResponse,
			"generator response missing <thoughts> or <response> section")
	}

	payload := ExtractJSONObject(response)
	if payload == "" {
		return "", nil, errors.Wrap(errors.ErrMalformedResponse, "no JSON object in <response> section")
	}

	analysis, err := article.ParseAnalysis([]byte(payload))
	if err != nil {
		return "", nil, err
	}
	return response, analysis, nil
}

// evaluate asks the reviewer model for a verdict on the candidate.
func (o *Optimizer) evaluate(ctx context.Context, raw *article.Raw, candidate string) (string, string, error) {
	resp, err := o.chat.Chat(ctx, ai.ChatRequest{
		Model:       o.cfg.AI.Model,
		Temperature: 0.1,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: evaluatorSystemPrompt},
			{Role: ai.RoleUser, Content: evaluatorPrompt(raw, candidate)},
		},
	})
	if err != nil {
		return "", "", errors.Wrap(err, "evaluator call")
	}

	body := resp.Content()
	verdict := strings.ToUpper(ExtractSection(body, "evaluation"))
	feedback := ExtractSection(body, "feedback")

	switch verdict {
	case VerdictPass, VerdictNeedsImprovement, VerdictFail:
		return verdict, feedback, nil
	default:
		return "", "", errors.Wrapf(errors.ErrMalformedResponse,
			"evaluator returned unrecognized verdict %q", verdict)
	}
}

// scoringContext formats recent analyses into numbered lines for the
// generator prompt. Best effort: concurrent writers may add rows while
// we read, and an empty string on error is acceptable.
func (o *Optimizer) scoringContext(ctx context.Context) string {
	limit := o.cfg.Pipeline.ScoringContextSize
	if limit <= 0 {
		return ""
	}

	entries, err := o.articles.RecentScoringContext(ctx, limit)
	if err != nil {
		o.log.Warn("Failed to load scoring context", "error", err)
		return ""
	}
	if len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. [%s/%s] %s (overall %.1f, %s)\n",
			i+1, e.SeverityLevel, e.PrimaryRiskCategory, e.Headline,
			e.OverallRiskScore, e.PublishedAt.Format("2006-01-02"))
	}
	return b.String()
}

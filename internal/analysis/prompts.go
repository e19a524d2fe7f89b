package analysis

import (
	"fmt"
	"strings"

	"sentinel/internal/domain/article"
)

const generatorSystemPrompt = `You are a senior financial risk analyst. You assess news articles for
financial risk and produce structured risk analyses.

Respond with exactly two sections:
<thoughts>
Your reasoning about the article's risk implications.
</thoughts>
<response>
A single JSON object with these fields:
  primary_risk_category (one of: %s)
  secondary_risk_categories (array of the same categories)
  risk_subcategories (array of strings)
  severity_level (Critical | High | Medium | Low)
  urgency_level (Critical | High | Medium | Low)
  temporal_classification (Immediate | Short-term | Medium-term | Long-term)
  confidence_score (integer 0-100)
  impact_score (integer 0-100)
  sentiment_score (number -1.0 to 1.0, negative = bad for markets)
  industry_sectors (array of strings)
  geographic_regions (array of strings)
  affected_companies (array of strings)
  key_risk_indicators (array of strings)
  risk_keywords (array of strings)
  financial_exposure (number, estimated USD amount at risk)
  exposure_currency (string, e.g. "USD")
  is_market_moving (boolean)
  is_regulatory_action (boolean)
  is_breaking_news (boolean)
  requires_immediate_attention (boolean)
  summary (one sentence)
  description (detailed paragraph)
</response>

Both sections are mandatory. The <response> section must contain only JSON.`

// generatorPrompt builds the user message for one refinement attempt.
func generatorPrompt(raw *article.Raw, scoringContext string, feedback []string) string {
	var b strings.Builder

	b.WriteString("Analyze the financial risk of this news article.\n\n")
	fmt.Fprintf(&b, "Headline: %s\n", raw.Headline)
	fmt.Fprintf(&b, "Source: %s\n", raw.SourceName)
	fmt.Fprintf(&b, "Published: %s\n", raw.PublishedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Content:\n%s\n", raw.Content)

	if scoringContext != "" {
		b.WriteString("\nRecent risk assessments for scoring consistency:\n")
		b.WriteString(scoringContext)
		b.WriteString("\nKeep severity and scores consistent with comparable recent articles.\n")
	}

	if len(feedback) > 0 {
		b.WriteString("\nYour previous attempts were reviewed. Address all feedback:\n")
		for _, f := range feedback {
			b.WriteString(f)
			b.WriteString("\n")
		}
	}

	return b.String()
}

const evaluatorSystemPrompt = `You are a quality reviewer for financial risk analyses. Given a news
article and a candidate risk analysis, judge it on:
  - accuracy: does the analysis reflect what the article actually says?
  - consistency: do severity, scores and categories agree with each other?
  - completeness: are all material risks captured?
  - actionability: would a risk officer know what to do with it?

Respond with exactly two sections:
<evaluation>
One verdict: PASS, NEEDS_IMPROVEMENT, or FAIL.
</evaluation>
<feedback>
Specific, actionable feedback explaining the verdict.
</feedback>`

// evaluatorPrompt builds the user message for reviewing a candidate.
func evaluatorPrompt(raw *article.Raw, candidate string) string {
	var b strings.Builder

	b.WriteString("Review this risk analysis.\n\n")
	fmt.Fprintf(&b, "Article headline: %s\n", raw.Headline)
	fmt.Fprintf(&b, "Article content:\n%s\n\n", raw.Content)
	fmt.Fprintf(&b, "Candidate analysis:\n%s\n", candidate)

	return b.String()
}

const prefilterSystemPrompt = `You are a fast relevance filter for a financial risk monitoring system.
Decide whether a news item is worth a full risk analysis.

Answer with a single word: PROCESS or SKIP.
PROCESS: the item plausibly affects financial markets, institutions,
regulation, or corporate risk.
SKIP: sports, celebrity, lifestyle, or other items with no plausible
financial risk angle.`

// prefilterPrompt builds the user message for the relevance gate.
func prefilterPrompt(raw *article.Raw) string {
	snippet := raw.Content
	if len(snippet) > 500 {
		snippet = snippet[:500]
	}
	return fmt.Sprintf("Headline: %s\n\nExcerpt: %s", raw.Headline, snippet)
}

func categoriesList() string {
	return strings.Join(article.ValidRiskCategories, ", ")
}

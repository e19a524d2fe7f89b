package themes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"sentinel/internal/adapters/ai"
	"sentinel/internal/adapters/config"
	"sentinel/internal/analysis"
	"sentinel/internal/domain/article"
	"sentinel/pkg/logger"
)

const (
	methodLLM          = "llm_classification"
	methodKeyword      = "keyword_fallback"
	methodRiskCategory = "risk_category_fallback"
	methodDefault      = "default_fallback"

	contentLimit = 1000
)

// Classifier assigns each analyzed article one theme from the taxonomy.
// Classification never fails: when the model is unreachable or returns
// garbage it degrades through keyword matching, then the risk-category
// map, then the catch-all theme.
type Classifier struct {
	chat  ai.ChatProvider
	model string
	log   *logger.Logger
}

// NewClassifier creates a theme classifier.
func NewClassifier(chat ai.ChatProvider, cfg config.Config, log *logger.Logger) *Classifier {
	return &Classifier{
		chat:  chat,
		model: cfg.AI.Model,
		log:   log.With("component", "theme_classifier"),
	}
}

// Classify picks the theme that best matches the article. riskCategories
// are the categories the risk analysis already identified, used by the
// deterministic fallback when neither the model nor keywords produce a
// match.
func (c *Classifier) Classify(ctx context.Context, headline, content string, riskCategories []string) article.ThemeResult {
	result, err := c.classifyLLM(ctx, headline, content)
	if err == nil {
		return result
	}
	c.log.Warn("LLM theme classification failed, using fallback", "headline", headline, "error", err)

	if result, ok := classifyByKeywords(headline, content); ok {
		return result
	}

	if result, ok := classifyByRiskCategory(riskCategories); ok {
		return result
	}

	other := Lookup(OtherTheme)
	return article.ThemeResult{
		PrimaryTheme: OtherTheme,
		DisplayName:  other.DisplayName,
		Confidence:   30,
		Method:       methodDefault,
	}
}

type llmThemeResponse struct {
	PrimaryTheme string `json:"primary_theme"`
	Confidence   int    `json:"confidence"`
	Reasoning    string `json:"reasoning"`
}

func (c *Classifier) classifyLLM(ctx context.Context, headline, content string) (article.ThemeResult, error) {
	content = truncate(content, contentLimit)

	resp, err := c.chat.Chat(ctx, ai.ChatRequest{
		Model:       c.model,
		Temperature: 0.1,
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: classificationPrompt(headline, content)},
		},
	})
	if err != nil {
		return article.ThemeResult{}, err
	}

	payload := analysis.ExtractJSONObject(resp.Content())
	if payload == "" {
		return article.ThemeResult{}, fmt.Errorf("no JSON object in classification response")
	}

	var parsed llmThemeResponse
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return article.ThemeResult{}, fmt.Errorf("parse classification response: %w", err)
	}

	theme := Lookup(parsed.PrimaryTheme)
	confidence := parsed.Confidence
	reasoning := parsed.Reasoning
	if theme == nil {
		c.log.Warn("Model returned theme outside taxonomy", "theme", parsed.PrimaryTheme)
		theme = Lookup(OtherTheme)
		confidence = 30
		reasoning = "Invalid theme returned, using fallback"
	}
	if confidence < 1 {
		confidence = 1
	}
	if confidence > 100 {
		confidence = 100
	}

	return article.ThemeResult{
		PrimaryTheme: theme.Key,
		DisplayName:  theme.DisplayName,
		Confidence:   confidence,
		Method:       methodLLM,
		Reasoning:    reasoning,
	}, nil
}

func classifyByKeywords(headline, content string) (article.ThemeResult, bool) {
	text := strings.ToLower(headline + " " + content)

	var best *Theme
	var bestHits int
	var bestMatched []string
	for i := range Taxonomy {
		theme := &Taxonomy[i]
		var matched []string
		for _, kw := range theme.Keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) > bestHits {
			best = theme
			bestHits = len(matched)
			bestMatched = matched
		}
	}
	if best == nil {
		return article.ThemeResult{}, false
	}

	confidence := bestHits * 20
	if confidence > 100 {
		confidence = 100
	}
	return article.ThemeResult{
		PrimaryTheme:    best.Key,
		DisplayName:     best.DisplayName,
		Confidence:      confidence,
		Method:          methodKeyword,
		MatchedKeywords: bestMatched,
	}, true
}

func classifyByRiskCategory(riskCategories []string) (article.ThemeResult, bool) {
	for _, category := range riskCategories {
		key, ok := riskCategoryThemes[category]
		if !ok {
			continue
		}
		theme := Lookup(key)
		return article.ThemeResult{
			PrimaryTheme: theme.Key,
			DisplayName:  theme.DisplayName,
			Confidence:   60,
			Method:       methodRiskCategory,
		}, true
	}
	return article.ThemeResult{}, false
}

// truncate cuts s to at most limit bytes without splitting a UTF-8
// rune, backing up to the nearest rune boundary.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func classificationPrompt(headline, content string) string {
	var b strings.Builder

	b.WriteString("You are a financial risk analyst classifying news into financial risk themes.\n\n")
	b.WriteString("AVAILABLE THEMES:\n")
	for _, theme := range Taxonomy {
		fmt.Fprintf(&b, "- %s: %s - %s\n", theme.Key, theme.DisplayName, theme.Description)
	}

	b.WriteString("\nNEWS TO CLASSIFY:\n")
	fmt.Fprintf(&b, "Headline: %s\n", headline)
	fmt.Fprintf(&b, "Content: %s\n\n", content)

	b.WriteString(`Classify this article into ONE of the themes above, judging the primary
financial risk, its impact on the banking sector, and the core nature of
the risk event. Respond with exactly this JSON:
{
    "primary_theme": "theme_key_here",
    "confidence": 85,
    "reasoning": "Brief explanation of why this theme was chosen"
}
If no theme fits well, choose "other_financial_risks".`)

	return b.String()
}

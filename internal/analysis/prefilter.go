package analysis

import (
	"context"
	"strings"

	"sentinel/internal/adapters/ai"
	"sentinel/internal/adapters/config"
	"sentinel/internal/domain/article"
	"sentinel/pkg/logger"
)

// Prefilter is a cheap relevance gate in front of the full refinement
// loop. It fails open: any transport or parse problem means PROCESS,
// because dropping a relevant article costs more than one wasted
// analysis.
type Prefilter struct {
	chat    ai.ChatProvider
	model   string
	enabled bool
	log     *logger.Logger
}

// NewPrefilter creates a prefilter.
func NewPrefilter(chat ai.ChatProvider, cfg config.Config, log *logger.Logger) *Prefilter {
	return &Prefilter{
		chat:    chat,
		model:   cfg.AI.PrefilterModel,
		enabled: cfg.Pipeline.PrefilterEnabled,
		log:     log.With("component", "prefilter"),
	}
}

// ShouldProcess reports whether the article deserves a full analysis.
func (p *Prefilter) ShouldProcess(ctx context.Context, raw *article.Raw) bool {
	if !p.enabled {
		return true
	}

	resp, err := p.chat.Chat(ctx, ai.ChatRequest{
		Model:       p.model,
		Temperature: 0,
		MaxTokens:   5,
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: prefilterSystemPrompt},
			{Role: ai.RoleUser, Content: prefilterPrompt(raw)},
		},
	})
	if err != nil {
		p.log.Warn("Prefilter call failed, processing anyway", "headline", raw.Headline, "error", err)
		return true
	}

	answer := strings.ToUpper(strings.TrimSpace(resp.Content()))
	switch {
	case strings.HasPrefix(answer, "SKIP"):
		p.log.Debug("Prefilter skipped article", "headline", raw.Headline)
		return false
	case strings.HasPrefix(answer, "PROCESS"):
		return true
	default:
		p.log.Warn("Prefilter returned unexpected answer, processing anyway",
			"headline", raw.Headline,
			"answer", answer,
		)
		return true
	}
}

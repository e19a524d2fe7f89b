package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/adapters/ai"
	"sentinel/internal/adapters/config"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

func newTestPrefilter(chat ai.ChatProvider, enabled bool) *Prefilter {
	cfg := config.Config{}
	cfg.AI.PrefilterModel = "test-mini"
	cfg.Pipeline.PrefilterEnabled = enabled
	return NewPrefilter(chat, cfg, logger.Get())
}

func TestPrefilterProcessAndSkip(t *testing.T) {
	chat := &scriptedChat{responses: []string{"PROCESS", "SKIP"}}
	pf := newTestPrefilter(chat, true)

	assert.True(t, pf.ShouldProcess(context.Background(), testRaw()))
	assert.False(t, pf.ShouldProcess(context.Background(), testRaw()))
}

func TestPrefilterTrimsAndUppercasesAnswer(t *testing.T) {
	chat := &scriptedChat{responses: []string{"  skip\n"}}
	pf := newTestPrefilter(chat, true)

	assert.False(t, pf.ShouldProcess(context.Background(), testRaw()))
}

func TestPrefilterFailsOpenOnError(t *testing.T) {
	chat := &scriptedChat{errs: []error{errors.ErrLLMUnavailable}}
	pf := newTestPrefilter(chat, true)

	assert.True(t, pf.ShouldProcess(context.Background(), testRaw()))
}

func TestPrefilterFailsOpenOnUnexpectedAnswer(t *testing.T) {
	chat := &scriptedChat{responses: []string{"I think this one is interesting."}}
	pf := newTestPrefilter(chat, true)

	assert.True(t, pf.ShouldProcess(context.Background(), testRaw()))
}

func TestPrefilterDisabledSkipsModelCall(t *testing.T) {
	chat := &scriptedChat{}
	pf := newTestPrefilter(chat, false)

	assert.True(t, pf.ShouldProcess(context.Background(), testRaw()))
	assert.Empty(t, chat.requests)
}

func TestPrefilterUsesConfiguredModelAndExcerpt(t *testing.T) {
	chat := &scriptedChat{responses: []string{"PROCESS"}}
	pf := newTestPrefilter(chat, true)

	raw := testRaw()
	raw.Content = strings.Repeat("x", 600)
	pf.ShouldProcess(context.Background(), raw)

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	assert.Equal(t, "test-mini", req.Model)
	assert.LessOrEqual(t, len(req.Messages[1].Content), len("Headline: \n\nExcerpt: ")+len(raw.Headline)+500)
}

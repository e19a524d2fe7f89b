package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSection(t *testing.T) {
	body := "preamble\n<thoughts>\nsome reasoning\n</thoughts>\n<response>{\"a\":1}</response>\ntrailer"

	assert.Equal(t, "some reasoning", ExtractSection(body, "thoughts"))
	assert.Equal(t, `{"a":1}`, ExtractSection(body, "response"))
	assert.Equal(t, "", ExtractSection(body, "feedback"))
}

func TestExtractSectionCaseInsensitive(t *testing.T) {
	body := "<EVALUATION>pass</EVALUATION>"
	assert.Equal(t, "pass", ExtractSection(body, "evaluation"))
}

func TestExtractSectionFirstMatchWins(t *testing.T) {
	body := "<feedback>first</feedback><feedback>second</feedback>"
	assert.Equal(t, "first", ExtractSection(body, "feedback"))
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 2}}`, ExtractJSONObject("Here you go:\n```json\n{\"a\": {\"b\": 2}}\n```"))
	assert.Equal(t, "", ExtractJSONObject("no json here"))
}

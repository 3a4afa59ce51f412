package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvaluationJSON(t *testing.T) {
	content := `{"score": 8.5, "feedback": "strong answer", "strengths": ["clear", "relevant"], "areas_for_improvement": ["more data"], "relevance_score": 9, "clarity_score": 8.5}`

	eval, err := parseEvaluation(content)
	require.NoError(t, err)
	assert.InDelta(t, 8.5, eval.Score, 0.001)
	assert.Equal(t, "strong answer", eval.Feedback)
	assert.Equal(t, []string{"clear", "relevant"}, eval.Strengths)
	assert.Equal(t, []string{"more data"}, eval.Improvements)
	assert.InDelta(t, 9, eval.RelevanceScore, 0.001)
	assert.InDelta(t, 8.5, eval.ClarityScore, 0.001)
}

func TestParseEvaluationClampsOutOfRange(t *testing.T) {
	eval, err := parseEvaluation(`{"score": 14, "feedback": "over-enthusiastic"}`)
	require.NoError(t, err)
	assert.InDelta(t, 10, eval.Score, 0.001)

	eval, err = parseEvaluation(`{"score": 0.2, "feedback": "harsh"}`)
	require.NoError(t, err)
	assert.InDelta(t, 1, eval.Score, 0.001)

	// Absent sub-scores stay zero instead of being clamped up.
	assert.Zero(t, eval.RelevanceScore)
	assert.Zero(t, eval.ClarityScore)
}

func TestParseEvaluationProseFallback(t *testing.T) {
	content := "The response is well structured and covers the key points. Score: 7.5\nIt could use more concrete examples."

	eval, err := parseEvaluation(content)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, eval.Score, 0.001)
	assert.Equal(t, content, eval.Feedback)
}

func TestParseEvaluationSlashTenFallback(t *testing.T) {
	eval, err := parseEvaluation("Overall I'd rate this 6/10. Decent but shallow.")
	require.NoError(t, err)
	assert.InDelta(t, 6, eval.Score, 0.001)
}

func TestParseEvaluationNoScore(t *testing.T) {
	_, err := parseEvaluation("I liked it a lot but refuse to quantify that.")
	assert.Error(t, err)
}

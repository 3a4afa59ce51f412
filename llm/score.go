package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"llm-tournament-widget/models"

	openai "github.com/sashabaranov/go-openai"
)

const scoringSystemPrompt = "You are an expert AI evaluator. Evaluate responses based on quality, relevance, clarity, and completeness. Always provide constructive feedback. Reply with a single JSON object with the fields: score (number 1-10), feedback (string), strengths (array of strings), areas_for_improvement (array of strings), relevance_score (number 1-10), clarity_score (number 1-10)."

const scoringMaxTokens = 500

// Evaluation is the structured result of scoring one response.
type Evaluation struct {
	Score          float64  `json:"score"`
	Feedback       string   `json:"feedback"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"areas_for_improvement"`
	RelevanceScore float64  `json:"relevance_score"`
	ClarityScore   float64  `json:"clarity_score"`
}

// Scorer is the evaluation capability: a single blocking call, no streaming.
type Scorer interface {
	Score(ctx context.Context, promptContent, question, response string) (*Evaluation, error)
}

// OpenAIScorer evaluates responses with a chat completion in JSON mode,
// falling back to a regex score extraction when the provider replies in
// prose anyway.
type OpenAIScorer struct {
	Client *openai.Client
	Model  string
}

func NewOpenAIScorer(client *openai.Client) *OpenAIScorer {
	return &OpenAIScorer{Client: client, Model: DefaultModel}
}

func (s *OpenAIScorer) Score(ctx context.Context, promptContent, question, response string) (*Evaluation, error) {
	if s.Client == nil {
		return nil, fmt.Errorf("%w: OpenAI API key not configured", models.ErrScoring)
	}

	userMessage := fmt.Sprintf(`Tournament Question: %s
Prompt: %s
Response to Evaluate: %s

Please evaluate this response and provide:
1. A score from 1-10 (where 1-3=poor, 4-6=adequate, 7-8=good, 9-10=excellent)
2. Brief feedback explaining the score
3. 2-3 specific strengths
4. 2-3 areas for improvement`, question, promptContent, response)

	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.Model,
		MaxTokens: scoringMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrScoring, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", models.ErrScoring)
	}

	content := resp.Choices[0].Message.Content

	eval, err := parseEvaluation(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrScoring, err)
	}
	return eval, nil
}

var scorePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*/\s*10|score[:\s]*(\d+(?:\.\d+)?)`)

func parseEvaluation(content string) (*Evaluation, error) {
	var eval Evaluation
	if err := json.Unmarshal([]byte(content), &eval); err == nil && eval.Score != 0 {
		eval.Score = clampScore(eval.Score)
		// Zero means the sub-score was absent, keep it that way.
		if eval.RelevanceScore != 0 {
			eval.RelevanceScore = clampScore(eval.RelevanceScore)
		}
		if eval.ClarityScore != 0 {
			eval.ClarityScore = clampScore(eval.ClarityScore)
		}
		return &eval, nil
	}

	// Provider ignored JSON mode; pull a score out of the prose and keep the
	// full text as feedback.
	matches := scorePattern.FindStringSubmatch(content)
	if matches == nil {
		return nil, fmt.Errorf("no score found in evaluation output")
	}
	raw := matches[1]
	if raw == "" {
		raw = matches[2]
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable score %q", raw)
	}

	return &Evaluation{
		Score:    clampScore(score),
		Feedback: content,
	}, nil
}

func clampScore(score float64) float64 {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

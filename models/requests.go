package models

// CreatePromptRequest is a prompt spec inside a tournament creation payload,
// or the body of the add-prompt endpoint.
type CreatePromptRequest struct {
	Name        string `json:"name"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
}

type CreateTournamentRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Question    string                `json:"question"`
	Prompts     []CreatePromptRequest `json:"prompts"`
}

type SubmitResultRequest struct {
	PromptID string `json:"prompt_id"`
	Response string `json:"response"`
}

type ScoreRequest struct {
	PromptID string  `json:"prompt_id"`
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback,omitempty"`
}

type AutoScoreRequest struct {
	PromptID string `json:"prompt_id"`
	ResultID string `json:"result_id"`
}

// AutoGenerateRequest is the POST body variant of the single-prompt
// generation endpoint. Query parameters cover the GET/EventSource variant.
type AutoGenerateRequest struct {
	TournamentID string `json:"tournament_id"`
	PromptID     string `json:"prompt_id"`
	Model        string `json:"model"`
}

type BulkAutoGenerateRequest struct {
	TournamentID string `json:"tournament_id"`
	Model        string `json:"model"`
}

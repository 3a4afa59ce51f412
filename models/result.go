package models

import (
	"time"
)

// Result is the persisted response (manual or generated) for one
// (tournament, prompt) pair. The composite unique index is what backs the
// skip-if-already-generated policy: a pair can never hold two results.
type Result struct {
	ID           string   `json:"id" gorm:"primaryKey"`
	TournamentID string   `json:"tournament_id" gorm:"not null;index;uniqueIndex:idx_results_tournament_prompt"`
	PromptID     string   `json:"prompt_id" gorm:"not null;index;uniqueIndex:idx_results_tournament_prompt"`
	Response     string   `json:"response" gorm:"type:text"`
	Score        *float64 `json:"score,omitempty"`
	Feedback     string   `json:"feedback,omitempty" gorm:"type:text"`
	Partial      bool     `json:"partial" gorm:"default:false"` // generation was cut off mid-stream

	// AI evaluation metadata
	AIEvaluated         bool       `json:"ai_evaluated" gorm:"default:false"`
	EvaluationTimestamp *time.Time `json:"evaluation_timestamp,omitempty"`
	RelevanceScore      *float64   `json:"relevance_score,omitempty"`
	ClarityScore        *float64   `json:"clarity_score,omitempty"`
	Strengths           string     `json:"strengths,omitempty" gorm:"type:text"`    // newline-separated
	Improvements        string     `json:"improvements,omitempty" gorm:"type:text"` // newline-separated

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Scored reports whether a score has been attached. Unscored results are a
// plain filter over the same set, there is no separate storage for them.
func (r *Result) Scored() bool {
	return r.Score != nil
}

// LeaderboardEntry is a Result joined with its prompt's name and content for
// display. Derived at query time, never stored.
type LeaderboardEntry struct {
	Result
	PromptName    string `json:"prompt_name"`
	PromptContent string `json:"prompt_content"`
}

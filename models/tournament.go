package models

import (
	"time"
)

// Tournament binds one fixed question to a set of candidate prompts.
type Tournament struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Slug        string    `json:"slug" gorm:"index"`
	Description string    `json:"description" gorm:"type:text"`
	Question    string    `json:"question" gorm:"type:text;not null"`
	Status      string    `json:"status" gorm:"default:'active'"` // active, completed, archived
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Prompts []Prompt `json:"prompts,omitempty" gorm:"foreignKey:TournamentID"`

	// Calculated fields (not stored in DB)
	PromptIDs []string `json:"prompt_ids,omitempty" gorm:"-"`
}

// Prompt is one candidate instruction text. Its content gets combined with
// the tournament's question to form the full generation request.
type Prompt struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	TournamentID string    `json:"tournament_id" gorm:"not null;index"`
	Name         string    `json:"name" gorm:"not null"`
	Content      string    `json:"content" gorm:"type:text;not null"`
	Description  string    `json:"description" gorm:"type:text"`
	SortOrder    int       `json:"sort_order" gorm:"column:sort_order;default:0"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

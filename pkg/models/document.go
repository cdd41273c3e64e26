package models

import "time"

// Document is the local mirror of the generated proposal.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    string    `json:"author,omitempty"`
}

// GenerationProgress is the UI-facing view of a long-running generation job.
type GenerationProgress struct {
	Stage    string `json:"stage,omitempty"`
	Percent  int    `json:"percent"`
	IsActive bool   `json:"is_active"`
}

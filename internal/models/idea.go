package models

import "time"

const (
	IdeaPending    = "pending"
	IdeaProcessing = "processing"
	IdeaCompleted  = "completed"
	IdeaFailed     = "failed"
)

type Idea struct {
	ID           int64     `json:"id"`
	Text         string    `json:"text"`
	Status       string    `json:"status"` // "pending" | "processing" | "completed" | "failed"
	ErrorMessage *string   `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateIdeaRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

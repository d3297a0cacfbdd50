package pipeline

import (
	"context"

	"shortforge-backend/internal/models"
)

type IdeaStore interface {
	ClaimNextPending(ctx context.Context) (*models.Idea, error)
	UpdateStatus(ctx context.Context, id int64, status, errMsg string) error
}

type ProjectStore interface {
	Create(ctx context.Context, ideaPrompt string) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	SaveScript(ctx context.Context, id int64, script *models.ScriptStructure) error
	SaveMultimedia(ctx context.Context, id int64, assets models.Assets, videoPath, runID string) error
	Complete(ctx context.Context, id int64, publishedURLs map[string]string, finalURL string) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

type ScriptGenerator interface {
	GenerateScript(ctx context.Context, idea string) (*models.ScriptResult, error)
}

type MediaGenerator interface {
	Generate(ctx context.Context, script *models.ScriptStructure, runID string) (*models.MultimediaResult, error)
}

// EventPublisher receives every project status change. Delivery is best
// effort.
type EventPublisher interface {
	PublishStage(ctx context.Context, event models.StageEvent)
}

// PublishStep decides what publish_video does with the finished videos. It
// returns the per-platform outcome and the canonical public URL, if any.
type PublishStep interface {
	Publish(ctx context.Context, s *State) (urls map[string]string, finalURL string, err error)
}

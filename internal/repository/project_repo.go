package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shortforge-backend/internal/models"
)

const projectColumns = `id, idea_prompt, script, status, assets, video_path, final_video_url,
	published_urls, error_message, run_id, created_at, updated_at`

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

func scanProject(row pgx.Row) (*models.VideoProject, error) {
	p := &models.VideoProject{}
	var scriptJSON, assetsJSON, publishedJSON []byte

	err := row.Scan(
		&p.ID, &p.IdeaPrompt, &scriptJSON, &p.Status, &assetsJSON, &p.VideoPath,
		&p.FinalVideoURL, &publishedJSON, &p.ErrorMessage, &p.RunID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}

	if len(scriptJSON) > 0 {
		p.Script = &models.ScriptStructure{}
		if err := json.Unmarshal(scriptJSON, p.Script); err != nil {
			return nil, fmt.Errorf("failed to decode script of project %d: %w", p.ID, err)
		}
	}
	if len(assetsJSON) > 0 {
		if err := json.Unmarshal(assetsJSON, &p.Assets); err != nil {
			return nil, fmt.Errorf("failed to decode assets of project %d: %w", p.ID, err)
		}
	}
	if len(publishedJSON) > 0 {
		p.PublishedURLs = json.RawMessage(publishedJSON)
	}
	return p, nil
}

// Create inserts a project in the starting status and returns its id.
func (r *ProjectRepo) Create(ctx context.Context, ideaPrompt string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO video_projects (idea_prompt, status) VALUES ($1, $2) RETURNING id`,
		ideaPrompt, models.ProjectStarting,
	).Scan(&id)
	return id, err
}

func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*models.VideoProject, error) {
	query := `SELECT ` + projectColumns + ` FROM video_projects WHERE id = $1`
	return scanProject(r.pool.QueryRow(ctx, query, id))
}

func (r *ProjectRepo) List(ctx context.Context, limit int) ([]models.VideoProject, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM video_projects ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.VideoProject
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.exec(ctx,
		"UPDATE video_projects SET status = $1, updated_at = NOW() WHERE id = $2",
		status, id,
	)
}

func (r *ProjectRepo) SaveScript(ctx context.Context, id int64, script *models.ScriptStructure) error {
	data, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("failed to encode script: %w", err)
	}
	return r.exec(ctx,
		"UPDATE video_projects SET script = $1, updated_at = NOW() WHERE id = $2",
		data, id,
	)
}

// SaveMultimedia records generated assets and moves the project to
// multimedia_completed.
func (r *ProjectRepo) SaveMultimedia(ctx context.Context, id int64, assets models.Assets, videoPath, runID string) error {
	data, err := json.Marshal(assets)
	if err != nil {
		return fmt.Errorf("failed to encode assets: %w", err)
	}
	return r.exec(ctx, `
		UPDATE video_projects
		SET assets = $1, video_path = $2, run_id = $3, status = $4, updated_at = NOW()
		WHERE id = $5`,
		data, videoPath, runID, models.ProjectMultimediaCompleted, id,
	)
}

// Complete stores the publishing outcome and marks the project completed.
// finalURL may be empty when nothing was actually published.
func (r *ProjectRepo) Complete(ctx context.Context, id int64, publishedURLs map[string]string, finalURL string) error {
	data, err := json.Marshal(publishedURLs)
	if err != nil {
		return fmt.Errorf("failed to encode published urls: %w", err)
	}

	var final *string
	if finalURL != "" {
		final = &finalURL
	}

	return r.exec(ctx, `
		UPDATE video_projects
		SET published_urls = $1, final_video_url = $2, status = $3, updated_at = NOW()
		WHERE id = $4`,
		data, final, models.ProjectCompleted, id,
	)
}

func (r *ProjectRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	return r.exec(ctx,
		"UPDATE video_projects SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3",
		models.ProjectFailed, errMsg, id,
	)
}

func (r *ProjectRepo) exec(ctx context.Context, query string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shortforge-backend/internal/database"
	"shortforge-backend/internal/models"
)

const ideaColumns = `id, text, status, error_message, created_at, updated_at`

type IdeaRepo struct {
	pool *pgxpool.Pool
}

func NewIdeaRepo(pool *pgxpool.Pool) *IdeaRepo {
	return &IdeaRepo{pool: pool}
}

func scanIdea(row pgx.Row) (*models.Idea, error) {
	i := &models.Idea{}
	err := row.Scan(&i.ID, &i.Text, &i.Status, &i.ErrorMessage, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return i, nil
}

func (r *IdeaRepo) Create(ctx context.Context, text string) (*models.Idea, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("idea text must not be empty")
	}

	query := `INSERT INTO ideas (text, status) VALUES ($1, $2) RETURNING ` + ideaColumns
	return scanIdea(r.pool.QueryRow(ctx, query, text, models.IdeaPending))
}

func (r *IdeaRepo) GetByID(ctx context.Context, id int64) (*models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE id = $1`
	return scanIdea(r.pool.QueryRow(ctx, query, id))
}

// List returns ideas newest first. An empty status lists every status.
func (r *IdeaRepo) List(ctx context.Context, status string, limit int) ([]models.Idea, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT ` + ideaColumns + ` FROM ideas
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ideas []models.Idea
	for rows.Next() {
		i, err := scanIdea(rows)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, *i)
	}
	return ideas, rows.Err()
}

// ClaimNextPending moves the oldest pending idea to processing and returns
// it. Rows locked by another claimer are skipped rather than waited on, so
// two concurrent callers never receive the same idea. Returns (nil, nil)
// when nothing is pending.
func (r *IdeaRepo) ClaimNextPending(ctx context.Context) (*models.Idea, error) {
	var claimed *models.Idea

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			SELECT id FROM ideas
			WHERE status = $1
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED`, models.IdeaPending).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to select pending idea: %w", err)
		}

		claimed, err = scanIdea(tx.QueryRow(ctx, `
			UPDATE ideas SET status = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING `+ideaColumns, models.IdeaProcessing, id))
		if err != nil {
			return fmt.Errorf("failed to mark idea %d processing: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// UpdateStatus sets the idea status. A non-empty errMsg is stored alongside;
// an empty one clears any previous message.
func (r *IdeaRepo) UpdateStatus(ctx context.Context, id int64, status, errMsg string) error {
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}

	tag, err := r.pool.Exec(ctx,
		"UPDATE ideas SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3",
		status, msg, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Requeue puts a failed idea back into the pending queue.
func (r *IdeaRepo) Requeue(ctx context.Context, id int64) (*models.Idea, error) {
	i, err := scanIdea(r.pool.QueryRow(ctx, `
		UPDATE ideas SET status = $1, error_message = NULL, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING `+ideaColumns, models.IdeaPending, id, models.IdeaFailed))
	if errors.Is(err, ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrConflict
	}
	return i, err
}

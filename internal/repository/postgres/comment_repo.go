package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/nexttask/internal/domain"
)

type CommentRepo struct {
	pool *pgxpool.Pool
}

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

func (r *CommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	query := `
		INSERT INTO comments (content, task_id, author_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query, c.Content, c.TaskID, c.AuthorID).Scan(&c.ID, &c.CreatedAt)
}

func (r *CommentRepo) GetByID(ctx context.Context, id int64) (*domain.Comment, error) {
	query := `
		SELECT c.id, c.content, c.task_id, c.author_id, c.created_at, c.updated_at,
		       u.id, u.name, u.email, u.avatar
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.id = $1`
	var c domain.Comment
	var author domain.UserSummary
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Content, &c.TaskID, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt,
		&author.ID, &author.Name, &author.Email, &author.Avatar,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Author = &author
	return &c, nil
}

func (r *CommentRepo) ListByTask(ctx context.Context, taskID int64, limit, offset int, ascending bool) ([]domain.Comment, error) {
	order := "DESC"
	if ascending {
		order = "ASC"
	}
	query := fmt.Sprintf(`
		SELECT c.id, c.content, c.task_id, c.author_id, c.created_at, c.updated_at,
		       u.id, u.name, u.email, u.avatar
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.task_id = $1
		ORDER BY c.created_at %s, c.id %s
		LIMIT $2 OFFSET $3`, order, order)

	rows, err := r.pool.Query(ctx, query, taskID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		var author domain.UserSummary
		if err := rows.Scan(
			&c.ID, &c.Content, &c.TaskID, &c.AuthorID, &c.CreatedAt, &c.UpdatedAt,
			&author.ID, &author.Name, &author.Email, &author.Avatar,
		); err != nil {
			return nil, err
		}
		c.Author = &author
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *CommentRepo) CountByTask(ctx context.Context, taskID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE task_id = $1`, taskID).Scan(&n)
	return n, err
}

func (r *CommentRepo) UpdateContent(ctx context.Context, id int64, content string) error {
	_, err := r.pool.Exec(ctx, `UPDATE comments SET content = $1, updated_at = NOW() WHERE id = $2`, content, id)
	return err
}

func (r *CommentRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	return err
}

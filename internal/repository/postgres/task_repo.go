package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/nexttask/internal/domain"
)

const taskColumns = `id, title, description, status, priority, workspace_id, creator_id,
	due_date, completed_at, created_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *domain.Task) error {
	query := `
		INSERT INTO tasks (title, description, status, priority, workspace_id, creator_id, due_date, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		t.Title, t.Description, t.Status, t.Priority, t.WorkspaceID, t.CreatorID, t.DueDate, t.CompletedAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return err
	}
	t.Assignees = []domain.UserSummary{}
	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	var t domain.Task
	err := r.pool.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id).Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.WorkspaceID, &t.CreatorID,
		&t.DueDate, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	assignees, err := r.assignees(ctx, []int64{t.ID})
	if err != nil {
		return nil, err
	}
	t.Assignees = orEmpty(assignees[t.ID])
	return &t, nil
}

func (r *TaskRepo) ListByWorkspace(ctx context.Context, workspaceID int64) ([]domain.Task, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+taskColumns+" FROM tasks WHERE workspace_id = $1 ORDER BY created_at DESC", workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	var ids []int64
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.WorkspaceID, &t.CreatorID,
			&t.DueDate, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return tasks, nil
	}

	assignees, err := r.assignees(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].Assignees = orEmpty(assignees[tasks[i].ID])
	}
	return tasks, nil
}

func (r *TaskRepo) Update(ctx context.Context, t *domain.Task) error {
	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4, due_date = $5,
		    completed_at = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.CompletedAt, t.ID,
	).Scan(&t.UpdatedAt)
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// SetAssignees replaces the assignee set of a task atomically.
func (r *TaskRepo) SetAssignees(ctx context.Context, taskID int64, userIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, taskID); err != nil {
		return err
	}
	if len(userIDs) > 0 {
		_, err := tx.Exec(ctx,
			`INSERT INTO task_assignees (task_id, user_id) SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`,
			taskID, userIDs,
		)
		if err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE tasks SET updated_at = NOW() WHERE id = $1`, taskID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *TaskRepo) assignees(ctx context.Context, taskIDs []int64) (map[int64][]domain.UserSummary, error) {
	query := `
		SELECT ta.task_id, u.id, u.name, u.email, u.avatar
		FROM task_assignees ta
		JOIN users u ON u.id = ta.user_id
		WHERE ta.task_id = ANY($1)
		ORDER BY u.id`

	rows, err := r.pool.Query(ctx, query, taskIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]domain.UserSummary)
	for rows.Next() {
		var taskID int64
		var u domain.UserSummary
		if err := rows.Scan(&taskID, &u.ID, &u.Name, &u.Email, &u.Avatar); err != nil {
			return nil, err
		}
		out[taskID] = append(out[taskID], u)
	}
	return out, rows.Err()
}

func orEmpty(users []domain.UserSummary) []domain.UserSummary {
	if users == nil {
		return []domain.UserSummary{}
	}
	return users
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/nexttask/internal/domain"
)

type WorkspaceRepo struct {
	pool *pgxpool.Pool
}

func NewWorkspaceRepo(pool *pgxpool.Pool) *WorkspaceRepo {
	return &WorkspaceRepo{pool: pool}
}

// Create inserts the workspace and its owner membership in one transaction.
func (r *WorkspaceRepo) Create(ctx context.Context, ws *domain.Workspace) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO workspaces (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	if err := tx.QueryRow(ctx, query, ws.Name, ws.Description, ws.OwnerID).Scan(&ws.ID, &ws.CreatedAt); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO workspace_members (workspace_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
		ws.ID, ws.OwnerID, domain.RoleOwner, ws.CreatedAt,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *WorkspaceRepo) GetByID(ctx context.Context, id int64) (*domain.Workspace, error) {
	query := `SELECT id, name, description, owner_id, created_at, updated_at FROM workspaces WHERE id = $1`
	var ws domain.Workspace
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&ws.ID, &ws.Name, &ws.Description, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// ListByUser returns workspaces the user owns or belongs to.
func (r *WorkspaceRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Workspace, error) {
	query := `
		SELECT w.id, w.name, w.description, w.owner_id, w.created_at, w.updated_at
		FROM workspaces w
		WHERE w.owner_id = $1
		   OR EXISTS (SELECT 1 FROM workspace_members wm WHERE wm.workspace_id = w.id AND wm.user_id = $1)
		ORDER BY w.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []domain.Workspace
	for rows.Next() {
		var ws domain.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.Description, &ws.OwnerID, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, rows.Err()
}

func (r *WorkspaceRepo) Update(ctx context.Context, ws *domain.Workspace) error {
	query := `UPDATE workspaces SET name = $1, description = $2, updated_at = NOW() WHERE id = $3 RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, ws.Name, ws.Description, ws.ID).Scan(&ws.UpdatedAt)
}

func (r *WorkspaceRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM workspaces WHERE id = $1`, id)
	return err
}

func (r *WorkspaceRepo) AddMember(ctx context.Context, m *domain.WorkspaceMember) error {
	query := `
		INSERT INTO workspace_members (workspace_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING joined_at`
	err := r.pool.QueryRow(ctx, query, m.WorkspaceID, m.UserID, m.Role).Scan(&m.JoinedAt)
	return translate(err)
}

func (r *WorkspaceRepo) RemoveMember(ctx context.Context, workspaceID, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`, workspaceID, userID)
	return err
}

func (r *WorkspaceRepo) UpdateMemberRole(ctx context.Context, workspaceID, userID int64, role string) error {
	query := `UPDATE workspace_members SET role = $1 WHERE workspace_id = $2 AND user_id = $3`
	_, err := r.pool.Exec(ctx, query, role, workspaceID, userID)
	return err
}

func (r *WorkspaceRepo) GetMember(ctx context.Context, workspaceID, userID int64) (*domain.WorkspaceMember, error) {
	query := `SELECT workspace_id, user_id, role, joined_at FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`
	var m domain.WorkspaceMember
	err := r.pool.QueryRow(ctx, query, workspaceID, userID).Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *WorkspaceRepo) ListMembers(ctx context.Context, workspaceID int64) ([]domain.WorkspaceMember, error) {
	query := `
		SELECT wm.workspace_id, wm.user_id, wm.role, wm.joined_at, u.email, u.name, u.avatar
		FROM workspace_members wm
		JOIN users u ON wm.user_id = u.id
		WHERE wm.workspace_id = $1
		ORDER BY wm.joined_at`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.WorkspaceMember
	for rows.Next() {
		var m domain.WorkspaceMember
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.JoinedAt, &m.Email, &m.Name, &m.Avatar); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

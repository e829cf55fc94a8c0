package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/nexttask/internal/domain"
)

type InviteRepo struct {
	pool *pgxpool.Pool
}

func NewInviteRepo(pool *pgxpool.Pool) *InviteRepo {
	return &InviteRepo{pool: pool}
}

func (r *InviteRepo) Create(ctx context.Context, inv *domain.Invite) error {
	query := `
		INSERT INTO invites (token, workspace_id, inviter_id, role, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		inv.Token, inv.WorkspaceID, inv.InviterID, inv.Role, inv.Status, inv.ExpiresAt,
	).Scan(&inv.ID, &inv.CreatedAt)
	return translate(err)
}

func (r *InviteRepo) GetByToken(ctx context.Context, token string) (*domain.Invite, error) {
	query := `
		SELECT i.id, i.token, i.workspace_id, i.inviter_id, i.invitee_id, i.role, i.status,
		       i.expires_at, i.created_at, i.accepted_at,
		       w.name, COALESCE(NULLIF(u.name, ''), u.email)
		FROM invites i
		JOIN workspaces w ON w.id = i.workspace_id
		JOIN users u ON u.id = i.inviter_id
		WHERE i.token = $1`

	var inv domain.Invite
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&inv.ID, &inv.Token, &inv.WorkspaceID, &inv.InviterID, &inv.InviteeID, &inv.Role, &inv.Status,
		&inv.ExpiresAt, &inv.CreatedAt, &inv.AcceptedAt,
		&inv.WorkspaceName, &inv.InviterName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InviteRepo) ListByWorkspace(ctx context.Context, workspaceID int64) ([]domain.Invite, error) {
	query := `
		SELECT id, token, workspace_id, inviter_id, invitee_id, role, status, expires_at, created_at, accepted_at
		FROM invites
		WHERE workspace_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []domain.Invite
	for rows.Next() {
		var inv domain.Invite
		if err := rows.Scan(
			&inv.ID, &inv.Token, &inv.WorkspaceID, &inv.InviterID, &inv.InviteeID, &inv.Role, &inv.Status,
			&inv.ExpiresAt, &inv.CreatedAt, &inv.AcceptedAt,
		); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (r *InviteRepo) MarkAccepted(ctx context.Context, id, userID int64, at time.Time) error {
	query := `UPDATE invites SET status = $1, invitee_id = $2, accepted_at = $3 WHERE id = $4`
	_, err := r.pool.Exec(ctx, query, domain.InviteStatusAccepted, userID, at, id)
	return err
}

func (r *InviteRepo) SetStatus(ctx context.Context, id int64, status string) error {
	_, err := r.pool.Exec(ctx, `UPDATE invites SET status = $1 WHERE id = $2`, status, id)
	return err
}

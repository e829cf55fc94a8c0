package domain

import (
	"time"
)

const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleReader = "reader"
)

type Workspace struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	OwnerID     int64      `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type WorkspaceMember struct {
	WorkspaceID int64     `json:"workspace_id"`
	UserID      int64     `json:"user_id"`
	Role        string    `json:"role"`
	JoinedAt    time.Time `json:"joined_at"`
	// Joined fields
	Email  string  `json:"email,omitempty"`
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusExpired  = "expired"
)

type Invite struct {
	ID          int64      `json:"id"`
	Token       string     `json:"token"`
	WorkspaceID int64      `json:"workspace_id"`
	InviterID   int64      `json:"inviter_id"`
	InviteeID   *int64     `json:"invitee_id,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`

	// Joined fields for the validate page
	WorkspaceName string `json:"-"`
	InviterName   string `json:"-"`
}

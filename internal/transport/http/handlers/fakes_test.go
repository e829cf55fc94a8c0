package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/repository"
)

type memUsers struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[int64]*domain.User)}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrConflict
		}
	}
	m.seq++
	u.ID = m.seq
	u.CreatedAt = time.Now().UTC()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

type memWorkspaces struct {
	mu         sync.Mutex
	seq        int64
	workspaces map[int64]*domain.Workspace
	members    map[int64]map[int64]domain.WorkspaceMember
}

func newMemWorkspaces() *memWorkspaces {
	return &memWorkspaces{
		workspaces: make(map[int64]*domain.Workspace),
		members:    make(map[int64]map[int64]domain.WorkspaceMember),
	}
}

func (m *memWorkspaces) Create(_ context.Context, ws *domain.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ws.ID = m.seq
	ws.CreatedAt = time.Now().UTC()
	cp := *ws
	m.workspaces[ws.ID] = &cp
	m.members[ws.ID] = map[int64]domain.WorkspaceMember{
		ws.OwnerID: {WorkspaceID: ws.ID, UserID: ws.OwnerID, Role: domain.RoleOwner},
	}
	return nil
}

func (m *memWorkspaces) GetByID(_ context.Context, id int64) (*domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ws, ok := m.workspaces[id]; ok {
		cp := *ws
		return &cp, nil
	}
	return nil, nil
}

func (m *memWorkspaces) ListByUser(_ context.Context, userID int64) ([]domain.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Workspace
	for id, ws := range m.workspaces {
		if _, ok := m.members[id][userID]; ok {
			out = append(out, *ws)
		}
	}
	return out, nil
}

func (m *memWorkspaces) Update(_ context.Context, ws *domain.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ws
	m.workspaces[ws.ID] = &cp
	return nil
}

func (m *memWorkspaces) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.workspaces, id)
	delete(m.members, id)
	return nil
}

func (m *memWorkspaces) AddMember(_ context.Context, member *domain.WorkspaceMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.members[member.WorkspaceID]
	if !ok {
		return repository.ErrMissingReference
	}
	if _, dup := set[member.UserID]; dup {
		return repository.ErrConflict
	}
	member.JoinedAt = time.Now().UTC()
	set[member.UserID] = *member
	return nil
}

func (m *memWorkspaces) RemoveMember(_ context.Context, workspaceID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.members[workspaceID], userID)
	return nil
}

func (m *memWorkspaces) UpdateMemberRole(_ context.Context, workspaceID, userID int64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.members[workspaceID][userID]; ok {
		mem.Role = role
		m.members[workspaceID][userID] = mem
	}
	return nil
}

func (m *memWorkspaces) GetMember(_ context.Context, workspaceID, userID int64) (*domain.WorkspaceMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.members[workspaceID][userID]; ok {
		return &mem, nil
	}
	return nil, nil
}

func (m *memWorkspaces) ListMembers(_ context.Context, workspaceID int64) ([]domain.WorkspaceMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WorkspaceMember
	for _, mem := range m.members[workspaceID] {
		out = append(out, mem)
	}
	return out, nil
}

// memChats holds personal messages only. Workspace chat is not routed
// through the HTTP tests.
type memChats struct {
	mu       sync.Mutex
	seq      int64
	messages map[int64]*domain.ChatMessage
}

func newMemChats() *memChats {
	return &memChats{messages: make(map[int64]*domain.ChatMessage)}
}

func (m *memChats) CreateMessage(_ context.Context, msg *domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	msg.ID = m.seq
	msg.CreatedAt = time.Now().UTC()
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *memChats) GetMessageByID(_ context.Context, id int64) (*domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[id]; ok {
		cp := *msg
		return &cp, nil
	}
	return nil, nil
}

func (m *memChats) ListConversation(_ context.Context, userID, otherUserID int64, _, _ int) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatMessage
	for _, msg := range m.messages {
		if (msg.SenderID == userID && msg.ReceiverID == otherUserID) || (msg.SenderID == otherUserID && msg.ReceiverID == userID) {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *memChats) ListRecentByUser(_ context.Context, userID int64, _ int) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ChatMessage
	for _, msg := range m.messages {
		if msg.SenderID == userID || msg.ReceiverID == userID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *memChats) MarkRead(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messages[id]; ok {
		msg.IsRead = true
		msg.ReadAt = &at
	}
	return nil
}

func (m *memChats) CountUnread(_ context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, msg := range m.messages {
		if msg.ReceiverID == userID && !msg.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *memChats) CreateWorkspaceMessage(context.Context, *domain.WorkspaceChatMessage) error {
	return nil
}

func (m *memChats) ListWorkspaceMessages(context.Context, int64, int, int) ([]domain.WorkspaceChatMessage, error) {
	return nil, nil
}

func (m *memChats) LastWorkspaceActivity(context.Context, int64) (*time.Time, error) {
	return nil, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

var errDown = errors.New("connection refused")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

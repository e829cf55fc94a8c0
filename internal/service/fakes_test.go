package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/repository"
)

// store is an in-memory backing for every repository fake.
type store struct {
	mu         sync.Mutex
	seq        int64
	users      map[int64]*domain.User
	workspaces map[int64]*domain.Workspace
	members    map[[2]int64]*domain.WorkspaceMember
	invites    map[int64]*domain.Invite
	tasks      map[int64]*domain.Task
	assignees  map[int64][]int64
	comments   map[int64]*domain.Comment
	messages   []*domain.ChatMessage
	wsMessages []*domain.WorkspaceChatMessage

	failChatWrites error
}

func newStore() *store {
	return &store{
		users:      make(map[int64]*domain.User),
		workspaces: make(map[int64]*domain.Workspace),
		members:    make(map[[2]int64]*domain.WorkspaceMember),
		invites:    make(map[int64]*domain.Invite),
		tasks:      make(map[int64]*domain.Task),
		assignees:  make(map[int64][]int64),
		comments:   make(map[int64]*domain.Comment),
	}
}

func (s *store) next() int64 {
	s.seq++
	return s.seq
}

func (s *store) addUser(email string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &domain.User{ID: s.next(), Email: email, IsActive: true, CreatedAt: time.Now()}
	s.users[u.ID] = u
	return u
}

func (s *store) addWorkspace(ownerID int64, name string) *domain.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws := &domain.Workspace{ID: s.next(), Name: name, OwnerID: ownerID, CreatedAt: time.Now()}
	s.workspaces[ws.ID] = ws
	s.members[[2]int64{ws.ID, ownerID}] = &domain.WorkspaceMember{WorkspaceID: ws.ID, UserID: ownerID, Role: domain.RoleOwner}
	return ws
}

func (s *store) addMember(workspaceID, userID int64, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[[2]int64{workspaceID, userID}] = &domain.WorkspaceMember{WorkspaceID: workspaceID, UserID: userID, Role: role}
}

type fakeUserRepo struct{ *store }

func (r fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrConflict
		}
	}
	user.ID = r.next()
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r fakeUserRepo) UpdateProfile(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r fakeUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

type fakeWorkspaceRepo struct{ *store }

func (r fakeWorkspaceRepo) Create(_ context.Context, ws *domain.Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws.ID = r.next()
	ws.CreatedAt = time.Now()
	cp := *ws
	r.workspaces[ws.ID] = &cp
	r.members[[2]int64{ws.ID, ws.OwnerID}] = &domain.WorkspaceMember{WorkspaceID: ws.ID, UserID: ws.OwnerID, Role: domain.RoleOwner}
	return nil
}

func (r fakeWorkspaceRepo) GetByID(_ context.Context, id int64) (*domain.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[id]
	if !ok {
		return nil, nil
	}
	cp := *ws
	return &cp, nil
}

func (r fakeWorkspaceRepo) ListByUser(_ context.Context, userID int64) ([]domain.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Workspace
	for _, ws := range r.workspaces {
		if _, ok := r.members[[2]int64{ws.ID, userID}]; ok || ws.OwnerID == userID {
			out = append(out, *ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeWorkspaceRepo) Update(_ context.Context, ws *domain.Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *ws
	r.workspaces[ws.ID] = &cp
	return nil
}

func (r fakeWorkspaceRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, id)
	return nil
}

func (r fakeWorkspaceRepo) AddMember(_ context.Context, m *domain.WorkspaceMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{m.WorkspaceID, m.UserID}
	if _, ok := r.members[key]; ok {
		return repository.ErrConflict
	}
	cp := *m
	r.members[key] = &cp
	return nil
}

func (r fakeWorkspaceRepo) RemoveMember(_ context.Context, workspaceID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, [2]int64{workspaceID, userID})
	return nil
}

func (r fakeWorkspaceRepo) UpdateMemberRole(_ context.Context, workspaceID, userID int64, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[[2]int64{workspaceID, userID}]; ok {
		m.Role = role
	}
	return nil
}

func (r fakeWorkspaceRepo) GetMember(_ context.Context, workspaceID, userID int64) (*domain.WorkspaceMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[[2]int64{workspaceID, userID}]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r fakeWorkspaceRepo) ListMembers(_ context.Context, workspaceID int64) ([]domain.WorkspaceMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WorkspaceMember
	for key, m := range r.members {
		if key[0] == workspaceID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type fakeInviteRepo struct{ *store }

func (r fakeInviteRepo) Create(_ context.Context, inv *domain.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv.ID = r.next()
	inv.CreatedAt = time.Now()
	cp := *inv
	r.invites[inv.ID] = &cp
	return nil
}

func (r fakeInviteRepo) GetByToken(_ context.Context, token string) (*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invites {
		if inv.Token == token {
			cp := *inv
			if ws, ok := r.workspaces[inv.WorkspaceID]; ok {
				cp.WorkspaceName = ws.Name
			}
			if u, ok := r.users[inv.InviterID]; ok {
				cp.InviterName = u.DisplayName()
			}
			return &cp, nil
		}
	}
	return nil, nil
}

func (r fakeInviteRepo) ListByWorkspace(_ context.Context, workspaceID int64) ([]domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Invite
	for _, inv := range r.invites {
		if inv.WorkspaceID == workspaceID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r fakeInviteRepo) MarkAccepted(_ context.Context, id, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv := r.invites[id]
	inv.Status = domain.InviteStatusAccepted
	inv.InviteeID = &userID
	inv.AcceptedAt = &at
	return nil
}

func (r fakeInviteRepo) SetStatus(_ context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites[id].Status = status
	return nil
}

type fakeTaskRepo struct{ *store }

func (r fakeTaskRepo) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = r.next()
	task.CreatedAt = time.Now()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r fakeTaskRepo) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	cp.Assignees = nil
	for _, uid := range r.assignees[id] {
		if u, ok := r.users[uid]; ok {
			cp.Assignees = append(cp.Assignees, u.Summary())
		}
	}
	return &cp, nil
}

func (r fakeTaskRepo) ListByWorkspace(_ context.Context, workspaceID int64) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, t := range r.tasks {
		if t.WorkspaceID == workspaceID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r fakeTaskRepo) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *task
	r.tasks[task.ID] = &cp
	return nil
}

func (r fakeTaskRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return nil
}

func (r fakeTaskRepo) SetAssignees(_ context.Context, taskID int64, userIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assignees[taskID] = append([]int64(nil), userIDs...)
	return nil
}

type fakeCommentRepo struct{ *store }

func (r fakeCommentRepo) Create(_ context.Context, c *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = r.next()
	c.CreatedAt = time.Now()
	cp := *c
	r.comments[c.ID] = &cp
	return nil
}

func (r fakeCommentRepo) GetByID(_ context.Context, id int64) (*domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r fakeCommentRepo) ListByTask(_ context.Context, taskID int64, limit, offset int, ascending bool) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Comment
	for _, c := range r.comments {
		if c.TaskID == taskID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if ascending {
			return out[i].ID < out[j].ID
		}
		return out[i].ID > out[j].ID
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeCommentRepo) CountByTask(_ context.Context, taskID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.comments {
		if c.TaskID == taskID {
			n++
		}
	}
	return n, nil
}

func (r fakeCommentRepo) UpdateContent(_ context.Context, id int64, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments[id].Content = content
	return nil
}

func (r fakeCommentRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.comments, id)
	return nil
}

type fakeChatRepo struct{ *store }

func (r fakeChatRepo) CreateMessage(_ context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failChatWrites != nil {
		return r.failChatWrites
	}
	msg.ID = r.next()
	msg.CreatedAt = time.Now().Add(time.Duration(msg.ID) * time.Millisecond)
	cp := *msg
	r.messages = append(r.messages, &cp)
	return nil
}

func (r fakeChatRepo) GetMessageByID(_ context.Context, id int64) (*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (r fakeChatRepo) ListConversation(_ context.Context, userID, otherUserID int64, limit, offset int) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChatMessage
	for i := len(r.messages) - 1; i >= 0; i-- {
		m := r.messages[i]
		if (m.SenderID == userID && m.ReceiverID == otherUserID) || (m.SenderID == otherUserID && m.ReceiverID == userID) {
			out = append(out, *m)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeChatRepo) ListRecentByUser(_ context.Context, userID int64, limit int) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChatMessage
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.messages[i]
		if m.SenderID == userID || m.ReceiverID == userID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r fakeChatRepo) MarkRead(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			m.IsRead = true
			m.ReadAt = &at
		}
	}
	return nil
}

func (r fakeChatRepo) CountUnread(_ context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.ReceiverID == userID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (r fakeChatRepo) CreateWorkspaceMessage(_ context.Context, msg *domain.WorkspaceChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failChatWrites != nil {
		return r.failChatWrites
	}
	msg.ID = r.next()
	msg.CreatedAt = time.Now().Add(time.Duration(msg.ID) * time.Millisecond)
	cp := *msg
	r.wsMessages = append(r.wsMessages, &cp)
	return nil
}

func (r fakeChatRepo) ListWorkspaceMessages(_ context.Context, workspaceID int64, limit, offset int) ([]domain.WorkspaceChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WorkspaceChatMessage
	for i := len(r.wsMessages) - 1; i >= 0; i-- {
		if r.wsMessages[i].WorkspaceID == workspaceID {
			out = append(out, *r.wsMessages[i])
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeChatRepo) LastWorkspaceActivity(_ context.Context, workspaceID int64) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *time.Time
	for _, m := range r.wsMessages {
		if m.WorkspaceID == workspaceID && (last == nil || m.CreatedAt.After(*last)) {
			at := m.CreatedAt
			last = &at
		}
	}
	return last, nil
}

// services bundles every service over one shared in-memory store.
type services struct {
	store     *store
	access    *AccessService
	auth      *AuthService
	workspace *WorkspaceService
	invite    *InviteService
	task      *TaskService
	comment   *CommentService
	chat      *ChatService
}

func newServices() *services {
	st := newStore()
	users := fakeUserRepo{st}
	workspaces := fakeWorkspaceRepo{st}
	access := NewAccessService(workspaces)

	return &services{
		store:     st,
		access:    access,
		auth:      NewAuthService(users, "test-secret", time.Hour),
		workspace: NewWorkspaceService(workspaces, users, access),
		invite:    NewInviteService(fakeInviteRepo{st}, workspaces, access, "http://app.test/invite"),
		task:      NewTaskService(fakeTaskRepo{st}, access),
		comment:   NewCommentService(fakeCommentRepo{st}, fakeTaskRepo{st}, users, access),
		chat:      NewChatService(fakeChatRepo{st}, users, workspaces, access),
	}
}

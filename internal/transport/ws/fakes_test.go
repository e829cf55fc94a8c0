package ws

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/service"
	"nhooyr.io/websocket"
)

var errBrokenPipe = errors.New("broken pipe")

type readResult struct {
	data []byte
	err  error
}

// fakeTransport is an in-memory Transport. Frames pushed with send are
// returned by Read; Close unblocks a pending Read.
type fakeTransport struct {
	in     chan readResult
	out    chan []byte
	closed chan struct{}

	mu          sync.Mutex
	writeErr    error
	closeCalls  int
	closeCode   websocket.StatusCode
	closeReason string
	once        sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan readResult, 16),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) send(frame string) {
	t.in <- readResult{data: []byte(frame)}
}

// hangUp simulates the client sending a normal close frame.
func (t *fakeTransport) hangUp() {
	t.in <- readResult{err: websocket.CloseError{Code: websocket.StatusNormalClosure}}
}

func (t *fakeTransport) fail(err error) {
	t.in <- readResult{err: err}
}

func (t *fakeTransport) breakWrites() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writeErr = errBrokenPipe
}

func (t *fakeTransport) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-t.closed:
		return nil, io.EOF
	default:
	}
	select {
	case r := <-t.in:
		return r.data, r.err
	case <-t.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *fakeTransport) Write(ctx context.Context, data []byte) error {
	t.mu.Lock()
	err := t.writeErr
	t.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case t.out <- data:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *fakeTransport) Close(code websocket.StatusCode, reason string) error {
	t.mu.Lock()
	t.closeCalls++
	if t.closeCalls == 1 {
		t.closeCode = code
		t.closeReason = reason
	}
	t.mu.Unlock()
	t.once.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) closeStatus() (websocket.StatusCode, string, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeCode, t.closeReason, t.closeCalls
}

// next waits for the next frame written to the transport.
func (t *fakeTransport) next(timeout time.Duration) ([]byte, bool) {
	select {
	case data := <-t.out:
		return data, true
	case <-time.After(timeout):
		return nil, false
	}
}

type fakeAuth struct {
	users map[string]*domain.User
	errs  map[string]error
}

func (a *fakeAuth) ResolveSubject(_ context.Context, token string) (*domain.User, error) {
	if err, ok := a.errs[token]; ok {
		return nil, err
	}
	if u, ok := a.users[token]; ok {
		return u, nil
	}
	return nil, service.ErrInvalidToken
}

// fakeAccess grants access per (workspace, user); unknown workspaces are missing.
type fakeAccess struct {
	mu      sync.Mutex
	members map[int64]map[int64]bool
}

func (a *fakeAccess) grant(workspaceID, userID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.members[workspaceID] == nil {
		a.members[workspaceID] = make(map[int64]bool)
	}
	a.members[workspaceID][userID] = true
}

func (a *fakeAccess) revoke(workspaceID, userID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.members[workspaceID], userID)
}

func (a *fakeAccess) AuthorizeWorkspace(_ context.Context, userID, workspaceID int64) (*domain.Workspace, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.members[workspaceID]
	if !ok {
		return nil, service.ErrWorkspaceNotFound
	}
	if !m[userID] {
		return nil, service.ErrWorkspaceAccessDenied
	}
	return &domain.Workspace{ID: workspaceID}, nil
}

// fakeStore persists into memory and consults access for workspace writes.
type fakeStore struct {
	access *fakeAccess
	users  map[int64]bool

	mu         sync.Mutex
	seq        int64
	personal   []domain.ChatMessage
	workspace  []domain.WorkspaceChatMessage
	failWrites int
}

func (s *fakeStore) SendPersonalMessage(_ context.Context, senderID, receiverID int64, content string) (*domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites > 0 {
		s.failWrites--
		return nil, errors.New("connection refused")
	}
	if !s.users[receiverID] {
		return nil, service.ErrUserNotFound
	}
	s.seq++
	msg := domain.ChatMessage{ID: s.seq, Content: content, SenderID: senderID, ReceiverID: receiverID, CreatedAt: time.Now().UTC()}
	s.personal = append(s.personal, msg)
	return &msg, nil
}

func (s *fakeStore) SendWorkspaceMessage(ctx context.Context, senderID, workspaceID int64, content string) (*domain.WorkspaceChatMessage, error) {
	if _, err := s.access.AuthorizeWorkspace(ctx, senderID, workspaceID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites > 0 {
		s.failWrites--
		return nil, errors.New("connection refused")
	}
	s.seq++
	msg := domain.WorkspaceChatMessage{ID: s.seq, Content: content, WorkspaceID: workspaceID, SenderID: senderID, CreatedAt: time.Now().UTC()}
	s.workspace = append(s.workspace, msg)
	return &msg, nil
}

func (s *fakeStore) personalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.personal)
}

func (s *fakeStore) setFailures(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

// harness wires a Handler over fakes. Tokens are the users' emails.
type harness struct {
	handler  *Handler
	registry *Registry
	auth     *fakeAuth
	access   *fakeAccess
	store    *fakeStore
}

func newHarness(users ...*domain.User) *harness {
	auth := &fakeAuth{users: make(map[string]*domain.User), errs: make(map[string]error)}
	access := &fakeAccess{members: make(map[int64]map[int64]bool)}
	store := &fakeStore{access: access, users: make(map[int64]bool)}
	for _, u := range users {
		auth.users[u.Email] = u
		store.users[u.ID] = true
	}

	registry := NewRegistry(discardLogger())
	h := NewHandler(auth, access, store, registry, discardLogger(), Options{
		WriteTimeout:   time.Second,
		AllowedOrigins: []string{"*"},
	})
	return &harness{handler: h, registry: registry, auth: auth, access: access, store: store}
}

func newUser(id int64, email, name string) *domain.User {
	return &domain.User{ID: id, Email: email, Name: strPtr(name), IsActive: true}
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/service"
	"nhooyr.io/websocket"
)

// State is a session's position in its lifecycle.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateAuthorizing
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthorizing:
		return "authorizing"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	// maxStoreFailures consecutive store errors end the session.
	maxStoreFailures = 3

	// maxContentBytes caps message content. Longer content is rejected
	// per frame, below the read limit that would end the session.
	maxContentBytes = 64 * 1024
)

type Authenticator interface {
	ResolveSubject(ctx context.Context, token string) (*domain.User, error)
}

type Authorizer interface {
	AuthorizeWorkspace(ctx context.Context, userID, workspaceID int64) (*domain.Workspace, error)
}

type MessageStore interface {
	SendPersonalMessage(ctx context.Context, senderID, receiverID int64, content string) (*domain.ChatMessage, error)
	SendWorkspaceMessage(ctx context.Context, senderID, workspaceID int64, content string) (*domain.WorkspaceChatMessage, error)
}

// channel is the variant-specific part of a session: who may join, where
// the session is registered, and how inbound frames are handled.
type channel interface {
	authorize(ctx context.Context, s *Session) error
	register(s *Session)
	unregister(s *Session)
	handle(ctx context.Context, s *Session, frame []byte) error
}

// frameError rejects a single frame. The session keeps running.
type frameError struct {
	code    string
	message string
	err     error
}

func (e *frameError) Error() string {
	if e.err != nil {
		return e.code + ": " + e.err.Error()
	}
	return e.code + ": " + e.message
}

func invalidPayload(message string) *frameError {
	return &frameError{code: CodeInvalidPayload, message: message}
}

func storeFailed(err error) *frameError {
	return &frameError{code: CodeStoreFailed, message: "message could not be saved", err: err}
}

// closeError ends the session with the given close frame.
type closeError struct {
	code   websocket.StatusCode
	reason string
}

func (e *closeError) Error() string {
	return fmt.Sprintf("ws close %d: %s", e.code, e.reason)
}

func policyViolation(reason string) *closeError {
	return &closeError{code: websocket.StatusPolicyViolation, reason: reason}
}

func internalError(err error) *closeError {
	return &closeError{code: websocket.StatusInternalError, reason: err.Error()}
}

// Session runs one connection through authenticate, authorize and the
// receive loop. Run must be called once.
type Session struct {
	h         *Handler
	transport Transport
	token     string
	ch        channel
	log       *slog.Logger

	state         State
	user          *domain.User
	peer          *Peer
	storeFailures int
	observe       func(from, to State)

	closeOnce sync.Once
}

// OnTransition installs fn to be called on every state change. It must be
// set before Run.
func (s *Session) OnTransition(fn func(from, to State)) {
	s.observe = fn
}

func (s *Session) Run(ctx context.Context) {
	s.state = StateConnecting
	for s.state != StateClosed {
		s.transition(s.step(ctx))
	}
	// No-op when a step already closed the transport.
	s.close(websocket.StatusNormalClosure, "")
}

func (s *Session) step(ctx context.Context) State {
	switch s.state {
	case StateConnecting:
		return s.connecting()
	case StateAuthenticating:
		return s.authenticating(ctx)
	case StateAuthorizing:
		return s.authorizing(ctx)
	case StateActive:
		return s.active(ctx)
	default:
		return StateClosed
	}
}

func (s *Session) transition(next State) {
	from := s.state
	s.state = next
	if s.observe != nil {
		s.observe(from, next)
	}
}

// connecting runs after the transport handshake; the credential was taken
// from the request already.
func (s *Session) connecting() State {
	s.log.Debug("ws connected")
	return StateAuthenticating
}

func (s *Session) authenticating(ctx context.Context) State {
	user, err := s.h.auth.ResolveSubject(ctx, s.token)
	if err != nil {
		s.reject(authCloseError(err))
		return StateClosed
	}
	s.user = user
	s.log = s.log.With("user_id", user.ID)
	return StateAuthorizing
}

func (s *Session) authorizing(ctx context.Context) State {
	if err := s.ch.authorize(ctx, s); err != nil {
		s.reject(err)
		return StateClosed
	}
	s.peer = NewPeer(s.transport, s.h.opts.WriteTimeout)
	s.log = s.log.With("peer", s.peer.ID)
	return StateActive
}

// active registers the session, then reads frames until the transport
// ends. The deferred unregister is the single cleanup for every exit.
func (s *Session) active(ctx context.Context) State {
	s.ch.register(s)
	defer s.ch.unregister(s)
	s.log.Info("ws session active")

	stop := context.AfterFunc(ctx, func() {
		s.close(websocket.StatusGoingAway, ReasonShutdown)
	})
	defer stop()

	// Reads end via Close, so the shutdown close frame is sent first.
	readCtx := context.WithoutCancel(ctx)
	for {
		data, err := s.transport.Read(readCtx)
		if err != nil {
			s.readFailed(ctx, err)
			return StateClosed
		}

		if err := s.ch.handle(ctx, s, data); err != nil {
			if ce := s.frameFailed(ctx, err); ce != nil {
				s.log.Warn("ws session terminated", "code", int(ce.code), "reason", ce.reason)
				s.close(ce.code, ce.reason)
				return StateClosed
			}
			continue
		}
		s.storeFailures = 0
	}
}

func (s *Session) readFailed(ctx context.Context, err error) {
	switch {
	case ctx.Err() != nil:
		s.log.Info("ws session closed on shutdown")
		s.close(websocket.StatusGoingAway, ReasonShutdown)
	case websocket.CloseStatus(err) != -1:
		s.log.Info("ws disconnected", "status", int(websocket.CloseStatus(err)))
		s.close(websocket.StatusNormalClosure, "")
	default:
		s.log.Warn("ws read error", "error", err)
		s.close(websocket.StatusInternalError, err.Error())
	}
}

// frameFailed reports a rejected frame to its sender and returns a
// closeError when the session must end.
func (s *Session) frameFailed(ctx context.Context, err error) *closeError {
	var ce *closeError
	if errors.As(err, &ce) {
		return ce
	}

	var fe *frameError
	if !errors.As(err, &fe) {
		return internalError(err)
	}

	if fe.code == CodeStoreFailed {
		s.storeFailures++
		s.log.Error("ws message store failed", "error", fe.err, "consecutive", s.storeFailures)
	} else {
		s.log.Debug("ws frame rejected", "code", fe.code, "message", fe.message)
	}

	if werr := s.peer.send(ctx, encodeError(fe.code, fe.message)); werr != nil {
		s.log.Debug("ws error reply failed", "error", werr)
	}

	if s.storeFailures >= maxStoreFailures {
		return &closeError{code: websocket.StatusInternalError, reason: "message store unavailable"}
	}
	return nil
}

func (s *Session) reject(err error) {
	var ce *closeError
	if !errors.As(err, &ce) {
		ce = internalError(err)
	}
	s.log.Info("ws session rejected", "code", int(ce.code), "reason", ce.reason)
	s.close(ce.code, ce.reason)
}

func (s *Session) close(code websocket.StatusCode, reason string) {
	s.closeOnce.Do(func() {
		if err := s.transport.Close(code, reason); err != nil {
			s.log.Debug("ws close", "error", err)
		}
	})
}

func authCloseError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		return policyViolation(ReasonInvalidToken)
	case errors.Is(err, service.ErrUserNotFound):
		return policyViolation(ReasonUserNotFound)
	case errors.Is(err, service.ErrInactiveUser):
		return policyViolation(ReasonInactiveUser)
	default:
		return internalError(err)
	}
}

func workspaceCloseError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrWorkspaceNotFound):
		return policyViolation(ReasonWorkspaceMissing)
	case errors.Is(err, service.ErrWorkspaceAccessDenied):
		return policyViolation(ReasonAccessDenied)
	default:
		return internalError(err)
	}
}

// personalChannel is keyed by subject. Any authenticated subject may join.
type personalChannel struct{}

func (personalChannel) authorize(context.Context, *Session) error { return nil }

func (personalChannel) register(s *Session) {
	s.h.registry.RegisterPersonal(s.user.ID, s.peer)
}

func (personalChannel) unregister(s *Session) {
	s.h.registry.UnregisterPersonal(s.user.ID, s.peer)
}

func (personalChannel) handle(ctx context.Context, s *Session, frame []byte) error {
	var in PersonalMessageIn
	if err := json.Unmarshal(frame, &in); err != nil {
		return invalidPayload("expected {\"content\": string, \"receiver_id\": integer}")
	}
	if err := checkContent(in.Content); err != nil {
		return err
	}
	if in.ReceiverID <= 0 {
		return invalidPayload("receiver_id must be a positive integer")
	}

	msg, err := s.h.store.SendPersonalMessage(ctx, s.user.ID, in.ReceiverID, in.Content)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return &frameError{code: CodeReceiverNotFound, message: "receiver not found"}
	case errors.Is(err, service.ErrEmptyMessage), errors.Is(err, service.ErrInvalidReceiver):
		return invalidPayload(err.Error())
	case err != nil:
		return storeFailed(err)
	}

	s.h.dispatch.Personal(ctx, msg, s.user)
	return nil
}

func checkContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return invalidPayload("content is required")
	}
	if len(content) > maxContentBytes {
		return invalidPayload(fmt.Sprintf("content exceeds %d bytes", maxContentBytes))
	}
	return nil
}

// workspaceChannel is keyed by (workspace, subject). Access is checked on
// join and again by the store on every message.
type workspaceChannel struct {
	workspaceID int64
}

func (c workspaceChannel) authorize(ctx context.Context, s *Session) error {
	_, err := s.h.access.AuthorizeWorkspace(ctx, s.user.ID, c.workspaceID)
	return workspaceCloseError(err)
}

func (c workspaceChannel) register(s *Session) {
	s.h.registry.RegisterWorkspace(c.workspaceID, s.user.ID, s.peer)
}

func (c workspaceChannel) unregister(s *Session) {
	s.h.registry.UnregisterWorkspace(c.workspaceID, s.user.ID, s.peer)
}

func (c workspaceChannel) handle(ctx context.Context, s *Session, frame []byte) error {
	var in WorkspaceMessageIn
	if err := json.Unmarshal(frame, &in); err != nil {
		return invalidPayload("expected {\"content\": string}")
	}
	if err := checkContent(in.Content); err != nil {
		return err
	}

	msg, err := s.h.store.SendWorkspaceMessage(ctx, s.user.ID, c.workspaceID, in.Content)
	switch {
	case errors.Is(err, service.ErrWorkspaceNotFound), errors.Is(err, service.ErrWorkspaceAccessDenied):
		return workspaceCloseError(err)
	case errors.Is(err, service.ErrEmptyMessage):
		return invalidPayload(err.Error())
	case err != nil:
		return storeFailed(err)
	}

	s.h.dispatch.Workspace(ctx, msg, s.user)
	return nil
}

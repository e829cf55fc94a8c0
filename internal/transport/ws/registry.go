package ws

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultFanOut       = 32
)

// Delivery is the outcome of a best-effort push. Callers are free to
// ignore it; failures have already been handled by the registry.
type Delivery int

const (
	// NoRecipient means nothing was registered under the key.
	NoRecipient Delivery = iota
	Delivered
	// Evicted means the write failed and the stale entry was removed.
	Evicted
)

func (d Delivery) String() string {
	switch d {
	case Delivered:
		return "delivered"
	case Evicted:
		return "evicted"
	default:
		return "no_recipient"
	}
}

// BroadcastResult counts per-recipient outcomes of a workspace broadcast.
type BroadcastResult struct {
	Delivered int
	Evicted   int
}

// Peer is the registry's handle on a live session transport. The registry
// never closes a peer; it only drops its reference.
type Peer struct {
	ID           uuid.UUID
	transport    Transport
	writeTimeout time.Duration
}

func NewPeer(t Transport, writeTimeout time.Duration) *Peer {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Peer{ID: uuid.New(), transport: t, writeTimeout: writeTimeout}
}

func (p *Peer) send(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()
	return p.transport.Write(ctx, payload)
}

// Registry indexes live sessions by subject for personal chat and by
// (workspace, subject) for workspace chat. At most one peer is held per key;
// registering again overwrites.
type Registry struct {
	personal sync.Map // int64 -> *Peer
	rooms    sync.Map // int64 -> *room
	fanOut   int
	log      *slog.Logger
}

type room struct {
	mu     sync.Mutex
	peers  map[int64]*Peer
	closed bool // set once the room is dropped from the registry
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{fanOut: defaultFanOut, log: logger}
}

func (r *Registry) RegisterPersonal(subjectID int64, p *Peer) {
	r.personal.Store(subjectID, p)
}

// UnregisterPersonal removes the entry only while it still refers to p,
// so a superseded session cannot evict its replacement. It reports whether
// anything was removed.
func (r *Registry) UnregisterPersonal(subjectID int64, p *Peer) bool {
	return r.personal.CompareAndDelete(subjectID, p)
}

func (r *Registry) RegisterWorkspace(workspaceID, subjectID int64, p *Peer) {
	for {
		v, _ := r.rooms.LoadOrStore(workspaceID, &room{peers: make(map[int64]*Peer)})
		rm := v.(*room)

		rm.mu.Lock()
		if rm.closed {
			// Lost a race with the last unregister; the room is already
			// gone from the map, so the next LoadOrStore creates a fresh one.
			rm.mu.Unlock()
			continue
		}
		rm.peers[subjectID] = p
		rm.mu.Unlock()
		return
	}
}

// UnregisterWorkspace removes the (workspace, subject) entry if it still
// refers to p and drops the room once it is empty.
func (r *Registry) UnregisterWorkspace(workspaceID, subjectID int64, p *Peer) bool {
	v, ok := r.rooms.Load(workspaceID)
	if !ok {
		return false
	}
	rm := v.(*room)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if cur, ok := rm.peers[subjectID]; !ok || cur != p {
		return false
	}
	delete(rm.peers, subjectID)
	if len(rm.peers) == 0 {
		rm.closed = true
		r.rooms.CompareAndDelete(workspaceID, rm)
	}
	return true
}

// SendToSubject pushes payload to the subject's personal peer. A failed
// write evicts the peer. Errors never reach the caller.
func (r *Registry) SendToSubject(ctx context.Context, subjectID int64, payload []byte) Delivery {
	v, ok := r.personal.Load(subjectID)
	if !ok {
		return NoRecipient
	}
	p := v.(*Peer)

	if err := p.send(ctx, payload); err != nil {
		r.UnregisterPersonal(subjectID, p)
		r.log.Debug("ws evicted stale peer", "peer", p.ID, "user_id", subjectID, "error", err)
		return Evicted
	}
	return Delivered
}

// BroadcastToWorkspace pushes payload to every peer in the workspace except
// excludeSubjectID. Recipients are written concurrently; each failure evicts
// only that recipient.
func (r *Registry) BroadcastToWorkspace(ctx context.Context, workspaceID int64, payload []byte, excludeSubjectID int64) BroadcastResult {
	targets := r.snapshot(workspaceID, excludeSubjectID)
	if len(targets) == 0 {
		return BroadcastResult{}
	}

	var delivered, evicted atomic.Int64
	var g errgroup.Group
	g.SetLimit(r.fanOut)

	for subjectID, p := range targets {
		g.Go(func() error {
			if err := p.send(ctx, payload); err != nil {
				r.UnregisterWorkspace(workspaceID, subjectID, p)
				r.log.Debug("ws evicted stale peer",
					"peer", p.ID, "user_id", subjectID, "workspace_id", workspaceID, "error", err)
				evicted.Add(1)
				return nil
			}
			delivered.Add(1)
			return nil
		})
	}
	g.Wait()

	return BroadcastResult{Delivered: int(delivered.Load()), Evicted: int(evicted.Load())}
}

func (r *Registry) snapshot(workspaceID, excludeSubjectID int64) map[int64]*Peer {
	v, ok := r.rooms.Load(workspaceID)
	if !ok {
		return nil
	}
	rm := v.(*room)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	out := make(map[int64]*Peer, len(rm.peers))
	for id, p := range rm.peers {
		if id != excludeSubjectID {
			out[id] = p
		}
	}
	return out
}

// IsOnline reports whether the subject has a personal session registered.
func (r *Registry) IsOnline(subjectID int64) bool {
	_, ok := r.personal.Load(subjectID)
	return ok
}

func (r *Registry) PersonalCount() int {
	n := 0
	r.personal.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// WorkspaceCount returns how many peers are registered in the workspace.
func (r *Registry) WorkspaceCount(workspaceID int64) int {
	v, ok := r.rooms.Load(workspaceID)
	if !ok {
		return 0
	}
	rm := v.(*room)
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.peers)
}

// Rooms returns the number of workspaces with at least one peer.
func (r *Registry) Rooms() int {
	n := 0
	r.rooms.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

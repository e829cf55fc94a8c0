package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"nhooyr.io/websocket"
)

type Options struct {
	WriteTimeout   time.Duration
	ReadLimit      int64
	PingInterval   time.Duration
	AllowedOrigins []string
}

// Handler accepts chat WebSocket connections and runs a Session for each.
type Handler struct {
	auth     Authenticator
	access   Authorizer
	store    MessageStore
	registry *Registry
	dispatch *Dispatcher
	log      *slog.Logger
	opts     Options
	accept   *websocket.AcceptOptions
}

func NewHandler(auth Authenticator, access Authorizer, store MessageStore, registry *Registry, logger *slog.Logger, opts Options) *Handler {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 1 << 20
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = pingInterval
	}

	return &Handler{
		auth:     auth,
		access:   access,
		store:    store,
		registry: registry,
		dispatch: NewDispatcher(registry, logger),
		log:      logger,
		opts:     opts,
		accept:   acceptOptions(opts.AllowedOrigins),
	}
}

// ServePersonal handles GET /api/v1/chat/ws?token=...
// The token is checked after the upgrade so clients see the close reason.
func (h *Handler) ServePersonal(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		h.log.Warn("ws accept failed", "error", err)
		return
	}

	t := newConnTransport(conn, h.opts.ReadLimit)
	h.serve(r.Context(), conn, h.NewPersonalSession(t, r.URL.Query().Get("token")))
}

// ServeWorkspace handles GET /api/v1/chat/ws/{workspace_id}?token=...
func (h *Handler) ServeWorkspace(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := strconv.ParseInt(r.PathValue("workspace_id"), 10, 64)
	if err != nil || workspaceID <= 0 {
		http.Error(w, "invalid workspace id", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		h.log.Warn("ws accept failed", "error", err)
		return
	}

	t := newConnTransport(conn, h.opts.ReadLimit)
	h.serve(r.Context(), conn, h.NewWorkspaceSession(t, r.URL.Query().Get("token"), workspaceID))
}

func (h *Handler) NewPersonalSession(t Transport, token string) *Session {
	return h.newSession(t, token, personalChannel{}, h.log.With("chat", "personal"))
}

func (h *Handler) NewWorkspaceSession(t Transport, token string, workspaceID int64) *Session {
	ch := workspaceChannel{workspaceID: workspaceID}
	return h.newSession(t, token, ch, h.log.With("chat", "workspace", "workspace_id", workspaceID))
}

func (h *Handler) newSession(t Transport, token string, ch channel, log *slog.Logger) *Session {
	return &Session{
		h:         h,
		transport: t,
		token:     token,
		ch:        ch,
		log:       log,
	}
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, s *Session) {
	pingCtx, stop := context.WithCancel(ctx)
	defer stop()
	go keepAlive(pingCtx, conn, h.opts.PingInterval, h.opts.WriteTimeout, h.log)

	s.Run(ctx)
}

// acceptOptions turns configured origins into nhooyr host patterns.
// A "*" entry disables the origin check.
func acceptOptions(origins []string) *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, o := range origins {
		if o == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			o = u.Host
		}
		opts.OriginPatterns = append(opts.OriginPatterns, o)
	}
	return opts
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/vedran77/nexttask/internal/config"
	"github.com/vedran77/nexttask/internal/database"
	postgresrepo "github.com/vedran77/nexttask/internal/repository/postgres"
	"github.com/vedran77/nexttask/internal/service"
	"github.com/vedran77/nexttask/internal/transport/http/handlers"
	"github.com/vedran77/nexttask/internal/transport/http/middleware"
	"github.com/vedran77/nexttask/internal/transport/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "nexttask:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	pflag.StringVar(&cfg.ServerPort, "port", cfg.ServerPort, "HTTP listen port")
	pflag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pflag.BoolVar(&cfg.AutoMigrate, "migrate", cfg.AutoMigrate, "apply the database schema on startup")
	pflag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	workspaceRepo := postgresrepo.NewWorkspaceRepo(pool)
	inviteRepo := postgresrepo.NewInviteRepo(pool)
	taskRepo := postgresrepo.NewTaskRepo(pool)
	commentRepo := postgresrepo.NewCommentRepo(pool)
	chatRepo := postgresrepo.NewChatRepo(pool)

	// Services
	accessService := service.NewAccessService(workspaceRepo)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	workspaceService := service.NewWorkspaceService(workspaceRepo, userRepo, accessService)
	inviteService := service.NewInviteService(inviteRepo, workspaceRepo, accessService, cfg.InviteBaseURL)
	taskService := service.NewTaskService(taskRepo, accessService)
	commentService := service.NewCommentService(commentRepo, taskRepo, userRepo, accessService)
	chatService := service.NewChatService(chatRepo, userRepo, workspaceRepo, accessService)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, logger)
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceService, logger)
	inviteHandler := handlers.NewInviteHandler(inviteService, logger)
	taskHandler := handlers.NewTaskHandler(taskService, logger)
	commentHandler := handlers.NewCommentHandler(commentService, logger)
	chatHandler := handlers.NewChatHandler(chatService, logger)
	healthHandler := handlers.NewHealthHandler(pool, logger)

	registry := ws.NewRegistry(logger)
	wsHandler := ws.NewHandler(authService, accessService, chatService, registry, logger, ws.Options{
		WriteTimeout:   cfg.WSWriteTimeout,
		ReadLimit:      cfg.WSReadLimit,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	auth := middleware.Auth(authService)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	// Routes
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/v1/invites/{token}", inviteHandler.Validate)

	// Chat sockets authenticate with the token query parameter
	mux.HandleFunc("GET /api/v1/chat/ws", wsHandler.ServePersonal)
	mux.HandleFunc("GET /api/v1/chat/ws/{workspace_id}", wsHandler.ServeWorkspace)

	// Protected - Profile
	mux.Handle("GET /api/v1/auth/me", protected(authHandler.Me))
	mux.Handle("PATCH /api/v1/auth/me", protected(authHandler.UpdateMe))
	mux.Handle("POST /api/v1/auth/me/password", protected(authHandler.ChangePassword))

	// Protected - Workspaces
	mux.Handle("POST /api/v1/workspaces", protected(workspaceHandler.Create))
	mux.Handle("GET /api/v1/workspaces", protected(workspaceHandler.List))
	mux.Handle("GET /api/v1/workspaces/{id}", protected(workspaceHandler.Get))
	mux.Handle("PATCH /api/v1/workspaces/{id}", protected(workspaceHandler.Update))
	mux.Handle("DELETE /api/v1/workspaces/{id}", protected(workspaceHandler.Delete))
	mux.Handle("POST /api/v1/workspaces/{id}/leave", protected(workspaceHandler.Leave))

	// Protected - Workspace Members
	mux.Handle("POST /api/v1/workspaces/{id}/members", protected(workspaceHandler.AddMember))
	mux.Handle("DELETE /api/v1/workspaces/{id}/members/{uid}", protected(workspaceHandler.RemoveMember))
	mux.Handle("GET /api/v1/workspaces/{id}/members", protected(workspaceHandler.ListMembers))
	mux.Handle("PATCH /api/v1/workspaces/{id}/members/{uid}/role", protected(workspaceHandler.ChangeRole))

	// Protected - Invites
	mux.Handle("POST /api/v1/workspaces/{id}/invites", protected(inviteHandler.Create))
	mux.Handle("GET /api/v1/workspaces/{id}/invites", protected(inviteHandler.List))
	mux.Handle("POST /api/v1/invites/{token}/join", protected(inviteHandler.Join))
	mux.Handle("DELETE /api/v1/invites/{token}", protected(inviteHandler.Revoke))

	// Protected - Tasks
	mux.Handle("GET /api/v1/workspaces/{id}/tasks", protected(taskHandler.ListByWorkspace))
	mux.Handle("PATCH /api/v1/workspaces/{id}/tasks/{tid}/toggle", protected(taskHandler.Toggle))
	mux.Handle("POST /api/v1/tasks", protected(taskHandler.Create))
	mux.Handle("GET /api/v1/tasks/{id}", protected(taskHandler.Get))
	mux.Handle("PUT /api/v1/tasks/{id}", protected(taskHandler.Update))
	mux.Handle("DELETE /api/v1/tasks/{id}", protected(taskHandler.Delete))
	mux.Handle("POST /api/v1/tasks/{id}/assignees", protected(taskHandler.SetAssignees))

	// Protected - Comments
	mux.Handle("GET /api/v1/tasks/{id}/comments", protected(commentHandler.List))
	mux.Handle("GET /api/v1/tasks/{id}/comments/count", protected(commentHandler.Count))
	mux.Handle("POST /api/v1/tasks/{id}/comments", protected(commentHandler.Create))
	mux.Handle("PATCH /api/v1/comments/{id}", protected(commentHandler.Update))
	mux.Handle("DELETE /api/v1/comments/{id}", protected(commentHandler.Delete))

	// Protected - Chat history
	mux.Handle("GET /api/v1/chat/messages/{user_id}", protected(chatHandler.History))
	mux.Handle("PATCH /api/v1/chat/messages/{id}/read", protected(chatHandler.MarkRead))
	mux.Handle("GET /api/v1/chat/messages/workspace/{workspace_id}", protected(chatHandler.WorkspaceHistory))
	mux.Handle("GET /api/v1/chat/unread-count", protected(chatHandler.UnreadCount))
	mux.Handle("GET /api/v1/chat/recent", protected(chatHandler.Recent))

	// Cancelling baseCtx closes every live chat session with 1001.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           middleware.Chain(mux, middleware.Logging(logger), middleware.CORS(cfg.AllowedOrigins)),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "online", registry.PersonalCount(), "rooms", registry.Rooms())
		cancelBase()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/repository"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotCommentOwner = errors.New("only the author can perform this action")
)

type CommentService struct {
	commentRepo repository.CommentRepository
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
	access      *AccessService
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	access *AccessService,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		access:      access,
	}
}

type CommentInput struct {
	Content string `json:"content"`
}

type ListCommentsQuery struct {
	Limit     int
	Offset    int
	Ascending bool
}

func (s *CommentService) List(ctx context.Context, userID, taskID int64, q ListCommentsQuery) ([]domain.Comment, error) {
	if _, err := s.checkTaskAccess(ctx, userID, taskID); err != nil {
		return nil, err
	}

	limit, offset := clampPage(q.Limit, q.Offset)
	comments, err := s.commentRepo.ListByTask(ctx, taskID, limit, offset, q.Ascending)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

func (s *CommentService) Count(ctx context.Context, userID, taskID int64) (int, error) {
	if _, err := s.checkTaskAccess(ctx, userID, taskID); err != nil {
		return 0, err
	}
	return s.commentRepo.CountByTask(ctx, taskID)
}

func (s *CommentService) Create(ctx context.Context, userID, taskID int64, input CommentInput) (*domain.Comment, error) {
	if _, err := s.checkTaskAccess(ctx, userID, taskID); err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, ErrUserNotFound
	}

	comment := &domain.Comment{
		Content:  strings.TrimSpace(input.Content),
		TaskID:   taskID,
		AuthorID: userID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	summary := author.Summary()
	comment.Author = &summary
	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, userID, commentID int64, input CommentInput) (*domain.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, ErrCommentNotFound
	}
	if comment.AuthorID != userID {
		return nil, ErrNotCommentOwner
	}

	if err := s.commentRepo.UpdateContent(ctx, commentID, strings.TrimSpace(input.Content)); err != nil {
		return nil, fmt.Errorf("updating comment: %w", err)
	}

	updated, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrCommentNotFound
	}
	return updated, nil
}

// Delete removes a comment. The author or the workspace owner may delete.
func (s *CommentService) Delete(ctx context.Context, userID, commentID int64) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return ErrCommentNotFound
	}

	if comment.AuthorID != userID {
		task, err := s.taskRepo.GetByID(ctx, comment.TaskID)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrTaskNotFound
		}
		if _, err := s.access.AuthorizeOwner(ctx, userID, task.WorkspaceID); err != nil {
			if errors.Is(err, ErrNotWorkspaceOwner) {
				return ErrNotCommentOwner
			}
			return err
		}
	}

	return s.commentRepo.Delete(ctx, commentID)
}

func (s *CommentService) checkTaskAccess(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if _, err := s.access.AuthorizeWorkspace(ctx, userID, task.WorkspaceID); err != nil {
		return nil, err
	}
	return task, nil
}

// clampPage bounds a page to 1..100 items, defaulting to 50.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

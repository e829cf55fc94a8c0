package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vedran77/nexttask/internal/domain"
	"github.com/vedran77/nexttask/internal/repository"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskWrongWorkspace = errors.New("task does not belong to this workspace")
	ErrNotTaskOwner       = errors.New("only workspace owner or task creator can delete task")
)

type TaskService struct {
	taskRepo repository.TaskRepository
	access   *AccessService
	now      func() time.Time
}

func NewTaskService(taskRepo repository.TaskRepository, access *AccessService) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		access:   access,
		now:      time.Now,
	}
}

type CreateTaskInput struct {
	WorkspaceID int64      `json:"workspace_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

type UpdateTaskInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

type TasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type AssigneesInput struct {
	AssigneeIDs []int64 `json:"assignees_ids"`
}

func (s *TaskService) ListByWorkspace(ctx context.Context, userID, workspaceID int64) (*TasksResponse, error) {
	if _, err := s.access.AuthorizeWorkspace(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return &TasksResponse{Tasks: tasks}, nil
}

func (s *TaskService) Create(ctx context.Context, userID int64, input CreateTaskInput) (*domain.Task, error) {
	if _, err := s.access.AuthorizeWorkspace(ctx, userID, input.WorkspaceID); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      withDefault(input.Status, domain.TaskStatusTodo),
		Priority:    withDefault(input.Priority, domain.TaskPriorityMedium),
		WorkspaceID: input.WorkspaceID,
		CreatorID:   userID,
		DueDate:     input.DueDate,
	}
	s.syncCompletion(task)

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	task, _, err := s.authorizedTask(ctx, userID, taskID)
	return task, err
}

func (s *TaskService) Update(ctx context.Context, userID, taskID int64, input UpdateTaskInput) (*domain.Task, error) {
	task, _, err := s.authorizedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	s.syncCompletion(task)

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, taskID int64) error {
	task, ws, err := s.authorizedTask(ctx, userID, taskID)
	if err != nil {
		return err
	}
	if ws.OwnerID != userID && task.CreatorID != userID {
		return ErrNotTaskOwner
	}
	return s.taskRepo.Delete(ctx, taskID)
}

// Toggle flips a task between todo and done.
func (s *TaskService) Toggle(ctx context.Context, userID, workspaceID, taskID int64) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	if task.WorkspaceID != workspaceID {
		return nil, ErrTaskWrongWorkspace
	}
	if _, err := s.access.AuthorizeWorkspace(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	if task.Status == domain.TaskStatusDone {
		task.Status = domain.TaskStatusTodo
	} else {
		task.Status = domain.TaskStatusDone
	}
	s.syncCompletion(task)

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("toggling task: %w", err)
	}
	return task, nil
}

// SetAssignees replaces the assignees. Users who are not workspace
// participants are skipped.
func (s *TaskService) SetAssignees(ctx context.Context, userID, taskID int64, input AssigneesInput) (*domain.Task, error) {
	task, ws, err := s.authorizedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(input.AssigneeIDs))
	var ids []int64
	for _, id := range input.AssigneeIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ok, err := s.access.IsParticipant(ctx, ws, id)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, id)
		}
	}

	if err := s.taskRepo.SetAssignees(ctx, task.ID, ids); err != nil {
		return nil, fmt.Errorf("setting assignees: %w", err)
	}

	updated, err := s.taskRepo.GetByID(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrTaskNotFound
	}
	return updated, nil
}

func (s *TaskService) authorizedTask(ctx context.Context, userID, taskID int64) (*domain.Task, *domain.Workspace, error) {
	task, err := s.taskRepo.GetByID(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if task == nil {
		return nil, nil, ErrTaskNotFound
	}
	ws, err := s.access.AuthorizeWorkspace(ctx, userID, task.WorkspaceID)
	if err != nil {
		return nil, nil, err
	}
	return task, ws, nil
}

// syncCompletion stamps completed_at the first time a task is done and
// clears it whenever the task leaves done.
func (s *TaskService) syncCompletion(task *domain.Task) {
	if task.Status != domain.TaskStatusDone {
		task.CompletedAt = nil
		return
	}
	if task.CompletedAt == nil {
		now := s.now().UTC()
		task.CompletedAt = &now
	}
}

func withDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ohaline/ohaline/internal/apperror"
	"github.com/ohaline/ohaline/internal/model"
	"github.com/ohaline/ohaline/internal/repository"
)

const MaxTodoTitleLength = 200

// TodoService handles task CRUD with ownership checks. Every operation
// takes the acting userID; a mismatch between actor and owner is
// rejected before any mutation.
type TodoService struct {
	todos  repository.TodoRepository
	logger *slog.Logger
}

func NewTodoService(todos repository.TodoRepository, logger *slog.Logger) *TodoService {
	return &TodoService{
		todos:  todos,
		logger: logger,
	}
}

// Create validates and saves a new todo for the user.
func (s *TodoService) Create(ctx context.Context, userID, title, date string) (*model.Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "todo title is required")
	}
	if len(title) > MaxTodoTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("todo title must be %d characters or less", MaxTodoTitleLength))
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apperror.ValidationFailed("date", "date must be YYYY-MM-DD")
	}

	todo := &model.Todo{
		UserID: userID,
		Title:  title,
		Date:   date,
	}
	if err := s.todos.Create(ctx, todo); err != nil {
		s.logger.Error("failed to create todo",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating todo: %w", err)
	}

	s.logger.Info("todo created",
		slog.String("id", todo.ID),
		slog.String("userID", userID),
	)
	return todo, nil
}

// List returns all of the user's todos.
func (s *TodoService) List(ctx context.Context, userID string) ([]model.Todo, error) {
	todos, err := s.todos.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	return todos, nil
}

// ListByDate returns the user's todos for one day.
func (s *TodoService) ListByDate(ctx context.Context, userID, date string) ([]model.Todo, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apperror.ValidationFailed("date", "date must be YYYY-MM-DD")
	}
	todos, err := s.todos.ListByUserAndDate(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("listing todos by date: %w", err)
	}
	return todos, nil
}

// SetStatus flips the completion flag, after confirming ownership.
func (s *TodoService) SetStatus(ctx context.Context, userID, todoID string, completed bool) (*model.Todo, error) {
	todo, err := s.ownedTodo(ctx, userID, todoID)
	if err != nil {
		return nil, err
	}

	if err := s.todos.SetCompleted(ctx, todoID, completed); err != nil {
		return nil, fmt.Errorf("updating todo status: %w", err)
	}
	todo.IsCompleted = completed
	return todo, nil
}

// Delete removes a todo, after confirming ownership.
func (s *TodoService) Delete(ctx context.Context, userID, todoID string) error {
	if _, err := s.ownedTodo(ctx, userID, todoID); err != nil {
		return err
	}

	if err := s.todos.Delete(ctx, todoID); err != nil {
		return fmt.Errorf("deleting todo: %w", err)
	}
	s.logger.Info("todo deleted",
		slog.String("id", todoID),
		slog.String("userID", userID),
	)
	return nil
}

// ownedTodo fetches a todo and checks the actor owns it. The forbidden
// message does not reveal whether the todo exists for someone else.
func (s *TodoService) ownedTodo(ctx context.Context, userID, todoID string) (*model.Todo, error) {
	if todoID == "" {
		return nil, apperror.ValidationFailed("id", "todo ID is required")
	}
	todo, err := s.todos.GetByID(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if todo.UserID != userID {
		return nil, apperror.Forbidden("you do not own this todo")
	}
	return todo, nil
}

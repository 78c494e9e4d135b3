package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/ohaline/ohaline/internal/apperror"
	"github.com/ohaline/ohaline/internal/model"
	"github.com/ohaline/ohaline/internal/repository"
)

// compile-time check that *DB implements repository.TodoRepository
var _ repository.TodoRepository = (*DB)(nil)

// Create inserts a new todo, assigning its ID and creation timestamp.
func (db *DB) Create(ctx context.Context, todo *model.Todo) error {
	todo.ID = xid.New().String()
	todo.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO todos (id, user_id, title, date, is_completed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		todo.ID,
		todo.UserID,
		todo.Title,
		todo.Date,
		todo.IsCompleted,
		todo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting todo for user %s: %w", todo.UserID, err)
	}
	return nil
}

// GetByID retrieves a single todo.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Todo, error) {
	var t model.Todo
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, date, is_completed, created_at
		 FROM todos WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.UserID, &t.Title, &t.Date, &t.IsCompleted, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("todo", id)
		}
		return nil, fmt.Errorf("sqlite: getting todo %s: %w", id, err)
	}
	return &t, nil
}

// ListByUser returns all of a user's todos, newest target date first.
func (db *DB) ListByUser(ctx context.Context, userID string) ([]model.Todo, error) {
	return db.listTodos(ctx,
		`SELECT id, user_id, title, date, is_completed, created_at
		 FROM todos WHERE user_id = ? ORDER BY date DESC, created_at`,
		userID,
	)
}

// ListByUserAndDate returns the user's todos for one day in creation
// order, which is the order the notification message lists them in.
func (db *DB) ListByUserAndDate(ctx context.Context, userID, date string) ([]model.Todo, error) {
	return db.listTodos(ctx,
		`SELECT id, user_id, title, date, is_completed, created_at
		 FROM todos WHERE user_id = ? AND date = ? ORDER BY created_at`,
		userID, date,
	)
}

func (db *DB) listTodos(ctx context.Context, query string, args ...any) ([]model.Todo, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing todos: %w", err)
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Date, &t.IsCompleted, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing todos: %w", err)
	}
	return todos, nil
}

// SetCompleted flips the completion flag.
func (db *DB) SetCompleted(ctx context.Context, id string, completed bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE todos SET is_completed = ? WHERE id = ?`, completed, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating todo %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: updating todo %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("todo", id)
	}
	return nil
}

// Delete removes a todo.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting todo %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: deleting todo %s: %w", id, err)
	}
	if n == 0 {
		return apperror.NotFound("todo", id)
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ohaline/ohaline/internal/apperror"
)

func TestCreateTodo(t *testing.T) {
	todos := newFakeTodoRepo()
	svc := NewTodoService(todos, testLogger())

	todo, err := svc.Create(context.Background(), "user-1", "  牛乳を買う  ", "2026-03-02")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if todo.ID == "" {
		t.Error("no ID assigned")
	}
	if todo.Title != "牛乳を買う" {
		t.Errorf("title = %q, want trimmed", todo.Title)
	}
	if todo.IsCompleted {
		t.Error("new todo must start incomplete")
	}
}

func TestCreateTodoValidation(t *testing.T) {
	svc := NewTodoService(newFakeTodoRepo(), testLogger())

	cases := []struct {
		name  string
		title string
		date  string
	}{
		{"empty title", "", "2026-03-02"},
		{"whitespace title", "   ", "2026-03-02"},
		{"overlong title", strings.Repeat("あ", MaxTodoTitleLength), "2026-03-02"},
		{"bad date", "buy milk", "02/03/2026"},
		{"empty date", "buy milk", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), "user-1", tc.title, tc.date); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestListByDate(t *testing.T) {
	todos := newFakeTodoRepo()
	svc := NewTodoService(todos, testLogger())

	if _, err := svc.Create(context.Background(), "user-1", "a", "2026-03-02"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(context.Background(), "user-1", "b", "2026-03-03"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(context.Background(), "user-2", "c", "2026-03-02"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.ListByDate(context.Background(), "user-1", "2026-03-02")
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(got) != 1 || got[0].Title != "a" {
		t.Errorf("ListByDate = %+v, want only user-1's todo for that day", got)
	}

	if _, err := svc.ListByDate(context.Background(), "user-1", "yesterday"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad date err = %v, want ErrValidation", err)
	}
}

func TestSetStatus(t *testing.T) {
	todos := newFakeTodoRepo()
	svc := NewTodoService(todos, testLogger())

	created, err := svc.Create(context.Background(), "user-1", "a", "2026-03-02")
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.SetStatus(context.Background(), "user-1", created.ID, true)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if !updated.IsCompleted {
		t.Error("completion flag not set")
	}

	updated, err = svc.SetStatus(context.Background(), "user-1", created.ID, false)
	if err != nil {
		t.Fatalf("SetStatus back: %v", err)
	}
	if updated.IsCompleted {
		t.Error("completion flag not cleared")
	}
}

func TestTodoOwnership(t *testing.T) {
	todos := newFakeTodoRepo()
	svc := NewTodoService(todos, testLogger())

	created, err := svc.Create(context.Background(), "user-1", "a", "2026-03-02")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SetStatus(context.Background(), "user-2", created.ID, true); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("SetStatus by stranger err = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(context.Background(), "user-2", created.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete by stranger err = %v, want ErrForbidden", err)
	}

	// Still there for the owner.
	if _, err := todos.GetByID(context.Background(), created.ID); err != nil {
		t.Errorf("todo gone after forbidden delete: %v", err)
	}
}

func TestDeleteTodo(t *testing.T) {
	todos := newFakeTodoRepo()
	svc := NewTodoService(todos, testLogger())

	created, err := svc.Create(context.Background(), "user-1", "a", "2026-03-02")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(context.Background(), "user-1", created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "user-1", created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), "user-1", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty id err = %v, want ErrValidation", err)
	}
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ohaline/ohaline/internal/auth"
	"github.com/ohaline/ohaline/internal/model"
	"github.com/ohaline/ohaline/internal/service"
)

// TodoHandler exposes task CRUD. Every route sits behind RequireAuth;
// the acting user always comes from the session, never the body.
type TodoHandler struct {
	todos  *service.TodoService
	logger *slog.Logger
}

func NewTodoHandler(todos *service.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{
		todos:  todos,
		logger: logger,
	}
}

// HandleCreate creates a todo.
//
// POST /api/todos  {"title": "...", "date": "YYYY-MM-DD"}
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		Title string `json:"title"`
		Date  string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	todo, err := h.todos.Create(r.Context(), userID, req.Title, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

// HandleList returns the user's todos, optionally filtered to one day.
//
// GET /api/todos
// GET /api/todos?date=YYYY-MM-DD
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var (
		todos []model.Todo
		err   error
	)
	if date := r.URL.Query().Get("date"); date != "" {
		todos, err = h.todos.ListByDate(r.Context(), userID, date)
	} else {
		todos, err = h.todos.List(r.Context(), userID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if todos == nil {
		todos = []model.Todo{}
	}
	writeJSON(w, http.StatusOK, todos)
}

// HandleSetStatus sets the completion flag.
//
// PATCH /api/todos/{id}  {"isCompleted": true}
func (h *TodoHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req struct {
		IsCompleted bool `json:"isCompleted"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	todo, err := h.todos.SetStatus(r.Context(), userID, chi.URLParam(r, "id"), req.IsCompleted)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleDelete removes a todo.
//
// DELETE /api/todos/{id}
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if err := h.todos.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

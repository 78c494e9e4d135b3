package handler

import (
	"log/slog"
	"net/http"

	"github.com/ohaline/ohaline/internal/auth"
	"github.com/ohaline/ohaline/internal/service"
)

// NotificationHandler triggers an on-demand digest push for the session
// user, the same message the scheduler would send.
type NotificationHandler struct {
	notify *service.NotifyService
	logger *slog.Logger
}

func NewNotificationHandler(notify *service.NotifyService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notify: notify,
		logger: logger,
	}
}

// HandleSend pushes the digest now.
//
// POST /api/notifications/send?which=today|tomorrow (auth required)
//
// "which" defaults to today. An unlinked user gets a 409 with the
// "not_linked" error type.
func (h *NotificationHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	which := service.DispatchToday
	switch r.URL.Query().Get("which") {
	case "", "today":
	case "tomorrow":
		which = service.DispatchTomorrow
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "which must be today or tomorrow",
		})
		return
	}

	if err := h.notify.Dispatch(r.Context(), userID, which); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

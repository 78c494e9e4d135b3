package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ohaline/ohaline/internal/almanac"
	"github.com/ohaline/ohaline/internal/apperror"
	"github.com/ohaline/ohaline/internal/model"
	"github.com/ohaline/ohaline/internal/repository"
	"github.com/ohaline/ohaline/internal/weather"
)

// Which selects the target day of a dispatch.
type Which string

const (
	DispatchToday    Which = "today"
	DispatchTomorrow Which = "tomorrow"
)

// ForecastFetcher is the slice of the weather client the dispatcher
// needs. Best-effort only: errors drop the section, never the message.
type ForecastFetcher interface {
	Fetch(ctx context.Context, loc weather.Location) (weather.Report, error)
}

// NotifyService composes and delivers the todo digest, either on demand
// for one user or for every user due at a scheduled slot.
type NotifyService struct {
	users    repository.UserRepository
	todos    repository.TodoRepository
	pusher   Pusher
	forecast ForecastFetcher // nil disables the weather section
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

func NewNotifyService(
	users repository.UserRepository,
	todos repository.TodoRepository,
	pusher Pusher,
	forecast ForecastFetcher,
	loc *time.Location,
	logger *slog.Logger,
) *NotifyService {
	return &NotifyService{
		users:    users,
		todos:    todos,
		pusher:   pusher,
		forecast: forecast,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

var jaWeekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// Dispatch sends one user their digest for today or tomorrow.
// A user with no linked messaging identity gets apperror.ErrNotLinked:
// terminal and user-visible, nothing to retry. Delivery failure
// propagates to the caller.
func (s *NotifyService) Dispatch(ctx context.Context, userID string, which Which) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.Linked() {
		return apperror.NotLinked(userID)
	}

	target := s.now().In(s.loc)
	if which == DispatchTomorrow {
		target = target.AddDate(0, 0, 1)
	}
	date := target.Format("2006-01-02")

	todos, err := s.todos.ListByUserAndDate(ctx, userID, date)
	if err != nil {
		return fmt.Errorf("loading todos for dispatch: %w", err)
	}

	messages := []string{s.buildDigest(target, todos)}
	// Supplementary sections are independently best-effort: a failed or
	// empty lookup omits the section, never blocks the todo list.
	if extra := s.buildAlmanacSection(date); extra != "" {
		messages = append(messages, extra)
	}
	if extra := s.buildWeatherSection(ctx); extra != "" {
		messages = append(messages, extra)
	}

	if err := s.pusher.PushTexts(ctx, *user.LineMessagingID, messages); err != nil {
		return fmt.Errorf("delivering notification: %w", err)
	}

	s.logger.Info("notification sent",
		slog.String("userID", userID),
		slog.String("date", date),
		slog.Int("todos", len(todos)),
	)
	return nil
}

// DispatchDue sends the digest to every linked user whose notification
// time equals the slot. Per-user failures are logged and skipped so one
// user's bad day does not stop the rest of the run.
func (s *NotifyService) DispatchDue(ctx context.Context, slot string) error {
	users, err := s.users.ListDue(ctx, slot)
	if err != nil {
		return fmt.Errorf("listing due users: %w", err)
	}
	if len(users) == 0 {
		return nil
	}

	s.logger.Info("scheduled dispatch starting",
		slog.String("slot", slot),
		slog.Int("users", len(users)),
	)

	for _, u := range users {
		if err := s.Dispatch(ctx, u.ID, DispatchToday); err != nil {
			s.logger.Error("scheduled dispatch failed for user",
				slog.String("userID", u.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// buildDigest renders the core message: date header, then the numbered
// task list (or the no-todos placeholder with no list at all).
func (s *NotifyService) buildDigest(date time.Time, todos []model.Todo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 %d年%d月%d日(%s) のTodo一覧\n\n",
		date.Year(), int(date.Month()), date.Day(), jaWeekdays[date.Weekday()])

	if len(todos) == 0 {
		b.WriteString("この日のTodoはありません。\n素晴らしい一日をお過ごしください！✨")
		return b.String()
	}

	for i, todo := range todos {
		mark := "⬜"
		if todo.IsCompleted {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %d. %s\n", mark, i+1, todo.Title)
	}
	b.WriteString("\n今日も頑張りましょう！💪")
	return b.String()
}

func (s *NotifyService) buildAlmanacSection(date string) string {
	entry, ok := almanac.Lookup(date)
	if !ok {
		return ""
	}
	var lines []string
	if entry.Holiday != "" {
		lines = append(lines, "🎌 今日は「"+entry.Holiday+"」です。")
	}
	if entry.Trivia != "" {
		lines = append(lines, "💡 "+entry.Trivia)
	}
	return strings.Join(lines, "\n")
}

// buildWeatherSection fetches each location independently; a location
// that errors is silently left out, and an empty result skips the
// section.
func (s *NotifyService) buildWeatherSection(ctx context.Context) string {
	if s.forecast == nil {
		return ""
	}

	var lines []string
	for _, loc := range weather.DefaultLocations {
		report, err := s.forecast.Fetch(ctx, loc)
		if err != nil {
			s.logger.Warn("weather fetch failed",
				slog.String("location", loc.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s %.1f℃", report.Location, report.Label(), report.Temperature))
	}
	if len(lines) == 0 {
		return ""
	}
	return "☀️ 今日の天気\n" + strings.Join(lines, "\n")
}

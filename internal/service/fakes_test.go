package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/ohaline/ohaline/internal/apperror"
	"github.com/ohaline/ohaline/internal/model"
	"github.com/ohaline/ohaline/internal/weather"
)

// testLogger discards everything below error so test output stays clean.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeUserRepo is an in-memory implementation of
// repository.UserRepository. A hand-written fake (not a mock framework)
// keeps the link-state semantics visible in one place.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	nextID int
	// set to simulate storage failures
	failWith error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User), nextID: 1}
}

func (f *fakeUserRepo) addUser(t *testing.T, lineUserID string) *model.User {
	t.Helper()
	u := &model.User{LineUserID: lineUserID}
	if err := f.Upsert(context.Background(), u); err != nil {
		t.Fatalf("fake Upsert: %v", err)
	}
	return f.users[u.ID]
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, u := range f.users {
		if u.LineUserID == user.LineUserID {
			u.LineDisplayName = user.LineDisplayName
			u.LinePictureURL = user.LinePictureURL
			*user = *u
			return nil
		}
	}
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	user.NotificationTime = model.DefaultNotificationTime
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByMessagingID(ctx context.Context, messagingID string) (*model.User, error) {
	for _, u := range f.users {
		if u.LineMessagingID != nil && *u.LineMessagingID == messagingID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", messagingID)
}

func (f *fakeUserRepo) SetLinkToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.LinkToken = &token
	u.LinkTokenExpiresAt = &expiresAt
	return nil
}

func (f *fakeUserRepo) FindByLinkToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	for _, u := range f.users {
		if u.LinkToken != nil && *u.LinkToken == token &&
			u.LinkTokenExpiresAt != nil && !u.LinkTokenExpiresAt.Before(now) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("link token", token)
}

func (f *fakeUserRepo) ConsumeLinkToken(ctx context.Context, token, messagingID string, now time.Time) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.LinkToken != nil && *u.LinkToken == token &&
			u.LinkTokenExpiresAt != nil && !u.LinkTokenExpiresAt.Before(now) {
			msgID := messagingID
			u.LineMessagingID = &msgID
			u.LinkToken = nil
			u.LinkTokenExpiresAt = nil
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("link token", token)
}

func (f *fakeUserRepo) FindUnlinkedByLineUserID(ctx context.Context, lineUserID string) (*model.User, error) {
	for _, u := range f.users {
		if u.LineUserID == lineUserID && u.LineMessagingID == nil {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", lineUserID)
}

func (f *fakeUserRepo) SetMessagingID(ctx context.Context, userID, messagingID string) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	msgID := messagingID
	u.LineMessagingID = &msgID
	u.LinkToken = nil
	u.LinkTokenExpiresAt = nil
	return nil
}

func (f *fakeUserRepo) ClearMessagingID(ctx context.Context, messagingID string) error {
	for _, u := range f.users {
		if u.LineMessagingID != nil && *u.LineMessagingID == messagingID {
			u.LineMessagingID = nil
		}
	}
	return nil
}

func (f *fakeUserRepo) SetNotificationTime(ctx context.Context, userID, hhmm string) error {
	u, ok := f.users[userID]
	if !ok {
		return apperror.NotFound("user", userID)
	}
	u.NotificationTime = hhmm
	return nil
}

func (f *fakeUserRepo) ListDue(ctx context.Context, hhmm string) ([]model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var due []model.User
	for _, u := range f.users {
		if u.NotificationTime == hhmm && u.LineMessagingID != nil {
			due = append(due, *u)
		}
	}
	return due, nil
}

// fakeTodoRepo is an in-memory repository.TodoRepository.
type fakeTodoRepo struct {
	todos  map[string]*model.Todo
	nextID int
}

func newFakeTodoRepo() *fakeTodoRepo {
	return &fakeTodoRepo{todos: make(map[string]*model.Todo), nextID: 1}
}

func (f *fakeTodoRepo) Create(ctx context.Context, todo *model.Todo) error {
	todo.ID = fmt.Sprintf("todo-%d", f.nextID)
	f.nextID++
	todo.CreatedAt = time.Now().Add(time.Duration(f.nextID) * time.Millisecond)
	copied := *todo
	f.todos[todo.ID] = &copied
	return nil
}

func (f *fakeTodoRepo) GetByID(ctx context.Context, id string) (*model.Todo, error) {
	t, ok := f.todos[id]
	if !ok {
		return nil, apperror.NotFound("todo", id)
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTodoRepo) ListByUser(ctx context.Context, userID string) ([]model.Todo, error) {
	var out []model.Todo
	for _, t := range f.todos {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTodoRepo) ListByUserAndDate(ctx context.Context, userID, date string) ([]model.Todo, error) {
	var out []model.Todo
	for _, t := range f.todos {
		if t.UserID == userID && t.Date == date {
			out = append(out, *t)
		}
	}
	// creation order
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (f *fakeTodoRepo) SetCompleted(ctx context.Context, id string, completed bool) error {
	t, ok := f.todos[id]
	if !ok {
		return apperror.NotFound("todo", id)
	}
	t.IsCompleted = completed
	return nil
}

func (f *fakeTodoRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.todos[id]; !ok {
		return apperror.NotFound("todo", id)
	}
	delete(f.todos, id)
	return nil
}

// fakePusher records every outbound push.
type fakePusher struct {
	pushes []pushedMessage
	// set to simulate a delivery failure
	failWith error
}

type pushedMessage struct {
	to    string
	texts []string
}

func (f *fakePusher) PushText(ctx context.Context, to, text string) error {
	return f.PushTexts(ctx, to, []string{text})
}

func (f *fakePusher) PushTexts(ctx context.Context, to string, texts []string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.pushes = append(f.pushes, pushedMessage{to: to, texts: texts})
	return nil
}

// lastPush fails the test when nothing was pushed.
func (f *fakePusher) lastPush(t *testing.T) pushedMessage {
	t.Helper()
	if len(f.pushes) == 0 {
		t.Fatal("no message was pushed")
	}
	return f.pushes[len(f.pushes)-1]
}

// fakeForecast returns a fixed report, or an error for every location.
type fakeForecast struct {
	failWith error
}

func (f *fakeForecast) Fetch(ctx context.Context, loc weather.Location) (weather.Report, error) {
	if f.failWith != nil {
		return weather.Report{}, f.failWith
	}
	return weather.Report{Location: loc.Name, Temperature: 20, WeatherCode: 1}, nil
}

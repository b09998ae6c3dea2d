package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/agileboard/internal/domain"
	"github.com/gosuda/agileboard/internal/notify"
	"github.com/gosuda/agileboard/internal/server/middleware"
	"github.com/gosuda/agileboard/internal/store/memory"
)

// ---------------------------------------------------------------------------
// Context helpers — inject a session into context for DoCtx
// ---------------------------------------------------------------------------

func sessionCtx(u *domain.User) context.Context {
	return middleware.WithSession(context.Background(), middleware.Session{
		UserID: u.ID,
		Email:  u.Email,
		Method: middleware.MethodBearer,
	})
}

// ---------------------------------------------------------------------------
// Fixture — an owner, a member and a stranger around one project
// ---------------------------------------------------------------------------

type fixture struct {
	store    *memory.Store
	owner    *domain.User
	member   *domain.User
	stranger *domain.User
	project  *domain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	f := &fixture{store: memory.New()}
	f.owner = f.addUser(t, "owner@example.com", "Olive Owner")
	f.member = f.addUser(t, "member@example.com", "Max Member")
	f.stranger = f.addUser(t, "stranger@example.com", "Sam Stranger")

	p, err := domain.NewProject(f.owner.ID, "Launch", "Ship v1")
	require.NoError(t, err)
	require.NoError(t, f.store.Projects().Create(ctx, p))
	f.project = p

	require.NoError(t, f.store.Members().Add(ctx, &domain.ProjectMember{
		ProjectID: p.ID,
		UserID:    f.member.ID,
		Role:      domain.ProjectRoleMember,
		JoinedAt:  time.Now().UTC(),
	}))

	return f
}

func (f *fixture) addUser(t *testing.T, email, name string) *domain.User {
	t.Helper()

	now := time.Now().UTC()
	u := &domain.User{ID: uuid.New(), Email: email, Name: name, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) addTask(t *testing.T, title string, status domain.TaskStatus) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(f.project.ID, f.owner.ID, title, "", domain.TaskPriorityMedium, nil, nil)
	require.NoError(t, err)
	task.Status = status
	require.NoError(t, f.store.Tasks().Create(context.Background(), task))
	return task
}

func (f *fixture) activity(t *testing.T) []*domain.AuditEntry {
	t.Helper()

	entries, err := f.store.Audit().ListByProject(context.Background(), f.project.ID, 100, 0)
	require.NoError(t, err)
	return entries
}

func newAPI(t *testing.T) humatest.TestAPI {
	t.Helper()

	_, api := humatest.New(t)
	return api
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v), resp.Body.String())
	return v
}

func errorMessage(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()

	return decode[map[string]string](t, resp)["error"]
}

// ---------------------------------------------------------------------------
// Recording side-effect sinks
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.BoardEvent
	err    error
}

func (p *recordingPublisher) PublishBoardEvent(_ context.Context, ev domain.BoardEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []domain.BoardEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]domain.BoardEvent(nil), p.events...)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (n *recordingNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) Sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]notify.Message(nil), n.sent...)
}

// ---------------------------------------------------------------------------
// Failing repositories
// ---------------------------------------------------------------------------

var errDatabase = errors.New("connection refused")

// brokenTaskStore serves everything from memory except task writes.
type brokenTaskStore struct {
	*memory.Store
}

func (s brokenTaskStore) Tasks() domain.TaskRepository {
	return &mockTaskRepo{TaskRepository: s.Store.Tasks()}
}

type mockTaskRepo struct {
	domain.TaskRepository
}

func (m *mockTaskRepo) UpdateStatus(context.Context, uuid.UUID, domain.TaskStatus) (*domain.Task, error) {
	return nil, errDatabase
}

func (m *mockTaskRepo) Update(context.Context, *domain.Task) error {
	return errDatabase
}

func (m *mockTaskRepo) Delete(context.Context, uuid.UUID) error {
	return errDatabase
}

package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/phrazzld/scry-planner/internal/store"
	"github.com/phrazzld/scry-planner/internal/task"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// MockGenerator mocks the generation.Generator interface
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GeneratePlan(ctx context.Context, req generation.ScheduleRequest) (*generation.GeneratedPlan, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generation.GeneratedPlan), args.Error(1)
}

func (m *MockGenerator) GenerateQuiz(ctx context.Context, req generation.QuizRequest) (*generation.GeneratedQuiz, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*generation.GeneratedQuiz), args.Error(1)
}

func sampleQuiz() *generation.GeneratedQuiz {
	return &generation.GeneratedQuiz{
		Title: "Concurrency Quiz",
		Questions: []generation.GeneratedQuestion{
			{
				Text:               "Which keyword starts a goroutine?",
				Options:            []string{"go", "func", "chan", "select"},
				CorrectOptionLabel: "A",
			},
		},
	}
}

// fakePlanStore is an in-memory store.PlanStore. WithTx returns the same
// instance, so writes are visible regardless of transaction outcome.
type fakePlanStore struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*domain.PlanItem
	quizzes map[uuid.UUID][]*domain.Quiz

	setCompletedCalls int
	SetCompletedFn    func(call int, id uuid.UUID, completed bool) error
	CreateQuizErr     error
}

var _ store.PlanStore = (*fakePlanStore)(nil)

func newFakePlanStore(items ...*domain.PlanItem) *fakePlanStore {
	s := &fakePlanStore{
		items:   make(map[uuid.UUID]*domain.PlanItem),
		quizzes: make(map[uuid.UUID][]*domain.Quiz),
	}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *fakePlanStore) snapshot(item *domain.PlanItem) *domain.PlanItem {
	cp := *item
	cp.Subtopics = append([]domain.Subtopic(nil), item.Subtopics...)
	cp.Quiz = nil
	if qs := s.quizzes[item.ID]; len(qs) > 0 {
		cp.Quiz = qs[len(qs)-1]
	}
	return &cp
}

func (s *fakePlanStore) CreatePlanItem(_ context.Context, item *domain.PlanItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := item.Validate(); err != nil {
		return err
	}
	s.items[item.ID] = item
	return nil
}

func (s *fakePlanStore) GetPlanItem(_ context.Context, id uuid.UUID) (*domain.PlanItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrPlanItemNotFound
	}
	return s.snapshot(item), nil
}

func (s *fakePlanStore) GetPlanItemByRange(_ context.Context, scheduleID uuid.UUID, rng string) (*domain.PlanItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ScheduleID == scheduleID && item.Range == rng {
			return s.snapshot(item), nil
		}
	}
	return nil, store.ErrPlanItemNotFound
}

func (s *fakePlanStore) SetSubtopicCompleted(_ context.Context, id uuid.UUID, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCompletedCalls++
	if s.SetCompletedFn != nil {
		if err := s.SetCompletedFn(s.setCompletedCalls, id, completed); err != nil {
			return err
		}
	}
	for _, item := range s.items {
		for i := range item.Subtopics {
			if item.Subtopics[i].ID == id {
				item.Subtopics[i].Completed = completed
				return nil
			}
		}
	}
	return store.ErrSubtopicNotFound
}

func (s *fakePlanStore) DeleteQuizForPlanItem(_ context.Context, planItemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quizzes, planItemID)
	return nil
}

func (s *fakePlanStore) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateQuizErr != nil {
		return s.CreateQuizErr
	}
	if len(s.quizzes[quiz.PlanItemID]) > 0 {
		return store.ErrQuizExists
	}
	s.quizzes[quiz.PlanItemID] = append(s.quizzes[quiz.PlanItemID], quiz)
	return nil
}

func (s *fakePlanStore) WithTx(*sql.Tx) store.PlanStore {
	return s
}

func (s *fakePlanStore) quizCount(planItemID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quizzes[planItemID])
}

func (s *fakePlanStore) completed(planItemID uuid.UUID, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[planItemID].Subtopics[index].Completed
}

// fakeScheduleStore is an in-memory store.ScheduleStore.
type fakeScheduleStore struct {
	mu              sync.Mutex
	schedules       map[uuid.UUID]*domain.Schedule
	CreateErr       error
	SetRemindersErr error
}

var _ store.ScheduleStore = (*fakeScheduleStore)(nil)

func newFakeScheduleStore(schedules ...*domain.Schedule) *fakeScheduleStore {
	s := &fakeScheduleStore{schedules: make(map[uuid.UUID]*domain.Schedule)}
	for _, sc := range schedules {
		s.schedules[sc.ID] = sc
	}
	return s
}

func (s *fakeScheduleStore) Create(_ context.Context, schedule *domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *fakeScheduleStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[id]
	if !ok {
		return nil, store.ErrScheduleNotFound
	}
	cp := *sc
	return &cp, nil
}

func (s *fakeScheduleStore) GetReminderTarget(_ context.Context, userID, scheduleID uuid.UUID) (*domain.ReminderTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[scheduleID]
	if !ok || sc.UserID != userID {
		return nil, store.ErrScheduleNotFound
	}
	return &domain.ReminderTarget{
		UserID:           userID,
		ScheduleID:       scheduleID,
		ScheduleTitle:    sc.Title,
		RemindersEnabled: sc.RemindersEnabled,
	}, nil
}

func (s *fakeScheduleStore) SetReminders(_ context.Context, userID, scheduleID uuid.UUID, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SetRemindersErr != nil {
		return s.SetRemindersErr
	}
	sc, ok := s.schedules[scheduleID]
	if !ok || sc.UserID != userID {
		return store.ErrScheduleNotFound
	}
	if enabled {
		for _, other := range s.schedules {
			if other.UserID == userID {
				other.RemindersEnabled = false
			}
		}
	}
	sc.RemindersEnabled = enabled
	return nil
}

func (s *fakeScheduleStore) remindersEnabled(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules[id].RemindersEnabled
}

func (s *fakeScheduleStore) WithTx(*sql.Tx) store.ScheduleStore {
	return s
}

// fakeReminderScheduler records reminder jobs.
type fakeReminderScheduler struct {
	payloads []task.ReminderPayload
	times    []time.Time
	err      error
}

func (f *fakeReminderScheduler) AddReminderJob(_ context.Context, p task.ReminderPayload, at time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payloads = append(f.payloads, p)
	f.times = append(f.times, at)
	return "reminder-job-1", nil
}

// planFixture is a schedule owned by userID with one plan item "Week 1".
type planFixture struct {
	userID    uuid.UUID
	schedule  *domain.Schedule
	item      *domain.PlanItem
	plans     *fakePlanStore
	schedules *fakeScheduleStore
	sqlMock   sqlmock.Sqlmock
}

func newPlanFixture(t *testing.T, completed ...bool) *planFixture {
	t.Helper()

	userID := uuid.New()
	schedule, err := domain.NewSchedule(userID, "Go Plan", "")
	require.NoError(t, err)

	titles := []string{"Goroutines", "Channels", "Select"}
	item, err := domain.NewPlanItem(schedule.ID, "Week 1", "Concurrency", titles)
	require.NoError(t, err)
	for i, c := range completed {
		item.Subtopics[i].Completed = c
	}

	return &planFixture{
		userID:    userID,
		schedule:  schedule,
		item:      item,
		plans:     newFakePlanStore(item),
		schedules: newFakeScheduleStore(schedule),
	}
}

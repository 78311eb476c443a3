package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-planner/internal/domain"
	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/phrazzld/scry-planner/internal/platform/logger"
	"github.com/phrazzld/scry-planner/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newQuizService(t *testing.T, f *planFixture, gen *MockGenerator) *service.QuizService {
	t.Helper()
	db, sqlMock := newMockDB(t)
	log, _ := logger.NewTestLogger()

	svc, err := service.NewQuizService(db, f.plans, f.schedules, gen, log)
	require.NoError(t, err)
	f.sqlMock = sqlMock
	return svc
}

func TestQuizService_CreateQuiz(t *testing.T) {
	t.Parallel()

	f := newPlanFixture(t, true, true, true)
	gen := &MockGenerator{}
	gen.On("GenerateQuiz", mock.Anything, mock.Anything).Return(sampleQuiz(), nil).Once()
	svc := newQuizService(t, f, gen)
	f.sqlMock.ExpectBegin()
	f.sqlMock.ExpectCommit()

	quiz, err := svc.CreateQuiz(context.Background(), f.userID, f.item.ID)
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 1)
	assert.Equal(t, "A", quiz.Questions[0].CorrectOptionLabel)
	require.Len(t, quiz.Questions[0].Options, domain.QuestionOptionCount)
	assert.Equal(t, "D", quiz.Questions[0].Options[3].Label)
	assert.Equal(t, 1, f.plans.quizCount(f.item.ID))
	assert.NoError(t, f.sqlMock.ExpectationsWereMet())
}

func TestQuizService_RegenerationReplacesQuiz(t *testing.T) {
	t.Parallel()

	f := newPlanFixture(t, true, true, true)
	gen := &MockGenerator{}
	untitled := sampleQuiz()
	untitled.Title = ""
	gen.On("GenerateQuiz", mock.Anything, mock.Anything).Return(sampleQuiz(), nil).Once()
	gen.On("GenerateQuiz", mock.Anything, mock.Anything).Return(untitled, nil).Once()
	svc := newQuizService(t, f, gen)
	for i := 0; i < 2; i++ {
		f.sqlMock.ExpectBegin()
		f.sqlMock.ExpectCommit()
	}

	first, err := svc.CreateQuiz(context.Background(), f.userID, f.item.ID)
	require.NoError(t, err)
	second, err := svc.CreateQuiz(context.Background(), f.userID, f.item.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Concurrency Quiz", second.Title, "untitled quiz is named after the topic")
	assert.Equal(t, 1, f.plans.quizCount(f.item.ID))

	stored, err := f.plans.GetPlanItem(context.Background(), f.item.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, stored.Quiz.ID)
	assert.NoError(t, f.sqlMock.ExpectationsWereMet())
}

func TestQuizService_CreateQuiz_Errors(t *testing.T) {
	t.Parallel()

	t.Run("plan item not found", func(t *testing.T) {
		f := newPlanFixture(t, true, true, true)
		svc := newQuizService(t, f, &MockGenerator{})
		_, err := svc.CreateQuiz(context.Background(), f.userID, uuid.New())
		assert.ErrorIs(t, err, service.ErrPlanItemNotFound)
	})

	t.Run("not owned", func(t *testing.T) {
		f := newPlanFixture(t, true, true, true)
		svc := newQuizService(t, f, &MockGenerator{})
		_, err := svc.CreateQuiz(context.Background(), uuid.New(), f.item.ID)
		assert.ErrorIs(t, err, service.ErrNotOwned)
	})

	t.Run("subtopics incomplete", func(t *testing.T) {
		f := newPlanFixture(t, true, false, true)
		gen := &MockGenerator{}
		svc := newQuizService(t, f, gen)
		_, err := svc.CreateQuiz(context.Background(), f.userID, f.item.ID)
		assert.ErrorIs(t, err, service.ErrSubtopicsIncomplete)
		gen.AssertNotCalled(t, "GenerateQuiz", mock.Anything, mock.Anything)
	})

	t.Run("generation failure", func(t *testing.T) {
		f := newPlanFixture(t, true, true, true)
		gen := &MockGenerator{}
		gen.On("GenerateQuiz", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: quota exceeded", generation.ErrGenerationFailed))
		svc := newQuizService(t, f, gen)

		_, err := svc.CreateQuiz(context.Background(), f.userID, f.item.ID)
		assert.ErrorIs(t, err, generation.ErrGenerationFailed)
		var svcErr *service.ServiceError
		assert.ErrorAs(t, err, &svcErr)
		assert.Equal(t, 0, f.plans.quizCount(f.item.ID))
	})

	t.Run("unusable question", func(t *testing.T) {
		f := newPlanFixture(t, true, true, true)
		bad := sampleQuiz()
		bad.Questions[0].CorrectOptionLabel = "E"
		gen := &MockGenerator{}
		gen.On("GenerateQuiz", mock.Anything, mock.Anything).Return(bad, nil)
		svc := newQuizService(t, f, gen)

		_, err := svc.CreateQuiz(context.Background(), f.userID, f.item.ID)
		assert.ErrorIs(t, err, generation.ErrSchemaValidation)
	})
}

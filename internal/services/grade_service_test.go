package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openexam/exam-service/internal/events"
	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/utils"
)

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// seedExam builds an exam with two questions worth 10 points total and
// enrolls the given students as takers with passback coordinates.
func seedExam(t *testing.T, repo *fakeRepository, studentIDs ...string) *models.Exam {
	t.Helper()
	ctx := context.Background()

	exam := &models.Exam{ExternalAssignmentID: "assignment-42", Title: "Midterm"}
	require.NoError(t, repo.Exam().Upsert(ctx, exam))

	q1 := &models.Question{ExamID: exam.ID, Text: "First", Type: models.ShortAnswer, PointsPossible: 4}
	q2 := &models.Question{ExamID: exam.ID, Text: "Second", Type: models.ShortAnswer, PointsPossible: 6}
	require.NoError(t, repo.Question().Create(ctx, q1))
	require.NoError(t, repo.Question().Create(ctx, q2))

	for _, id := range studentIDs {
		eu := &models.ExamUser{
			ExamID:            exam.ID,
			UserID:            id,
			HasTaken:          true,
			OutcomeServiceURL: strPtr("https://lms.example.edu/outcomes"),
			ResultSourcedID:   strPtr("sourced-" + id),
		}
		require.NoError(t, repo.ExamUser().Upsert(ctx, eu))
		require.NoError(t, repo.ExamUser().MarkTaken(ctx, exam.ID, id, eu.CreatedAt))
	}
	return exam
}

func scoreResponse(t *testing.T, repo *fakeRepository, questionID uint, userID string, points int) {
	t.Helper()
	ctx := context.Background()
	resp := &models.StudentResponse{QuestionID: questionID, UserID: userID, AnswerResponse: "x"}
	require.NoError(t, repo.Response().Upsert(ctx, resp))
	require.NoError(t, repo.Response().SetGrade(ctx, questionID, userID, intPtr(points), nil))
}

func newTestGradeService(repo *fakeRepository, outcomes *fakeOutcomeClient, publisher events.EventPublisher) GradeService {
	return NewGradeService(repo, outcomes, publisher, testLogger(), utils.NewValidator(), 2)
}

func TestRecomputeGrades(t *testing.T) {
	ctx := context.Background()

	t.Run("sums points and per student scores", func(t *testing.T) {
		repo := newFakeRepository()
		exam := seedExam(t, repo, "alice", "bob")
		scoreResponse(t, repo, 1, "alice", 4)
		scoreResponse(t, repo, 2, "alice", 4)
		scoreResponse(t, repo, 1, "bob", 2)

		service := newTestGradeService(repo, newFakeOutcomeClient(), nil)
		require.NoError(t, service.RecomputeGrades(ctx, exam.ID))

		reloaded, err := repo.Exam().GetByID(ctx, exam.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, reloaded.TotalPoints)

		alice, err := repo.ExamUser().Get(ctx, exam.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, 8, alice.ScoredPoints)

		bob, err := repo.ExamUser().Get(ctx, exam.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, 2, bob.ScoredPoints)
	})

	t.Run("student without scored responses lands at zero", func(t *testing.T) {
		repo := newFakeRepository()
		exam := seedExam(t, repo, "carol")

		// Pretend a stale score is sitting in the column.
		require.NoError(t, repo.ExamUser().UpdateScoredPoints(ctx, exam.ID, "carol", 7))

		service := newTestGradeService(repo, newFakeOutcomeClient(), nil)
		require.NoError(t, service.RecomputeGrades(ctx, exam.ID))

		carol, err := repo.ExamUser().Get(ctx, exam.ID, "carol")
		require.NoError(t, err)
		assert.Equal(t, 0, carol.ScoredPoints)
	})

	t.Run("deleted question drops out of both sums", func(t *testing.T) {
		repo := newFakeRepository()
		exam := seedExam(t, repo, "alice")
		scoreResponse(t, repo, 1, "alice", 4)
		scoreResponse(t, repo, 2, "alice", 6)

		require.NoError(t, repo.Question().Delete(ctx, 2))

		service := newTestGradeService(repo, newFakeOutcomeClient(), nil)
		require.NoError(t, service.RecomputeGrades(ctx, exam.ID))

		reloaded, err := repo.Exam().GetByID(ctx, exam.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, reloaded.TotalPoints)

		alice, err := repo.ExamUser().Get(ctx, exam.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, 4, alice.ScoredPoints)
	})

	t.Run("unknown exam", func(t *testing.T) {
		service := newTestGradeService(newFakeRepository(), newFakeOutcomeClient(), nil)
		err := service.RecomputeGrades(ctx, 999)
		assert.ErrorIs(t, err, ErrExamNotFound)
	})
}

func TestSubmitGrades(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers normalized grades for every taker", func(t *testing.T) {
		repo := newFakeRepository()
		exam := seedExam(t, repo, "alice", "bob")
		scoreResponse(t, repo, 1, "alice", 4)
		scoreResponse(t, repo, 2, "alice", 4)
		scoreResponse(t, repo, 1, "bob", 2)

		outcomes := newFakeOutcomeClient()
		publisher := events.NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))
		service := newTestGradeService(repo, outcomes, publisher)

		summary, err := service.SubmitGrades(ctx, exam.ID)
		require.NoError(t, err)

		assert.Equal(t, 2, summary.Attempted)
		assert.Equal(t, 2, summary.Delivered)
		assert.Equal(t, 0, summary.Failed)

		grades := outcomes.deliveredGrades()
		assert.Equal(t, "0.8", grades["sourced-alice"])
		assert.Equal(t, "0.2", grades["sourced-bob"])

		published := publisher.GetPublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventGradesSubmitted, published[0].Type)
		assert.Equal(t, "assignment-42", published[0].Data.AssignmentExternalID)
		assert.Equal(t, 2, published[0].Data.Delivered)
	})

	t.Run("one failure does not block the others", func(t *testing.T) {
		repo := newFakeRepository()
		exam := seedExam(t, repo, "alice", "bob", "carol")
		scoreResponse(t, repo, 1, "alice", 4)
		scoreResponse(t, repo, 1, "bob", 2)
		scoreResponse(t, repo, 1, "carol", 3)

		outcomes := newFakeOutcomeClient()
		outcomes.failFor["sourced-bob"] = errors.New("outcome service returned 500")
		service := newTestGradeService(repo, outcomes, nil)

		summary, err := service.SubmitGrades(ctx, exam.ID)
		require.NoError(t, err)

		assert.Equal(t, 3, summary.Attempted)
		assert.Equal(t, 2, summary.Delivered)
		assert.Equal(t, 1, summary.Failed)

		grades := outcomes.deliveredGrades()
		assert.Contains(t, grades, "sourced-alice")
		assert.Contains(t, grades, "sourced-carol")
		assert.NotContains(t, grades, "sourced-bob")

		for _, result := range summary.Results {
			if result.UserID == "bob" {
				assert.False(t, result.Delivered)
				assert.Contains(t, result.Reason, "500")
			}
		}
	})

	t.Run("taker without passback coordinates is skipped", func(t *testing.T) {
		repo := newFakeRepository()
		exam := seedExam(t, repo, "alice")

		eu := &models.ExamUser{ExamID: exam.ID, UserID: "dave", HasTaken: true}
		require.NoError(t, repo.ExamUser().Upsert(ctx, eu))
		require.NoError(t, repo.ExamUser().MarkTaken(ctx, exam.ID, "dave", eu.CreatedAt))

		outcomes := newFakeOutcomeClient()
		service := newTestGradeService(repo, outcomes, nil)

		summary, err := service.SubmitGrades(ctx, exam.ID)
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 1, summary.Delivered)
		assert.NotContains(t, outcomes.deliveredGrades(), "sourced-dave")
	})

	t.Run("rerun delivers the same grades again", func(t *testing.T) {
		repo := newFakeRepository()
		exam := seedExam(t, repo, "alice")
		scoreResponse(t, repo, 1, "alice", 4)
		scoreResponse(t, repo, 2, "alice", 4)

		outcomes := newFakeOutcomeClient()
		service := newTestGradeService(repo, outcomes, nil)

		first, err := service.SubmitGrades(ctx, exam.ID)
		require.NoError(t, err)
		second, err := service.SubmitGrades(ctx, exam.ID)
		require.NoError(t, err)

		assert.Equal(t, first.Delivered, second.Delivered)
		assert.Equal(t, "0.8", outcomes.deliveredGrades()["sourced-alice"])
	})

	t.Run("unknown exam", func(t *testing.T) {
		service := newTestGradeService(newFakeRepository(), newFakeOutcomeClient(), nil)
		_, err := service.SubmitGrades(ctx, 999)
		assert.ErrorIs(t, err, ErrExamNotFound)
	})
}

func TestSetQuestionScore(t *testing.T) {
	ctx := context.Background()

	t.Run("scores and recomputes", func(t *testing.T) {
		repo := newFakeRepository()
		exam := seedExam(t, repo, "alice")
		resp := &models.StudentResponse{QuestionID: 1, UserID: "alice", AnswerResponse: "x"}
		require.NoError(t, repo.Response().Upsert(ctx, resp))

		service := newTestGradeService(repo, newFakeOutcomeClient(), nil)
		err := service.SetQuestionScore(ctx, &SetQuestionScoreRequest{
			QuestionID: 1,
			UserID:     "alice",
			Points:     3,
			Feedback:   strPtr("close, missing the edge case"),
		})
		require.NoError(t, err)

		alice, err := repo.ExamUser().Get(ctx, exam.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, 3, alice.ScoredPoints)

		stored, err := repo.Response().Get(ctx, 1, "alice")
		require.NoError(t, err)
		require.NotNil(t, stored.ScoredPoints)
		assert.Equal(t, 3, *stored.ScoredPoints)
		assert.Equal(t, "close, missing the edge case", stored.InstructorFeedback)
	})

	t.Run("missing response", func(t *testing.T) {
		repo := newFakeRepository()
		seedExam(t, repo, "alice")

		service := newTestGradeService(repo, newFakeOutcomeClient(), nil)
		err := service.SetQuestionScore(ctx, &SetQuestionScoreRequest{
			QuestionID: 1,
			UserID:     "nobody",
			Points:     3,
		})
		assert.ErrorIs(t, err, ErrResponseNotFound)
	})
}

func TestFormatGrade(t *testing.T) {
	tests := []struct {
		name   string
		scored int
		total  int
		want   string
	}{
		{"partial credit", 8, 10, "0.8"},
		{"full credit", 10, 10, "1"},
		{"zero score", 0, 10, "0"},
		{"over total clamps to one", 120, 100, "1"},
		{"zero total", 5, 0, "0"},
		{"negative total", 5, -1, "0"},
		{"negative score clamps to zero", -3, 10, "0"},
		{"third", 1, 3, "0.3333333333333333"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatGrade(tt.scored, tt.total))
		})
	}
}

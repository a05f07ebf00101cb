package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/openexam/exam-service/internal/models"
)

// Repository aggregates all per-entity repositories behind one handle.
type Repository interface {
	User() UserRepository
	Exam() ExamRepository
	Question() QuestionRepository
	ExamUser() ExamUserRepository
	Response() ResponseRepository
}

// UserRepository covers the user rows the service owns. Users are created on
// first launch and immutable afterwards.
type UserRepository interface {
	FirstOrCreate(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
}

type ExamRepository interface {
	// Upsert creates or updates the exam keyed by ExternalAssignmentID.
	// Re-launching the same assignment never duplicates the exam.
	Upsert(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Exam, error)

	// UpdateTotalPoints is reserved for the grade aggregator.
	UpdateTotalPoints(ctx context.Context, examID uint, totalPoints int) error
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, question *models.Question) error
	Delete(ctx context.Context, id uint) error // soft delete

	// ListByExam returns live (non-deleted) questions ordered by id.
	ListByExam(ctx context.Context, examID uint) ([]*models.Question, error)

	// SumPoints sums points_possible over live questions of the exam.
	SumPoints(ctx context.Context, examID uint) (int, error)
}

type ExamUserRepository interface {
	// Upsert keyed on (exam_id, user_id); refreshes the passback coordinates
	// supplied by the launch, never the aggregator-owned score columns.
	Upsert(ctx context.Context, examUser *models.ExamUser) error
	Get(ctx context.Context, examID uint, userID string) (*models.ExamUser, error)
	ListByExam(ctx context.Context, examID uint) ([]*models.ExamUser, error)

	// ListTakers returns rows with has_taken = true, the passback population.
	ListTakers(ctx context.Context, examID uint) ([]*models.ExamUser, error)

	// UpdateScoredPoints is reserved for the grade aggregator.
	UpdateScoredPoints(ctx context.Context, examID uint, userID string, points int) error

	MarkTaken(ctx context.Context, examID uint, userID string, finishedAt time.Time) error
}

type ResponseRepository interface {
	// Upsert on the (question_id, user_id) unique key. On conflict only the
	// answer columns are overwritten; instructor_feedback, scored_points and
	// confidence_rating survive re-submissions. The stored row is loaded back
	// into resp.
	Upsert(ctx context.Context, resp *models.StudentResponse) error

	Get(ctx context.Context, questionID uint, userID string) (*models.StudentResponse, error)
	ListByExamAndUser(ctx context.Context, examID uint, userID string) ([]*models.StudentResponse, error)
	ListByQuestion(ctx context.Context, questionID uint) ([]*models.StudentResponse, error)

	// SumScoresByUser groups scored_points (null as 0) by user over the exam's
	// live questions.
	SumScoresByUser(ctx context.Context, examID uint) (map[string]int, error)

	SetGrade(ctx context.Context, questionID uint, userID string, points *int, feedback *string) error
	SetConfidence(ctx context.Context, questionID uint, userID string, rating int) error
}

// IsNotFoundError reports whether err is the storage layer's "no such row".
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

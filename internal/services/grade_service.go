package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openexam/exam-service/internal/events"
	"github.com/openexam/exam-service/internal/lti"
	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories"
	"github.com/openexam/exam-service/internal/utils"
)

const defaultPassbackConcurrency = 4

// GradeService owns the derived score columns and the grade-passback pipeline.
// Recomputation is the single writer of exams.total_points and
// exams_users.scored_points; passback reads those columns and pushes
// normalized grades back to the LMS outcome service.
type GradeService interface {
	// SetQuestionScore records an instructor's manual grade for one response
	// and recomputes the exam's aggregates.
	SetQuestionScore(ctx context.Context, req *SetQuestionScoreRequest) error

	// RecomputeGrades refreshes exam.total_points and every enrolled student's
	// scored_points from the stored per-question scores.
	RecomputeGrades(ctx context.Context, examID uint) error

	// SubmitGrades recomputes and then delivers each taker's grade to the LMS.
	// One student's failure never aborts the others; the summary reports every
	// outcome individually.
	SubmitGrades(ctx context.Context, examID uint) (*PassbackSummary, error)
}

// ===== REQUEST/RESPONSE TYPES =====

type SetQuestionScoreRequest struct {
	QuestionID uint    `json:"question_id" validate:"required"`
	UserID     string  `json:"user_id" validate:"required"`
	Points     int     `json:"points" validate:"min=0"`
	Feedback   *string `json:"feedback"`
}

type StudentPassbackResult struct {
	UserID    string `json:"user_id"`
	Grade     string `json:"grade,omitempty"`
	Delivered bool   `json:"delivered"`
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
}

type PassbackSummary struct {
	ExamID    uint                     `json:"exam_id"`
	Attempted int                      `json:"attempted"`
	Delivered int                      `json:"delivered"`
	Failed    int                      `json:"failed"`
	Skipped   int                      `json:"skipped"`
	Results   []*StudentPassbackResult `json:"results"`
}

// ===== SERVICE IMPLEMENTATION =====

type gradeService struct {
	repo        repositories.Repository
	outcomes    lti.OutcomeClient
	publisher   events.EventPublisher
	logger      utils.Logger
	validator   *utils.Validator
	concurrency int
}

func NewGradeService(repo repositories.Repository, outcomes lti.OutcomeClient, publisher events.EventPublisher, logger utils.Logger, validator *utils.Validator, concurrency int) GradeService {
	if concurrency <= 0 {
		concurrency = defaultPassbackConcurrency
	}
	return &gradeService{
		repo:        repo,
		outcomes:    outcomes,
		publisher:   publisher,
		logger:      logger,
		validator:   validator,
		concurrency: concurrency,
	}
}

func (s *gradeService) SetQuestionScore(ctx context.Context, req *SetQuestionScoreRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	question, err := s.repo.Question().GetByID(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to load question: %w", err)
	}

	if err := s.repo.Response().SetGrade(ctx, req.QuestionID, req.UserID, &req.Points, req.Feedback); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResponseNotFound
		}
		return fmt.Errorf("failed to save score: %w", err)
	}

	s.logger.Info("Question scored",
		"question_id", req.QuestionID,
		"user_id", req.UserID,
		"points", req.Points)
	return s.RecomputeGrades(ctx, question.ExamID)
}

func (s *gradeService) RecomputeGrades(ctx context.Context, examID uint) error {
	if _, err := s.repo.Exam().GetByID(ctx, examID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrExamNotFound
		}
		return fmt.Errorf("failed to load exam: %w", err)
	}

	total, err := s.repo.Question().SumPoints(ctx, examID)
	if err != nil {
		return fmt.Errorf("failed to sum question points: %w", err)
	}
	if err := s.repo.Exam().UpdateTotalPoints(ctx, examID, total); err != nil {
		return fmt.Errorf("failed to update total points: %w", err)
	}

	sums, err := s.repo.Response().SumScoresByUser(ctx, examID)
	if err != nil {
		return fmt.Errorf("failed to sum scores: %w", err)
	}

	examUsers, err := s.repo.ExamUser().ListByExam(ctx, examID)
	if err != nil {
		return fmt.Errorf("failed to list enrollments: %w", err)
	}
	for _, eu := range examUsers {
		// Students with no scored responses land back at zero.
		points := sums[eu.UserID]
		if err := s.repo.ExamUser().UpdateScoredPoints(ctx, examID, eu.UserID, points); err != nil {
			return fmt.Errorf("failed to update score for user %s: %w", eu.UserID, err)
		}
	}

	s.logger.Info("Grades recomputed", "exam_id", examID, "total_points", total, "students", len(examUsers))
	return nil
}

func (s *gradeService) SubmitGrades(ctx context.Context, examID uint) (*PassbackSummary, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	// Deliver the freshest aggregates, not whatever the columns last held.
	if err := s.RecomputeGrades(ctx, examID); err != nil {
		return nil, err
	}
	exam, err = s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload exam: %w", err)
	}

	takers, err := s.repo.ExamUser().ListTakers(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list takers: %w", err)
	}

	summary := &PassbackSummary{ExamID: examID}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, taker := range takers {
		taker := taker
		g.Go(func() error {
			result := s.deliverGrade(gctx, exam.TotalPoints, taker)

			mu.Lock()
			defer mu.Unlock()
			summary.Results = append(summary.Results, result)
			switch {
			case result.Skipped:
				summary.Skipped++
			case result.Delivered:
				summary.Attempted++
				summary.Delivered++
			default:
				summary.Attempted++
				summary.Failed++
			}
			// Failures stay in the summary; never cancel the group.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("Grade passback finished",
		"exam_id", examID,
		"attempted", summary.Attempted,
		"delivered", summary.Delivered,
		"failed", summary.Failed,
		"skipped", summary.Skipped)

	s.publishSubmitted(ctx, exam.ExternalAssignmentID, summary)
	return summary, nil
}

func (s *gradeService) deliverGrade(ctx context.Context, totalPoints int, taker *models.ExamUser) *StudentPassbackResult {
	result := &StudentPassbackResult{UserID: taker.UserID}

	if taker.OutcomeServiceURL == nil || *taker.OutcomeServiceURL == "" ||
		taker.ResultSourcedID == nil || *taker.ResultSourcedID == "" {
		result.Skipped = true
		result.Reason = "no outcome service coordinates from launch"
		s.logger.Warn("Passback skipped", "user_id", taker.UserID, "reason", result.Reason)
		return result
	}

	grade := FormatGrade(taker.ScoredPoints, totalPoints)
	result.Grade = grade

	if err := s.outcomes.ReplaceResult(ctx, *taker.OutcomeServiceURL, *taker.ResultSourcedID, grade); err != nil {
		udErr := &UpstreamDeliveryError{
			UserID:     taker.UserID,
			TargetURL:  *taker.OutcomeServiceURL,
			Reason:     err.Error(),
			Underlying: err,
		}
		result.Reason = udErr.Reason
		s.logger.Error("Passback failed", "user_id", taker.UserID, "error", err)
		return result
	}

	result.Delivered = true
	s.logger.Info("Grade delivered", "user_id", taker.UserID, "grade", grade)
	return result
}

func (s *gradeService) publishSubmitted(ctx context.Context, assignmentID string, summary *PassbackSummary) {
	if s.publisher == nil {
		return
	}
	event := events.NewGradesSubmittedEvent(events.GradesSubmittedEvent{
		AssignmentExternalID: assignmentID,
		ExamID:               summary.ExamID,
		Attempted:            summary.Attempted,
		Delivered:            summary.Delivered,
		Failed:               summary.Failed,
	})
	if err := s.publisher.PublishGradeEvent(ctx, event); err != nil {
		// Event delivery is observability, not correctness.
		s.logger.Warn("Failed to publish grade event", "exam_id", summary.ExamID, "error", err)
	}
}

// FormatGrade turns raw points into the normalized decimal string the outcome
// service expects. The value is clamped to [0, 1]; an exam worth zero points
// always reports "0".
func FormatGrade(scoredPoints, totalPoints int) string {
	if totalPoints <= 0 {
		return "0"
	}
	ratio := float64(scoredPoints) / float64(totalPoints)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return strconv.FormatFloat(ratio, 'f', -1, 64)
}

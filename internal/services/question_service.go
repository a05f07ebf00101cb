package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/openexam/exam-service/internal/cache"
	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories"
	"github.com/openexam/exam-service/internal/utils"
)

const questionCacheTTL = 5 * time.Minute

// QuestionService owns the question bank of an exam. Learner-facing listings
// have the answer keys stripped and are cached; any authoring mutation
// invalidates the cache and refreshes the exam's total points.
type QuestionService interface {
	Create(ctx context.Context, req *CreateQuestionRequest) (*models.Question, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest) (*models.Question, error)
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)

	// ListByAssignment resolves the assignment to an exam and returns its live
	// questions. For learners the answer keys are removed from the payload.
	ListByAssignment(ctx context.Context, externalAssignmentID string, role models.UserRole) (*QuestionListResponse, error)
}

// ===== REQUEST/RESPONSE TYPES =====

type CreateQuestionRequest struct {
	ExamID         uint                `json:"exam_id" validate:"required"`
	Text           string              `json:"text" validate:"required"`
	Type           models.QuestionType `json:"type" validate:"required,question_type"`
	AnswerData     datatypes.JSON      `json:"answer_data"`
	PointsPossible int                 `json:"points_possible" validate:"min=0"`
}

type UpdateQuestionRequest struct {
	Text           *string              `json:"text"`
	Type           *models.QuestionType `json:"type" validate:"omitempty,question_type"`
	AnswerData     datatypes.JSON       `json:"answer_data"`
	PointsPossible *int                 `json:"points_possible" validate:"omitempty,min=0"`
}

type QuestionListResponse struct {
	ExamID             uint               `json:"exam_id"`
	TotalPoints        int                `json:"total_points"`
	ShowPointsPossible bool               `json:"show_points_possible"`
	Questions          []*models.Question `json:"questions"`
}

// ===== SERVICE IMPLEMENTATION =====

type questionService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    utils.Logger
	validator *utils.Validator
}

func NewQuestionService(repo repositories.Repository, cacheService cache.CacheService, logger utils.Logger, validator *utils.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: validator,
	}
}

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if errs := validateAnswerData(req.Type, req.AnswerData); len(errs) > 0 {
		return nil, errs
	}

	exam, err := s.repo.Exam().GetByID(ctx, req.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	question := &models.Question{
		ExamID:         exam.ID,
		Text:           req.Text,
		Type:           req.Type,
		AnswerData:     req.AnswerData,
		PointsPossible: req.PointsPossible,
	}
	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	if err := s.refreshTotalPoints(ctx, exam.ID); err != nil {
		return nil, err
	}
	s.invalidateCache(ctx, exam.ExternalAssignmentID)

	s.logger.Info("Question created", "question_id", question.ID, "exam_id", exam.ID, "type", question.Type)
	return question, nil
}

func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest) (*models.Question, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}

	if req.Text != nil {
		question.Text = *req.Text
	}
	if req.Type != nil {
		question.Type = *req.Type
	}
	if req.AnswerData != nil {
		question.AnswerData = req.AnswerData
	}
	if req.PointsPossible != nil {
		question.PointsPossible = *req.PointsPossible
	}

	if errs := validateAnswerData(question.Type, question.AnswerData); len(errs) > 0 {
		return nil, errs
	}

	if err := s.repo.Question().Update(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	if err := s.refreshTotalPoints(ctx, question.ExamID); err != nil {
		return nil, err
	}
	s.invalidateCacheForExam(ctx, question.ExamID)

	s.logger.Info("Question updated", "question_id", question.ID, "exam_id", question.ExamID)
	return question, nil
}

func (s *questionService) Delete(ctx context.Context, id uint) error {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to load question: %w", err)
	}

	if err := s.repo.Question().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}

	if err := s.refreshTotalPoints(ctx, question.ExamID); err != nil {
		return err
	}
	s.invalidateCacheForExam(ctx, question.ExamID)

	s.logger.Info("Question deleted", "question_id", id, "exam_id", question.ExamID)
	return nil
}

func (s *questionService) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	return question, nil
}

func (s *questionService) ListByAssignment(ctx context.Context, externalAssignmentID string, role models.UserRole) (*QuestionListResponse, error) {
	cacheKey := questionListCacheKey(externalAssignmentID, role)

	var cached QuestionListResponse
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	} else if err != cache.ErrCacheMiss {
		s.logger.Warn("Question cache read failed", "key", cacheKey, "error", err)
	}

	exam, err := s.repo.Exam().GetByExternalID(ctx, externalAssignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	questions, err := s.repo.Question().ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	if role != models.RoleInstructor {
		for _, q := range questions {
			public, err := models.PublicAnswerData(q.Type, q.AnswerData)
			if err != nil {
				return nil, fmt.Errorf("failed to strip answer data for question %d: %w", q.ID, err)
			}
			q.AnswerData = public
		}
	}

	result := &QuestionListResponse{
		ExamID:             exam.ID,
		TotalPoints:        exam.TotalPoints,
		ShowPointsPossible: exam.ShowPointsPossible,
		Questions:          questions,
	}

	if err := s.cache.Set(ctx, cacheKey, result, questionCacheTTL); err != nil {
		s.logger.Warn("Question cache write failed", "key", cacheKey, "error", err)
	}
	return result, nil
}

// ===== HELPERS =====

func (s *questionService) refreshTotalPoints(ctx context.Context, examID uint) error {
	total, err := s.repo.Question().SumPoints(ctx, examID)
	if err != nil {
		return fmt.Errorf("failed to sum question points: %w", err)
	}
	if err := s.repo.Exam().UpdateTotalPoints(ctx, examID, total); err != nil {
		return fmt.Errorf("failed to update exam total points: %w", err)
	}
	return nil
}

func (s *questionService) invalidateCache(ctx context.Context, externalAssignmentID string) {
	if err := s.cache.DeletePattern(ctx, "questions:"+externalAssignmentID+":*"); err != nil {
		s.logger.Warn("Question cache invalidation failed", "assignment_id", externalAssignmentID, "error", err)
	}
}

func (s *questionService) invalidateCacheForExam(ctx context.Context, examID uint) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
		s.logger.Warn("Cache invalidation skipped, exam lookup failed", "exam_id", examID, "error", err)
		return
	}
	s.invalidateCache(ctx, exam.ExternalAssignmentID)
}

func questionListCacheKey(externalAssignmentID string, role models.UserRole) string {
	audience := "learner"
	if role == models.RoleInstructor {
		audience = "instructor"
	}
	return fmt.Sprintf("questions:%s:%s", externalAssignmentID, audience)
}

// validateAnswerData checks the answer key against the question type and its
// internal consistency rules.
func validateAnswerData(qType models.QuestionType, raw datatypes.JSON) ValidationErrors {
	var errs ValidationErrors

	key, err := models.DecodeAnswerKey(qType, raw)
	if err != nil {
		errs = append(errs, *NewValidationError("answer_data", err.Error(), nil))
		return errs
	}

	switch k := key.(type) {
	case models.MultipleChoiceKey:
		if len(k.Answers) < 2 {
			errs = append(errs, *NewValidationError("answer_data.answers", "multiple choice questions need at least 2 options", len(k.Answers)))
		}
		if k.CorrectAnswer < 0 || k.CorrectAnswer >= len(k.Answers) {
			errs = append(errs, *NewValidationError("answer_data.correctAnswer", "correct answer index out of range", k.CorrectAnswer))
		}
	case models.ParsonsProblemKey:
		if len(k.Answers) < 2 {
			errs = append(errs, *NewValidationError("answer_data.answers", "parsons problems need at least 2 blocks", len(k.Answers)))
		}
		if len(k.CorrectAnswer) != len(k.Answers) {
			errs = append(errs, *NewValidationError("answer_data.correctAnswer", "correct order must cover every block exactly once", len(k.CorrectAnswer)))
			break
		}
		seen := make(map[int]bool, len(k.CorrectAnswer))
		for _, idx := range k.CorrectAnswer {
			if idx < 0 || idx >= len(k.Answers) || seen[idx] {
				errs = append(errs, *NewValidationError("answer_data.correctAnswer", "correct order must be a permutation of the block indexes", k.CorrectAnswer))
				break
			}
			seen[idx] = true
		}
	case models.TrueFalseKey, nil:
		// Nothing further to check.
	}
	return errs
}

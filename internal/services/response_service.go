package services

import (
	"context"
	"fmt"
	"time"

	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories"
	"github.com/openexam/exam-service/internal/utils"
)

// ResponseService manages student answers to exam questions. A student has at
// most one stored response per question; saving again overwrites the answer
// but never touches grading fields the instructor may have already filled in.
type ResponseService interface {
	RecordResponse(ctx context.Context, req *RecordResponseRequest, userID string) (*models.StudentResponse, error)
	RecordResponses(ctx context.Context, req *RecordResponsesRequest, userID string) ([]*models.StudentResponse, error)
	ListForUser(ctx context.Context, examID uint, userID string) ([]*models.StudentResponse, error)
	ListByQuestion(ctx context.Context, questionID uint) ([]*models.StudentResponse, error)
	GetFeedback(ctx context.Context, examID uint, userID string) ([]*FeedbackEntry, error)
	SetFeedback(ctx context.Context, req *SetFeedbackRequest) (*models.StudentResponse, error)
	SetConfidence(ctx context.Context, req *SetConfidenceRequest, userID string) error
	GetConfidence(ctx context.Context, examID uint, userID string) (map[uint]int, error)
}

// ===== REQUEST/RESPONSE TYPES =====

type RecordResponseRequest struct {
	QuestionID     uint   `json:"question_id" validate:"required"`
	IsTextResponse bool   `json:"is_text_response"`
	TextResponse   string `json:"text_response"`
	AnswerResponse string `json:"answer_response"`
}

type RecordResponsesRequest struct {
	ExamID     uint                     `json:"exam_id" validate:"required"`
	Responses  []*RecordResponseRequest `json:"responses" validate:"required,min=1,dive"`
	FinishExam bool                     `json:"finish_exam"`
}

type SetFeedbackRequest struct {
	QuestionID uint   `json:"question_id" validate:"required"`
	UserID     string `json:"user_id" validate:"required"`
	Feedback   string `json:"feedback"`
}

type SetConfidenceRequest struct {
	QuestionID uint `json:"question_id" validate:"required"`
	Confidence int  `json:"confidence" validate:"min=0,max=100"`
}

// FeedbackEntry is the learner-facing view of grading state for one question.
type FeedbackEntry struct {
	QuestionID   uint   `json:"question_id"`
	Feedback     string `json:"feedback"`
	ScoredPoints *int   `json:"scored_points"`
}

// ===== SERVICE IMPLEMENTATION =====

type responseService struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *utils.Validator
}

func NewResponseService(repo repositories.Repository, logger utils.Logger, validator *utils.Validator) ResponseService {
	return &responseService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *responseService) RecordResponse(ctx context.Context, req *RecordResponseRequest, userID string) (*models.StudentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if errs := validateResponsePayload(req); len(errs) > 0 {
		return nil, errs
	}

	if _, err := s.repo.Question().GetByID(ctx, req.QuestionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}

	response := &models.StudentResponse{
		QuestionID:     req.QuestionID,
		UserID:         userID,
		IsTextResponse: req.IsTextResponse,
		TextResponse:   req.TextResponse,
		AnswerResponse: req.AnswerResponse,
	}
	if err := s.repo.Response().Upsert(ctx, response); err != nil {
		return nil, fmt.Errorf("failed to save response: %w", err)
	}

	s.logger.Debug("Response recorded", "question_id", req.QuestionID, "user_id", userID)
	return response, nil
}

func (s *responseService) RecordResponses(ctx context.Context, req *RecordResponsesRequest, userID string) ([]*models.StudentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, req.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	saved := make([]*models.StudentResponse, 0, len(req.Responses))
	for _, item := range req.Responses {
		resp, err := s.RecordResponse(ctx, item, userID)
		if err != nil {
			return nil, err
		}
		saved = append(saved, resp)
	}

	if req.FinishExam {
		if err := s.repo.ExamUser().MarkTaken(ctx, exam.ID, userID, time.Now()); err != nil {
			return nil, fmt.Errorf("failed to mark exam as taken: %w", err)
		}
		s.logger.Info("Exam submitted", "exam_id", exam.ID, "user_id", userID, "responses", len(saved))
	}

	return saved, nil
}

func (s *responseService) ListForUser(ctx context.Context, examID uint, userID string) ([]*models.StudentResponse, error) {
	responses, err := s.repo.Response().ListByExamAndUser(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return responses, nil
}

func (s *responseService) ListByQuestion(ctx context.Context, questionID uint) ([]*models.StudentResponse, error) {
	if _, err := s.repo.Question().GetByID(ctx, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to load question: %w", err)
	}
	responses, err := s.repo.Response().ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return responses, nil
}

func (s *responseService) GetFeedback(ctx context.Context, examID uint, userID string) ([]*FeedbackEntry, error) {
	responses, err := s.repo.Response().ListByExamAndUser(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}

	entries := make([]*FeedbackEntry, 0, len(responses))
	for _, r := range responses {
		entries = append(entries, &FeedbackEntry{
			QuestionID:   r.QuestionID,
			Feedback:     r.InstructorFeedback,
			ScoredPoints: r.ScoredPoints,
		})
	}
	return entries, nil
}

func (s *responseService) SetFeedback(ctx context.Context, req *SetFeedbackRequest) (*models.StudentResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	response, err := s.repo.Response().Get(ctx, req.QuestionID, req.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("failed to load response: %w", err)
	}

	response.InstructorFeedback = req.Feedback
	if err := s.repo.Response().SetGrade(ctx, req.QuestionID, req.UserID, nil, &req.Feedback); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	s.logger.Info("Feedback saved", "question_id", req.QuestionID, "user_id", req.UserID)
	return response, nil
}

func (s *responseService) SetConfidence(ctx context.Context, req *SetConfidenceRequest, userID string) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	err := s.repo.Response().SetConfidence(ctx, req.QuestionID, userID, req.Confidence)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// No stored answer yet. Create a bare row so the rating survives.
			response := &models.StudentResponse{
				QuestionID: req.QuestionID,
				UserID:     userID,
			}
			if err := s.repo.Response().Upsert(ctx, response); err != nil {
				return fmt.Errorf("failed to create response for confidence rating: %w", err)
			}
			return s.repo.Response().SetConfidence(ctx, req.QuestionID, userID, req.Confidence)
		}
		return fmt.Errorf("failed to save confidence rating: %w", err)
	}
	return nil
}

func (s *responseService) GetConfidence(ctx context.Context, examID uint, userID string) (map[uint]int, error) {
	responses, err := s.repo.Response().ListByExamAndUser(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load confidence ratings: %w", err)
	}

	ratings := make(map[uint]int)
	for _, r := range responses {
		if r.ConfidenceRating != nil {
			ratings[r.QuestionID] = *r.ConfidenceRating
		}
	}
	return ratings, nil
}

// validateResponsePayload enforces that exactly one of the two answer forms is
// populated, matching the is_text_response flag.
func validateResponsePayload(req *RecordResponseRequest) ValidationErrors {
	var errs ValidationErrors
	if req.IsTextResponse {
		if req.TextResponse == "" {
			errs = append(errs, *NewValidationError("text_response", "text_response is required when is_text_response is true", nil))
		}
		if req.AnswerResponse != "" {
			errs = append(errs, *NewValidationError("answer_response", "answer_response must be empty when is_text_response is true", req.AnswerResponse))
		}
	} else {
		if req.AnswerResponse == "" {
			errs = append(errs, *NewValidationError("answer_response", "answer_response is required when is_text_response is false", nil))
		}
		if req.TextResponse != "" {
			errs = append(errs, *NewValidationError("text_response", "text_response must be empty when is_text_response is false", req.TextResponse))
		}
	}
	return errs
}

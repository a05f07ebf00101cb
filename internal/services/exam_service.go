package services

import (
	"context"
	"fmt"
	"time"

	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories"
	"github.com/openexam/exam-service/internal/utils"
)

// ExamService handles exam provisioning and launch bookkeeping. Exams are
// keyed by the LMS assignment id, users by the LMS user id; both are upserts
// so repeat launches are harmless.
type ExamService interface {
	UpsertExam(ctx context.Context, req *UpsertExamRequest) (*models.Exam, error)
	GetByExternalID(ctx context.Context, externalAssignmentID string) (*models.Exam, error)
	RecordLaunch(ctx context.Context, req *RecordLaunchRequest) (*models.ExamUser, error)
	Roster(ctx context.Context, examID uint) ([]*RosterEntry, error)
}

// ===== REQUEST/RESPONSE TYPES =====

type UpsertExamRequest struct {
	ExternalAssignmentID string `json:"external_assignment_id" validate:"required,max=255"`
	Title                string `json:"title" validate:"omitempty,max=200"`
	ShowPointsPossible   bool   `json:"show_points_possible"`
}

// RecordLaunchRequest carries the launch identity plus the passback
// coordinates the LMS hands over. The outcome fields are optional; some
// launches (instructors, preview sessions) do not carry them.
type RecordLaunchRequest struct {
	ExternalAssignmentID string          `json:"external_assignment_id" validate:"required,max=255"`
	UserID               string          `json:"user_id" validate:"required,max=255"`
	FullName             string          `json:"full_name" validate:"omitempty,max=100"`
	Email                string          `json:"email" validate:"omitempty,email,max=255"`
	Role                 models.UserRole `json:"role" validate:"required,user_role"`
	OutcomeServiceURL    *string         `json:"outcome_service_url" validate:"omitempty,url,max=500"`
	ResultSourcedID      *string         `json:"result_sourcedid" validate:"omitempty,max=255"`
}

type RosterEntry struct {
	UserID       string     `json:"user_id"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	HasTaken     bool       `json:"has_taken"`
	ScoredPoints int        `json:"scored_points"`
	StartedAt    *time.Time `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

// ===== SERVICE IMPLEMENTATION =====

type examService struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *utils.Validator
}

func NewExamService(repo repositories.Repository, logger utils.Logger, validator *utils.Validator) ExamService {
	return &examService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *examService) UpsertExam(ctx context.Context, req *UpsertExamRequest) (*models.Exam, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		ExternalAssignmentID: req.ExternalAssignmentID,
		Title:                req.Title,
		ShowPointsPossible:   req.ShowPointsPossible,
	}
	if err := s.repo.Exam().Upsert(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to upsert exam: %w", err)
	}

	s.logger.Info("Exam upserted", "exam_id", exam.ID, "assignment_id", exam.ExternalAssignmentID)
	return exam, nil
}

func (s *examService) GetByExternalID(ctx context.Context, externalAssignmentID string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByExternalID(ctx, externalAssignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}
	return exam, nil
}

func (s *examService) RecordLaunch(ctx context.Context, req *RecordLaunchRequest) (*models.ExamUser, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByExternalID(ctx, req.ExternalAssignmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// First contact with this assignment; provision the exam shell.
			exam = &models.Exam{ExternalAssignmentID: req.ExternalAssignmentID}
			if err := s.repo.Exam().Upsert(ctx, exam); err != nil {
				return nil, fmt.Errorf("failed to provision exam: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to load exam: %w", err)
		}
	}

	user := &models.User{
		ID:       req.UserID,
		FullName: req.FullName,
		Email:    req.Email,
	}
	if err := s.repo.User().FirstOrCreate(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to record user: %w", err)
	}

	now := time.Now()
	examUser := &models.ExamUser{
		ExamID:            exam.ID,
		UserID:            req.UserID,
		StartedAt:         &now,
		OutcomeServiceURL: req.OutcomeServiceURL,
		ResultSourcedID:   req.ResultSourcedID,
	}
	if err := s.repo.ExamUser().Upsert(ctx, examUser); err != nil {
		return nil, fmt.Errorf("failed to record launch: %w", err)
	}

	s.logger.Info("Launch recorded",
		"exam_id", exam.ID,
		"user_id", req.UserID,
		"role", req.Role,
		"has_outcome_url", req.OutcomeServiceURL != nil)
	return examUser, nil
}

func (s *examService) Roster(ctx context.Context, examID uint) ([]*RosterEntry, error) {
	if _, err := s.repo.Exam().GetByID(ctx, examID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to load exam: %w", err)
	}

	examUsers, err := s.repo.ExamUser().ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}

	ids := make([]string, 0, len(examUsers))
	for _, eu := range examUsers {
		ids = append(ids, eu.UserID)
	}
	users, err := s.repo.User().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	roster := make([]*RosterEntry, 0, len(examUsers))
	for _, eu := range examUsers {
		entry := &RosterEntry{
			UserID:       eu.UserID,
			HasTaken:     eu.HasTaken,
			ScoredPoints: eu.ScoredPoints,
			StartedAt:    eu.StartedAt,
			FinishedAt:   eu.FinishedAt,
		}
		if u, ok := byID[eu.UserID]; ok {
			entry.FullName = u.FullName
			entry.Email = u.Email
		}
		roster = append(roster, entry)
	}
	return roster, nil
}

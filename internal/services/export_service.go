package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/openexam/exam-service/internal/repositories"
	"github.com/openexam/exam-service/internal/utils"
)

// ExportService produces instructor-facing downloads of exam results.
type ExportService interface {
	// GradeReport renders the exam roster with points and normalized grades as
	// an xlsx workbook.
	GradeReport(ctx context.Context, examID uint) ([]byte, error)
}

type exportService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewExportService(repo repositories.Repository, logger utils.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *exportService) GradeReport(ctx context.Context, examID uint) ([]byte, error) {
	exam, err := s.repo.Exam().GetByID(ctx, examID)
	if err != nil {
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
	names := make(map[string]string, len(users))
	emails := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
		emails[u.ID] = u.Email
	}

	f := excelize.NewFile()
	sheetName := "Grades"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Student ID", "Student Name", "Email", "Has Taken",
		"Started At", "Finished At", "Scored Points", "Total Points", "Grade",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, eu := range examUsers {
		row := []interface{}{
			eu.UserID,
			names[eu.UserID],
			emails[eu.UserID],
		}

		if eu.HasTaken {
			row = append(row, "Yes")
		} else {
			row = append(row, "No")
		}

		if eu.StartedAt != nil {
			row = append(row, eu.StartedAt.Format("2006-01-02 15:04:05"))
		} else {
			row = append(row, "")
		}
		if eu.FinishedAt != nil {
			row = append(row, eu.FinishedAt.Format("2006-01-02 15:04:05"))
		} else {
			row = append(row, "")
		}

		row = append(row, eu.ScoredPoints, exam.TotalPoints, FormatGrade(eu.ScoredPoints, exam.TotalPoints))

		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Grade report exported", "exam_id", examID, "students", len(examUsers))
	return buf.Bytes(), nil
}

package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

func (e ExamPostgreSQL) Upsert(ctx context.Context, exam *models.Exam) error {
	// total_points stays aggregator-owned; the upsert never touches it.
	if err := e.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_assignment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "show_points_possible", "updated_at"}),
	}).Create(exam).Error; err != nil {
		return err
	}

	// Load the stored row back so callers see the surviving id/total.
	return e.db.WithContext(ctx).
		First(exam, "external_assignment_id = ?", exam.ExternalAssignmentID).Error
}

func (e ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e ExamPostgreSQL) GetByExternalID(ctx context.Context, externalID string) (*models.Exam, error) {
	var exam models.Exam
	if err := e.db.WithContext(ctx).
		First(&exam, "external_assignment_id = ?", externalID).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e ExamPostgreSQL) UpdateTotalPoints(ctx context.Context, examID uint, totalPoints int) error {
	return e.db.WithContext(ctx).Model(&models.Exam{}).
		Where("id = ?", examID).
		Update("total_points", totalPoints).Error
}

package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/openexam/exam-service/internal/models"
)

func TestGradeReport(t *testing.T) {
	ctx := context.Background()

	t.Run("renders roster with scores and grades", func(t *testing.T) {
		repo := newFakeRepository()
		exam := seedExam(t, repo, "alice", "bob")
		require.NoError(t, repo.User().FirstOrCreate(ctx, &models.User{ID: "alice", FullName: "Alice Zhang", Email: "alice@example.edu"}))
		require.NoError(t, repo.User().FirstOrCreate(ctx, &models.User{ID: "bob", FullName: "Bob Okafor", Email: "bob@example.edu"}))
		scoreResponse(t, repo, 1, "alice", 4)
		scoreResponse(t, repo, 2, "alice", 4)
		scoreResponse(t, repo, 1, "bob", 2)

		grades := newTestGradeService(repo, newFakeOutcomeClient(), nil)
		require.NoError(t, grades.RecomputeGrades(ctx, exam.ID))

		service := NewExportService(repo, testLogger())
		data, err := service.GradeReport(ctx, exam.ID)
		require.NoError(t, err)
		require.NotEmpty(t, data)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Grades")
		require.NoError(t, err)
		require.Len(t, rows, 3)

		assert.Equal(t, []string{
			"Student ID", "Student Name", "Email", "Has Taken",
			"Started At", "Finished At", "Scored Points", "Total Points", "Grade",
		}, rows[0])

		byID := make(map[string][]string, 2)
		for _, row := range rows[1:] {
			byID[row[0]] = row
		}

		alice := byID["alice"]
		require.NotNil(t, alice)
		assert.Equal(t, "Alice Zhang", alice[1])
		assert.Equal(t, "alice@example.edu", alice[2])
		assert.Equal(t, "Yes", alice[3])
		assert.Equal(t, "8", alice[6])
		assert.Equal(t, "10", alice[7])
		assert.Equal(t, "0.8", alice[8])

		bob := byID["bob"]
		require.NotNil(t, bob)
		assert.Equal(t, "2", bob[6])
		assert.Equal(t, "0.2", bob[8])
	})

	t.Run("unknown exam", func(t *testing.T) {
		repo := newFakeRepository()
		service := NewExportService(repo, testLogger())
		_, err := service.GradeReport(ctx, 999)
		assert.ErrorIs(t, err, ErrExamNotFound)
	})
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openexam/exam-service/internal/services"
	"github.com/openexam/exam-service/internal/utils"
)

// InstructorHandler covers exam authoring, grading and passback. Every route
// behind it sits behind the InstructorOnly middleware.
type InstructorHandler struct {
	BaseHandler
	examService     services.ExamService
	questionService services.QuestionService
	responseService services.ResponseService
	gradeService    services.GradeService
	exportService   services.ExportService
}

func NewInstructorHandler(
	examService services.ExamService,
	questionService services.QuestionService,
	responseService services.ResponseService,
	gradeService services.GradeService,
	exportService services.ExportService,
	logger utils.Logger,
) *InstructorHandler {
	return &InstructorHandler{
		BaseHandler:     NewBaseHandler(logger),
		examService:     examService,
		questionService: questionService,
		responseService: responseService,
		gradeService:    gradeService,
		exportService:   exportService,
	}
}

func (h *InstructorHandler) sessionExamID(c *gin.Context) (uint, bool) {
	exam, err := h.examService.GetByExternalID(c.Request.Context(), SessionAssignmentID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return 0, false
	}
	return exam.ID, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + name,
			Details: err.Error(),
		})
		return 0, false
	}
	return uint(id), true
}

// UpsertExam creates or updates the session assignment's exam.
func (h *InstructorHandler) UpsertExam(c *gin.Context) {
	var req struct {
		Title              string `json:"title"`
		ShowPointsPossible bool   `json:"show_points_possible"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	exam, err := h.examService.UpsertExam(c.Request.Context(), &services.UpsertExamRequest{
		ExternalAssignmentID: SessionAssignmentID(c),
		Title:                req.Title,
		ShowPointsPossible:   req.ShowPointsPossible,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Exam saved successfully",
		Data:    exam,
	})
}

// CreateQuestion adds a question to the session assignment's exam.
func (h *InstructorHandler) CreateQuestion(c *gin.Context) {
	examID, ok := h.sessionExamID(c)
	if !ok {
		return
	}

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.ExamID = examID

	question, err := h.questionService.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Question created successfully",
		Data:    question,
	})
}

// UpdateQuestion applies a partial update to a question.
func (h *InstructorHandler) UpdateQuestion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Question updated successfully",
		Data:    question,
	})
}

// DeleteQuestion soft-deletes a question; stored responses stay intact.
func (h *InstructorHandler) DeleteQuestion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Question deleted successfully",
	})
}

// GetTakers returns the roster with scores for the session assignment.
func (h *InstructorHandler) GetTakers(c *gin.Context) {
	examID, ok := h.sessionExamID(c)
	if !ok {
		return
	}

	roster, err := h.examService.Roster(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Takers retrieved successfully",
		Data:    roster,
	})
}

// GetSubmissions lists every student's response to one question.
func (h *InstructorHandler) GetSubmissions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	responses, err := h.responseService.ListByQuestion(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Submissions retrieved successfully",
		Data:    responses,
	})
}

// SetFeedback writes instructor feedback on one student's response.
func (h *InstructorHandler) SetFeedback(c *gin.Context) {
	var req services.SetFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	response, err := h.responseService.SetFeedback(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Feedback saved successfully",
		Data:    response,
	})
}

// SetGrade records a manual score for one response and recomputes aggregates.
func (h *InstructorHandler) SetGrade(c *gin.Context) {
	var req services.SetQuestionScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.gradeService.SetQuestionScore(c.Request.Context(), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Grade saved successfully",
	})
}

// SubmitGrades pushes every taker's grade back to the LMS and reports each
// outcome.
func (h *InstructorHandler) SubmitGrades(c *gin.Context) {
	examID, ok := h.sessionExamID(c)
	if !ok {
		return
	}

	summary, err := h.gradeService.SubmitGrades(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Grade submission finished",
		Data:    summary,
	})
}

// ExportGrades streams the roster workbook as an xlsx download.
func (h *InstructorHandler) ExportGrades(c *gin.Context) {
	examID, ok := h.sessionExamID(c)
	if !ok {
		return
	}

	data, err := h.exportService.GradeReport(c.Request.Context(), examID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("grades-%s-%s.xlsx", SessionAssignmentID(c), time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

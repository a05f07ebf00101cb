package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openexam/exam-service/internal/models"
	"github.com/openexam/exam-service/internal/services"
	"github.com/openexam/exam-service/internal/utils"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

func NewQuestionHandler(questionService services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
	}
}

// ListQuestions returns the session assignment's questions. Learners get the
// answer keys stripped; point values are hidden unless the exam opts in.
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	role := SessionRole(c)
	assignmentID := SessionAssignmentID(c)

	result, err := h.questionService.ListByAssignment(c.Request.Context(), assignmentID, role)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if role != models.RoleInstructor && !result.ShowPointsPossible {
		result.TotalPoints = 0
		for _, q := range result.Questions {
			q.PointsPossible = 0
		}
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Questions retrieved successfully",
		Data:    result,
	})
}

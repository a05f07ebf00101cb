package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openexam/exam-service/internal/services"
	"github.com/openexam/exam-service/internal/utils"
)

// ResponseHandler serves the learner-facing answer, feedback and confidence
// endpoints. All of them act on the session's user and assignment.
type ResponseHandler struct {
	BaseHandler
	responseService services.ResponseService
	examService     services.ExamService
}

func NewResponseHandler(responseService services.ResponseService, examService services.ExamService, logger utils.Logger) *ResponseHandler {
	return &ResponseHandler{
		BaseHandler:     NewBaseHandler(logger),
		responseService: responseService,
		examService:     examService,
	}
}

func (h *ResponseHandler) sessionExamID(c *gin.Context) (uint, bool) {
	exam, err := h.examService.GetByExternalID(c.Request.Context(), SessionAssignmentID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return 0, false
	}
	return exam.ID, true
}

// Launch records a verified launch session: the user, the exam shell and the
// passback coordinates the LMS handed over.
func (h *ResponseHandler) Launch(c *gin.Context) {
	var req struct {
		FullName          string  `json:"full_name"`
		Email             string  `json:"email"`
		OutcomeServiceURL *string `json:"outcome_service_url"`
		ResultSourcedID   *string `json:"result_sourcedid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	examUser, err := h.examService.RecordLaunch(c.Request.Context(), &services.RecordLaunchRequest{
		ExternalAssignmentID: SessionAssignmentID(c),
		UserID:               SessionUserID(c),
		FullName:             req.FullName,
		Email:                req.Email,
		Role:                 SessionRole(c),
		OutcomeServiceURL:    req.OutcomeServiceURL,
		ResultSourcedID:      req.ResultSourcedID,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Launch recorded successfully",
		Data:    examUser,
	})
}

// ListResponses returns the session user's stored responses for the exam.
func (h *ResponseHandler) ListResponses(c *gin.Context) {
	examID, ok := h.sessionExamID(c)
	if !ok {
		return
	}

	responses, err := h.responseService.ListForUser(c.Request.Context(), examID, SessionUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Responses retrieved successfully",
		Data:    responses,
	})
}

// SubmitResponses saves a batch of answers and, when requested, closes the
// attempt.
func (h *ResponseHandler) SubmitResponses(c *gin.Context) {
	examID, ok := h.sessionExamID(c)
	if !ok {
		return
	}

	var req struct {
		Responses  []*services.RecordResponseRequest `json:"responses"`
		FinishExam bool                              `json:"finish_exam"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	saved, err := h.responseService.RecordResponses(c.Request.Context(), &services.RecordResponsesRequest{
		ExamID:     examID,
		Responses:  req.Responses,
		FinishExam: req.FinishExam,
	}, SessionUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Responses saved successfully",
		Data:    saved,
	})
}

// GetFeedback returns the instructor feedback and scores visible to the
// session user.
func (h *ResponseHandler) GetFeedback(c *gin.Context) {
	examID, ok := h.sessionExamID(c)
	if !ok {
		return
	}

	entries, err := h.responseService.GetFeedback(c.Request.Context(), examID, SessionUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Feedback retrieved successfully",
		Data:    entries,
	})
}

// GetConfidence returns the session user's confidence ratings by question.
func (h *ResponseHandler) GetConfidence(c *gin.Context) {
	examID, ok := h.sessionExamID(c)
	if !ok {
		return
	}

	ratings, err := h.responseService.GetConfidence(c.Request.Context(), examID, SessionUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Confidence ratings retrieved successfully",
		Data:    ratings,
	})
}

// SetConfidence upserts a confidence rating onto the session user's response.
func (h *ResponseHandler) SetConfidence(c *gin.Context) {
	var req services.SetConfidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.responseService.SetConfidence(c.Request.Context(), &req, SessionUserID(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Confidence rating saved successfully",
	})
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/openexam/exam-service/internal/services"
	"github.com/openexam/exam-service/internal/utils"
)

type HandlerManager struct {
	questionHandler   *QuestionHandler
	responseHandler   *ResponseHandler
	instructorHandler *InstructorHandler

	sessionSecret []byte
	logger        utils.Logger
}

func NewHandlerManager(
	examService services.ExamService,
	questionService services.QuestionService,
	responseService services.ResponseService,
	gradeService services.GradeService,
	exportService services.ExportService,
	sessionSecret []byte,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		questionHandler:   NewQuestionHandler(questionService, logger),
		responseHandler:   NewResponseHandler(responseService, examService, logger),
		instructorHandler: NewInstructorHandler(examService, questionService, responseService, gradeService, exportService, logger),
		sessionSecret:     sessionSecret,
		logger:            logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)

	api := router.Group("/api")
	api.Use(AuthGate(hm.sessionSecret, hm.logger))
	{
		// Session / launch bookkeeping
		api.POST("/launch", hm.responseHandler.Launch)

		// Learner-facing routes (instructors can use them too)
		api.GET("/questions", hm.questionHandler.ListQuestions)
		api.GET("/responses", hm.responseHandler.ListResponses)
		api.POST("/responses", hm.responseHandler.SubmitResponses)
		api.GET("/feedback", hm.responseHandler.GetFeedback)
		api.GET("/confidence", hm.responseHandler.GetConfidence)
		api.POST("/confidence", hm.responseHandler.SetConfidence)

		// Instructor-only routes
		instructor := api.Group("")
		instructor.Use(InstructorOnly())
		{
			instructor.POST("/exams", hm.instructorHandler.UpsertExam)
			instructor.GET("/exams/takers", hm.instructorHandler.GetTakers)

			instructor.POST("/questions", hm.instructorHandler.CreateQuestion)
			instructor.PUT("/questions/:id", hm.instructorHandler.UpdateQuestion)
			instructor.DELETE("/questions/:id", hm.instructorHandler.DeleteQuestion)
			instructor.GET("/questions/:id/submissions", hm.instructorHandler.GetSubmissions)

			instructor.POST("/feedback", hm.instructorHandler.SetFeedback)
			instructor.POST("/grade", hm.instructorHandler.SetGrade)
			instructor.POST("/grades/submit", hm.instructorHandler.SubmitGrades)
			instructor.GET("/grades/export", hm.instructorHandler.ExportGrades)
		}
	}
}

package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/classware/cbt-backend/internal/config"
	"github.com/classware/cbt-backend/internal/handler"
	"github.com/classware/cbt-backend/internal/middleware"
	"github.com/classware/cbt-backend/internal/response"
	"github.com/classware/cbt-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	StudentMgmt   *handler.StudentManagementHandler
	Exam          *handler.ExamHandler
	Question      *handler.QuestionHandler
	Review        *handler.ReviewHandler
	Monitor       *handler.MonitorHandler
	Setting       *handler.SettingHandler
	WS            *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict CORS to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes (no auth).
	publicAPI := router.Group("/api/v1/public")
	{
		publicAPI.GET("/settings", middleware.CacheControl(60), handlers.Setting.GetPublicSettings)
	}

	// Rate limiter for login routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Auth routes (public, rate limited).
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/student/login", authLimiter.Middleware(), handlers.Auth.StudentLogin)
		auth.POST("/admin/login", authLimiter.Middleware(), handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// Student routes (JWT + single device session).
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.NoStore(),
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/lobby", handlers.StudentPortal.GetLobby)
		studentAPI.POST("/exams/:exam_id/join", handlers.StudentPortal.JoinExam)
		studentAPI.GET("/exams/:exam_id/paper", handlers.StudentPortal.GetExamPaper)
		studentAPI.GET("/exams/:exam_id/state", handlers.StudentPortal.GetExamState)
	}

	// WebSocket routes (student token via query param).
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.ExamWebSocketStream)
	}

	// Admin routes (JWT).
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Exam management
		adminAPI.GET("/exams", handlers.Exam.ListExams)
		adminAPI.POST("/exams", handlers.Exam.CreateExam)
		adminAPI.GET("/exams/:exam_id", handlers.Exam.GetExam)
		adminAPI.PUT("/exams/:exam_id", handlers.Exam.UpdateExam)
		adminAPI.DELETE("/exams/:exam_id", handlers.Exam.DeleteExam)
		adminAPI.POST("/exams/:exam_id/publish", handlers.Exam.PublishExam)
		adminAPI.POST("/exams/:exam_id/complete", handlers.Exam.CompleteExam)
		adminAPI.POST("/exams/:exam_id/refresh-cache", handlers.Exam.RefreshExamCache)

		// Results & essay review
		adminAPI.GET("/exams/:exam_id/results", handlers.Exam.GetExamResults)
		adminAPI.GET("/exams/:exam_id/results/export", handlers.Exam.ExportExamResults)
		adminAPI.PUT("/exams/:exam_id/results/:student_id/score", handlers.Review.OverrideScore)
		adminAPI.GET("/exams/:exam_id/reviews", handlers.Review.ListReviews)
		adminAPI.POST("/reviews/:review_id/approve", handlers.Review.MarkReviewed)

		// Live monitoring
		adminAPI.GET("/exams/:exam_id/monitor", handlers.Monitor.GetMonitorSnapshot)
		adminAPI.GET("/exams/:exam_id/monitor/stream", handlers.Monitor.MonitorExamSSE)

		// Question bank management
		adminAPI.GET("/qbanks", handlers.Question.ListBanks)
		adminAPI.POST("/qbanks", handlers.Question.CreateBank)
		adminAPI.DELETE("/qbanks/:qbank_id", handlers.Question.DeleteBank)
		adminAPI.GET("/qbanks/:qbank_id/questions", handlers.Question.ListQuestions)
		adminAPI.POST("/qbanks/:qbank_id/questions", handlers.Question.AddQuestion)
		adminAPI.PUT("/qbanks/:qbank_id/questions", handlers.Question.ReplaceQuestions)
		adminAPI.DELETE("/qbanks/:qbank_id/questions/:question_id", handlers.Question.DeleteQuestion)

		// Student management
		adminAPI.GET("/students", handlers.StudentMgmt.ListStudents)
		adminAPI.POST("/students", handlers.StudentMgmt.CreateStudent)
		adminAPI.PUT("/students/:id", handlers.StudentMgmt.UpdateStudent)
		adminAPI.DELETE("/students/:id", handlers.StudentMgmt.DeleteStudent)
		adminAPI.POST("/students/:id/reset-session", handlers.StudentMgmt.ResetStudentSession)

		// App settings
		settingsGroup := adminAPI.Group("/settings")
		{
			settingsGroup.GET("", handlers.Setting.GetAllSettings)
			settingsGroup.PUT("", handlers.Setting.UpdateSettings)
		}
	}

	return router
}

package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
	"github.com/noah-isme/lms-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-api/pkg/middleware/requestid"
)

// RouterConfig shapes the HTTP surface.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
}

// Dependencies carries the middleware collaborators and every handler.
type Dependencies struct {
	Tokens     middleware.TokenValidator
	Principals middleware.PrincipalResolver
	Gate       middleware.CourseGatekeeper
	Settings   middleware.SettingsSource
	Metrics    *service.MetricsService

	Auth         *AuthHandler
	Users        *UserHandler
	SettingsAPI  *SettingsHandler
	Courses      *CourseHandler
	Lessons      *LessonHandler
	Enrollments  *EnrollmentHandler
	Gradebook    *GradebookHandler
	Submissions  *SubmissionHandler
	Community    *CommunityHandler
	Certificates *CertificateHandler
	Dashboard    *DashboardHandler
	Probes       *MetricsHandler
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(cfg RouterConfig, deps Dependencies) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.RequestMeta())
	r.Use(middleware.Settings(deps.Settings))
	r.Use(middleware.OptionalJWT(deps.Tokens, deps.Principals))
	r.Use(middleware.Maintenance(
		"/health", "/ready", "/metrics", "/docs",
		cfg.APIPrefix+"/auth",
		cfg.APIPrefix+"/settings",
	))

	r.GET("/health", deps.Probes.Health)
	r.GET("/ready", deps.Probes.Ready)
	r.GET("/metrics", deps.Probes.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authRequired := middleware.JWT(deps.Tokens, deps.Principals)
	courseGate := middleware.CourseGate(deps.Gate, "id")
	lessonGate := middleware.LessonGate(deps.Gate, "id")

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", deps.Auth.Register)
	auth.POST("/login", deps.Auth.Login)
	auth.GET("/me", authRequired, deps.Auth.Me)

	api.GET("/settings", deps.SettingsAPI.Get)
	api.PUT("/settings", authRequired, middleware.AdminOnly(), deps.SettingsAPI.Update)

	api.GET("/courses", deps.Courses.List)
	api.GET("/verify-certificate/:code", deps.Certificates.Verify)
	api.GET("/files/:token", deps.Submissions.ServeFile)

	secured := api.Group("")
	secured.Use(authRequired)

	secured.POST("/courses", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), deps.Courses.Create)
	courses := secured.Group("/courses/:id")
	{
		courses.GET("", courseGate, deps.Courses.Get)
		courses.PUT("", deps.Courses.Update)
		courses.DELETE("", deps.Courses.Delete)
		courses.POST("/enroll", deps.Enrollments.Enroll)
		courses.GET("/progress", courseGate, deps.Courses.Progress)
		courses.GET("/enrollments", deps.Enrollments.ListByCourse)
		courses.GET("/gradebook", deps.Gradebook.Get)
		courses.GET("/gradebook/export", deps.Gradebook.Export)
		courses.GET("/lessons", courseGate, deps.Lessons.ListForCourse)
		courses.POST("/lessons", deps.Lessons.Create)
		courses.GET("/discussions", courseGate, deps.Community.ListDiscussions)
		courses.POST("/discussions", courseGate, deps.Community.PostDiscussion)
		courses.POST("/feedback", courseGate, deps.Community.SubmitFeedback)
		courses.POST("/certificate", courseGate, deps.Certificates.Issue)
	}

	lessons := secured.Group("/lessons/:id")
	{
		lessons.GET("", lessonGate, deps.Lessons.Get)
		lessons.PUT("", deps.Lessons.Update)
		lessons.DELETE("", deps.Lessons.Delete)
		lessons.POST("/questions", deps.Lessons.AddQuestion)
		lessons.POST("/quiz/submit", deps.Submissions.SubmitQuiz)
		lessons.POST("/assignment", deps.Submissions.SubmitAssignment)
	}

	secured.PUT("/assignment-submissions/:id/grade", deps.Submissions.Grade)
	secured.GET("/assignment-submissions/:id/download", deps.Submissions.Download)

	staff := middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin)
	secured.PUT("/enrollments/:id/toggle", staff, deps.Enrollments.Toggle)
	secured.PUT("/enrollments/:id/notes", staff, deps.Enrollments.UpdateNotes)
	secured.DELETE("/enrollments/:id", middleware.AdminOnly(), deps.Enrollments.Delete)

	admin := secured.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.PUT("/enrollments/:id/extend", deps.Enrollments.Extend)
	admin.GET("/users", deps.Users.List)
	admin.GET("/users/:id", deps.Users.Get)
	admin.PUT("/users/:id/toggle-status", deps.Users.ToggleStatus)
	admin.GET("/metrics", deps.Probes.Summary)

	secured.GET("/student/dashboard", deps.Dashboard.Student)
	secured.GET("/certificates/:id/download", deps.Certificates.Download)

	return r
}

package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/learnpath-api/internal/middleware"
	"github.com/noah-isme/learnpath-api/internal/models"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *AuthHandler
	Admin         *AdminHandler
	Student       *StudentHandler
	Class         *ClassHandler
	LearningPath  *LearningPathHandler
	Dashboard     *DashboardHandler
	Observability *MetricsHandler
}

// RouteDeps are the collaborators shared by route groups.
type RouteDeps struct {
	Tokens      middleware.TokenValidator
	AuthLimiter *middleware.RateLimiter
	Audit       middleware.AuditWriter
	Logger      *zap.Logger
}

// RegisterOperational mounts health, readiness and metrics at the root.
func RegisterOperational(r gin.IRouter, h *MetricsHandler) {
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
}

// Register mounts the API routes under api.
func Register(api *gin.RouterGroup, h Handlers, deps RouteDeps) {
	authenticated := middleware.JWT(deps.Tokens)
	staff := middleware.RequireStaff()
	admin := middleware.RequireAdmin()
	student := middleware.RBAC(models.RoleStudent)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, action, resource)
	}

	limited := func(g *gin.RouterGroup) *gin.RouterGroup {
		if deps.AuthLimiter != nil {
			g.Use(deps.AuthLimiter.Middleware())
		}
		return g
	}

	auth := api.Group("/auth")
	{
		public := limited(auth.Group(""))
		public.POST("/register", h.Auth.Register)
		public.POST("/verification/send", h.Auth.SendVerification)
		public.POST("/verification/resend", h.Auth.ResendVerification)
		public.POST("/verify-email", h.Auth.VerifyEmail)
		public.POST("/set-password", h.Auth.SetPassword)
		public.POST("/login", h.Auth.Login)
		public.POST("/refresh", h.Auth.Refresh)
		public.POST("/forgot-password", h.Auth.ForgotPassword)
		public.POST("/verify-reset-code", h.Auth.VerifyResetCode)
		public.POST("/reset-password", h.Auth.ResetPassword)

		session := auth.Group("", authenticated, student)
		session.POST("/logout", h.Auth.Logout)
		session.GET("/profile", h.Auth.Profile)
		session.POST("/change-password", h.Auth.ChangePassword)
	}

	admins := api.Group("/admins")
	{
		public := limited(admins.Group(""))
		public.POST("/login", h.Admin.Login)
		public.POST("/refresh", h.Admin.Refresh)
		public.POST("/forgot-password", h.Admin.ForgotPassword)
		public.POST("/verify-reset-code", h.Admin.VerifyResetCode)
		public.POST("/reset-password", h.Admin.ResetPassword)

		session := admins.Group("", authenticated, staff)
		session.POST("/logout", h.Admin.Logout)
		session.GET("/profile", h.Admin.Profile)
		session.POST("/change-password", h.Admin.ChangePassword)

		manage := admins.Group("", authenticated, admin)
		manage.POST("", h.Admin.Register)
		manage.GET("", h.Admin.List)
	}

	students := api.Group("/students", authenticated, staff)
	{
		students.GET("", h.Student.List)
		students.GET("/:email", h.Student.Get)
		students.POST("/upload", admin, h.Student.Upload)
	}

	classes := api.Group("/classes", authenticated)
	{
		live := classes.Group("/live")
		live.GET("", h.Class.ListLive)
		live.GET("/:id", h.Class.GetLive)
		live.POST("", admin, audit(models.AuditActionCreate, "live_class"), h.Class.CreateLive)
		live.PATCH("/:id", admin, audit(models.AuditActionUpdate, "live_class"), h.Class.UpdateLive)
		live.DELETE("/:id", admin, audit(models.AuditActionDelete, "live_class"), h.Class.DeleteLive)

		recorded := classes.Group("/recorded")
		recorded.GET("", h.Class.ListRecorded)
		recorded.GET("/:id", h.Class.GetRecorded)
		recorded.POST("", admin, audit(models.AuditActionCreate, "recorded_class"), h.Class.CreateRecorded)
		recorded.PATCH("/:id", admin, audit(models.AuditActionUpdate, "recorded_class"), h.Class.UpdateRecorded)
		recorded.DELETE("/:id", admin, audit(models.AuditActionDelete, "recorded_class"), h.Class.DeleteRecorded)
	}

	paths := api.Group("/learning-paths", authenticated)
	{
		paths.GET("", h.LearningPath.List)
		paths.GET("/:id", h.LearningPath.Get)
		paths.POST("", admin, audit(models.AuditActionCreate, "learning_path"), h.LearningPath.Create)
		paths.PATCH("/:id", admin, audit(models.AuditActionUpdate, "learning_path"), h.LearningPath.Update)
		paths.DELETE("/:id", admin, audit(models.AuditActionDelete, "learning_path"), h.LearningPath.Delete)

		paths.GET("/:id/lessons", h.LearningPath.ListLessons)
		paths.GET("/:id/lessons/export", h.LearningPath.ExportLessons)
		paths.POST("/:id/lessons", staff, h.LearningPath.AddLesson)
		paths.POST("/:id/lessons/upload", admin, h.LearningPath.UploadLessons)
		paths.PATCH("/:id/lessons/:lessonId", staff, h.LearningPath.UpdateLesson)
		paths.PUT("/:id/lessons/:lessonId/toggle", staff, h.LearningPath.ToggleLesson)
		paths.DELETE("/:id/lessons/:lessonId", staff, h.LearningPath.DeleteLesson)
	}

	api.GET("/dashboard", authenticated, staff, h.Dashboard.Summary)
}

package app

import (
	"prova_backend/docs"
	"prova_backend/internal/config"
	"prova_backend/internal/middleware"
	"prova_backend/internal/model"

	"prova_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerPublicRoutes(router, c)

	staff := router.Group("/api")
	staff.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Teacher, model.Admin))
	{
		a.registerStaffRoutes(staff, c)
	}
}

// registerPublicRoutes covers everything a student reaches without a staff
// token: entering by access code, the session routes keyed by the opaque
// hash handed out at entry, clock sync and the monitor websocket. The
// websocket authenticates per role inside the handler, since students carry
// a hash and proctors carry a JWT.
func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/time", c.monitor.Time)
		public.POST("/enter", c.submission.Enter)

		sessions := public.Group("/sessions")
		{
			sessions.GET("/:hash", c.submission.Resume)
			sessions.POST("/:hash/deliver", c.submission.Deliver)
		}

		public.GET("/applications/:id/monitor", c.monitor.Connect)
	}
}

func (a *App) registerStaffRoutes(rg *gin.RouterGroup, c *controllers) {
	assessments := rg.Group("/assessments")
	{
		assessments.POST("", c.assessment.Create)
		assessments.GET("", c.assessment.List)
		assessments.GET("/:id", c.assessment.Get)
		assessments.PUT("/:id", c.assessment.Update)
		assessments.DELETE("/:id", c.assessment.Delete)
	}

	applications := rg.Group("/applications")
	{
		applications.POST("", c.application.Create)
		applications.GET("", c.application.List)
		applications.GET("/:id", c.application.Get)
		applications.GET("/:id/sync", c.application.Sync)
		applications.GET("/:id/submissions", c.submission.ListByApplication)

		applications.POST("/:id/schedule", c.application.Schedule)
		applications.POST("/:id/start", c.application.Start)
		applications.POST("/:id/pause", c.application.Pause)
		applications.POST("/:id/resume", c.application.Resume)
		applications.POST("/:id/finish", c.application.Finish)
		applications.POST("/:id/conclude", c.application.Conclude)
		applications.POST("/:id/cancel", c.application.Cancel)
		applications.POST("/:id/adjust-time", c.application.AdjustTime)
		applications.POST("/:id/reset-timer", c.application.ResetTimer)
	}

	submissions := rg.Group("/submissions")
	{
		submissions.POST("/:id/confirm-delivery", c.submission.ConfirmDelivery)
		submissions.POST("/:id/reopen", c.submission.Reopen)
		submissions.POST("/:id/pause", c.submission.Pause)
		submissions.POST("/:id/unpause", c.submission.Unpause)
		submissions.POST("/:id/abandon", c.submission.Abandon)
		submissions.POST("/:id/close", c.submission.Close)
		submissions.POST("/:id/cancel", c.submission.Cancel)

		submissions.GET("/:id/violations", c.submission.ListViolations)
		submissions.POST("/:id/violations", c.submission.RecordViolation)
	}

	rg.PUT("/answers/:answerId/grade", c.submission.GradeAnswer)
}

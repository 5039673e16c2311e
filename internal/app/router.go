package app

import (
	"aptitude_backend/docs"
	"aptitude_backend/internal/config"
	"aptitude_backend/internal/middleware"
	"aptitude_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		auth := public.Group("/aptitude/auth")
		auth.POST("/login", c.auth.Login)
		auth.POST("/register", c.auth.Register)
		auth.POST("/refresh", c.auth.Refresh)
	}

	// 2. 学生答题接口
	student := router.Group("/api/aptitude")
	student.Use(middleware.StudentAuthMiddleware(cfg))
	{
		tests := student.Group("/tests/:testId")
		tests.Use(middleware.TestScopeMiddleware())
		tests.GET("", c.aptitude.GetTestDetails)
		tests.POST("/start", c.aptitude.StartTest)

		sessions := student.Group("/sessions/:sessionId")
		sessions.PUT("/answers", c.aptitude.SaveAnswer)
		sessions.POST("/submit", c.aptitude.SubmitTest)
		sessions.GET("/result", c.aptitude.GetResult)
	}
}

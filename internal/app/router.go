package app

import (
	"nextrole_backend/internal/config"
	"nextrole_backend/internal/middleware"

	"nextrole_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		// 课程生成与获取对退出登录的浏览也开放
		courses := public.Group("/courses")
		{
			courses.GET("/content", c.course.GetContent)
			courses.GET("", c.course.List)
			courses.GET("/completed", c.course.Completed)
			courses.GET("/:id", c.course.Get)
			courses.GET("/:id/video", c.course.GetVideo)
			courses.POST("/generate", c.course.Generate)
			courses.POST("/upskilling", c.course.GenerateUpskilling)
		}

		skills := public.Group("/skills")
		{
			skills.POST("/analyze", c.skillGap.Analyze)
			skills.GET("/recommendations", c.skillGap.Recommendations)
		}
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)
		authGroup.PUT("/profile/skills", c.auth.UpdateSkills)
		authGroup.PATCH("/courses/:id/progress", c.course.UpdateProgress)
		authGroup.DELETE("/courses/:id", c.course.Delete)
	}
}

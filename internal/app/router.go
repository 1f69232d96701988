package app

import (
	"github.com/gin-gonic/gin"

	"studygen_backend/internal/config"
	"studygen_backend/internal/middleware"
	"studygen_backend/internal/model"
	"studygen_backend/pkg/monitoring"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	public := router.Group("/api")
	{
		public.GET("/health", c.health.Check)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/techniques", c.quiz.ListTechniques)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.Profile)

		authGroup.GET("/modules", c.module.ListModules)
		authGroup.GET("/modules/:moduleId", c.module.GetModule)
		authGroup.GET("/modules/:moduleId/materials", c.module.ListMaterials)

		authGroup.POST("/modules/:moduleId/quiz/generate", c.quiz.Generate)
		authGroup.GET("/quiz-requests", c.quiz.ListMyRequests)
		authGroup.GET("/quiz-requests/:id", c.quiz.GetRequestStatus)
		authGroup.GET("/modules/:moduleId/quizzes", c.quiz.ListModuleQuizzes)
		authGroup.GET("/quizzes/:id", c.quiz.GetQuiz)

		instructor := authGroup.Group("")
		instructor.Use(middleware.RoleMiddleware(model.Instructor))
		{
			instructor.POST("/modules", c.module.CreateModule)
			instructor.POST("/modules/:moduleId/materials", c.module.CreateMaterial)
			instructor.DELETE("/materials/:materialId", c.module.DeleteMaterial)
			instructor.POST("/modules/:moduleId/quizzes", c.quiz.AuthorQuiz)
			instructor.POST("/modules/:moduleId/quiz-cache/invalidate", c.quiz.InvalidateCache)
		}
	}
}

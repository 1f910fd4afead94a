package app

import (
	"kiosco_escolar_backend/internal/config"
	"kiosco_escolar_backend/internal/middleware"
	"kiosco_escolar_backend/internal/model"
	"kiosco_escolar_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// The socket endpoint is public on purpose: authentication happens
	// inside the connection with an AUTH message.
	router.GET("/ws", c.chat.HandleWS)

	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
		public.POST("/refresh", c.auth.Refresh)
	}

	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.POST("/logout", c.auth.Logout)
		authGroup.GET("/perfil", c.auth.Profile)

		authGroup.GET("/cursos", c.course.List)
		authGroup.GET("/cursos/:id", c.course.Detail)
		authGroup.GET("/cursos/:id/progreso", c.progress.CourseSummary)

		authGroup.GET("/progreso", c.progress.Get)
		authGroup.POST("/progreso", c.progress.Save)
		authGroup.POST("/progreso/sync", c.progress.Sync)

		authGroup.GET("/contenidos/:id/preguntas", c.quiz.Questions)
		authGroup.POST("/contenidos/:id/respuestas", c.quiz.Submit)
		authGroup.GET("/contenidos/:id/intentos", c.quiz.Attempts)

		authGroup.GET("/mensajes", c.chat.History)
		authGroup.POST("/mensajes", c.chat.Send)
		authGroup.POST("/mensajes/leidos", c.chat.MarkRead)
	}

	tutorGroup := router.Group("/api/tutor")
	tutorGroup.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Tutor))
	{
		tutorGroup.GET("/estudiantes", c.user.Students)

		tutorGroup.POST("/cursos", c.course.Create)
		tutorGroup.PUT("/cursos/:id", c.course.Update)
		tutorGroup.DELETE("/cursos/:id", c.course.Delete)
		tutorGroup.POST("/cursos/:id/contenidos", c.course.AddContenido)
		tutorGroup.PUT("/contenidos/:id", c.course.UpdateContenido)
		tutorGroup.DELETE("/contenidos/:id", c.course.DeleteContenido)
		tutorGroup.POST("/contenidos/:id/preguntas", c.quiz.CreateQuestion)
	}
}

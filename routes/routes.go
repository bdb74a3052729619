package routes

import (
	"github.com/gin-gonic/gin"

	"go-terrawatch/handlers"
	"go-terrawatch/orchestrator"
)

func SetupRouter(orch *orchestrator.Orchestrator) *gin.Engine {
	r := gin.Default()

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "Welcome to Terrawatch. POST /api/v1/analyze to start.",
		})
	})

	// Inject the orchestrator into the handlers
	api := r.Group("/api/v1")
	{
		api.POST("/analyze", func(c *gin.Context) {
			handlers.SubmitAnalysis(c, orch)
		})
		api.GET("/tasks/:id", func(c *gin.Context) {
			handlers.GetTaskStatus(c, orch)
		})
		api.DELETE("/tasks/:id", func(c *gin.Context) {
			handlers.CancelTask(c, orch)
		})
	}

	return r
}

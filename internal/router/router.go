package router

import (
	"time"

	"github.com/collabrium-dev/collabrium/internal/handlers"
	"github.com/collabrium-dev/collabrium/internal/middleware"
	"github.com/collabrium-dev/collabrium/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws/:workspace_id", middleware.AuthMiddleware(), handlers.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.POST("/logout", handlers.Logout)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
			auth.PATCH("/me", middleware.AuthMiddleware(), handlers.UpdateUser)
			auth.DELETE("/me", middleware.AuthMiddleware(), handlers.DeleteAccount)
		}

		workspaces := api.Group("/workspaces", middleware.AuthMiddleware())
		{
			workspaces.POST("", handlers.CreateWorkspace)
			workspaces.GET("", handlers.ListWorkspaces)
			workspaces.POST("/join", handlers.JoinWorkspace)

			workspaces.GET("/:workspace_id", handlers.GetWorkspace)
			workspaces.PATCH("/:workspace_id", handlers.UpdateWorkspace)
			workspaces.DELETE("/:workspace_id", handlers.DeleteWorkspace)
			workspaces.GET("/:workspace_id/members", handlers.ListMembers)

			// Task list endpoints
			workspaces.POST("/:workspace_id/lists", handlers.CreateTaskList)
			workspaces.GET("/:workspace_id/lists", handlers.ListTaskLists)
			workspaces.PATCH("/:workspace_id/lists/:list_id", handlers.UpdateTaskList)
			workspaces.DELETE("/:workspace_id/lists/:list_id", handlers.DeleteTaskList)

			// Task endpoints
			workspaces.POST("/:workspace_id/lists/:list_id/tasks", handlers.CreateTask)
			workspaces.GET("/:workspace_id/lists/:list_id/tasks", handlers.ListTasks)
			workspaces.GET("/:workspace_id/tasks/search", handlers.SearchTasks)
			workspaces.GET("/:workspace_id/tasks/:task_id", handlers.GetTask)
			workspaces.PATCH("/:workspace_id/tasks/:task_id", handlers.UpdateTask)
			workspaces.DELETE("/:workspace_id/tasks/:task_id", handlers.DeleteTask)

			// Activity endpoints
			workspaces.POST("/:workspace_id/tasks/:task_id/comments", handlers.CreateComment)
			workspaces.GET("/:workspace_id/tasks/:task_id/comments", handlers.ListComments)
			workspaces.DELETE("/:workspace_id/comments/:comment_id", handlers.DeleteComment)
			workspaces.POST("/:workspace_id/tasks/:task_id/timelogs", handlers.CreateTimeLog)
			workspaces.GET("/:workspace_id/tasks/:task_id/timelogs", handlers.ListTimeLogs)
		}
	}

	return r
}

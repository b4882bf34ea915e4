package routes

import (
	"github.com/dylanreedx/bite/config"
	"github.com/dylanreedx/bite/controllers"
	"github.com/dylanreedx/bite/logger"
	"github.com/dylanreedx/bite/middlewares"
	"github.com/dylanreedx/bite/services"

	"github.com/gin-gonic/gin"
)

func SetupRouter(log *logger.Logger) *gin.Engine {
	fatSecret := services.NewFatSecretService()
	store := services.NewFoodStore(config.DB, log)
	resolver := services.NewFoodResolver(store, fatSecret, log)
	search := services.NewSearchService(store, fatSecret, log)
	foodLogs := services.NewFoodLogService(config.DB, store, resolver, log)

	foodCtrl := controllers.NewFoodController(search, resolver)
	logCtrl := controllers.NewFoodLogController(foodLogs)

	r := gin.Default()

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
	}

	food := r.Group("/food")
	{
		food.GET("/search", foodCtrl.Search)
		food.GET("/:foodId/servings", foodCtrl.Servings)
	}

	// Log routes are scoped to the authenticated user
	logs := r.Group("/food/log")
	logs.Use(middlewares.AuthMiddleware())
	{
		logs.POST("", logCtrl.Create)
		logs.GET("", logCtrl.ListToday)
		logs.DELETE("", logCtrl.Delete)
	}

	return r
}

package http

import (
	"github.com/gin-gonic/gin"

	"travelchat/internal/bootstrap"
	"travelchat/internal/transport/http/handler"
	"travelchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	secret := app.Config.Auth.JWTSecret
	authHandler := handler.NewAuthHandler(app.Auth)
	sessionHandler := handler.NewSessionHandler(app.Sessions)
	travelHandler := handler.NewTravelHandler(app.Travel)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(secret), authHandler.Me)

	// Sessions work without a login; an owner only adds remote sync.
	sessionGroup := v1.Group("/sessions")
	sessionGroup.Use(middleware.OptionalAuth(secret))
	sessionGroup.POST("", sessionHandler.Create)
	sessionGroup.GET("", sessionHandler.List)
	sessionGroup.PUT("/:id", sessionHandler.Save)
	sessionGroup.PATCH("/:id", sessionHandler.Rename)
	sessionGroup.DELETE("/:id", sessionHandler.Delete)
	sessionGroup.GET("/:id/messages", sessionHandler.Messages)
	sessionGroup.POST("/:id/messages", travelHandler.SendMessage)
	sessionGroup.POST("/:id/dates", travelHandler.SelectDates)
	sessionGroup.POST("/:id/guests", travelHandler.SelectGuests)

	return router
}

// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AccountHandler      *handler.AccountHandler
	RequestIDMiddleware *middleware.RequestIDMiddleware
	LoggerMiddleware    *middleware.LoggerMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	accountHandler      *handler.AccountHandler
	requestIDMiddleware *middleware.RequestIDMiddleware
	loggerMiddleware    *middleware.LoggerMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		accountHandler:      params.AccountHandler,
		requestIDMiddleware: params.RequestIDMiddleware,
		loggerMiddleware:    params.LoggerMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.Use(r.requestIDMiddleware.Process)
	e.Use(r.loggerMiddleware.Handle)

	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/login", r.accountHandler.Login)
		authGroup.POST("/verify", r.accountHandler.Verify)
	}

	// Account management routes
	accountGroup := e.Group("/accounts")
	{
		accountGroup.POST("", r.accountHandler.Create)
		accountGroup.GET("", r.accountHandler.List)
		accountGroup.GET("/active", r.accountHandler.ListActive)
		accountGroup.GET("/username/:username", r.accountHandler.GetByUsername)
		accountGroup.GET("/email/:email", r.accountHandler.GetByEmail)
		accountGroup.GET("/:id", r.accountHandler.GetByID)
		accountGroup.PATCH("/:id", r.accountHandler.Update)
		accountGroup.DELETE("/:id", r.accountHandler.Delete)
		accountGroup.POST("/:id/deactivate", r.accountHandler.Deactivate)
		accountGroup.POST("/:id/activate", r.accountHandler.Activate)
		accountGroup.POST("/:id/unlock", r.accountHandler.Unlock)
		accountGroup.POST("/:id/password", r.accountHandler.ChangePassword)
	}
}

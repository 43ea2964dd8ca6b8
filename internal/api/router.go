package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/storefront-api/docs"
	"github.com/99minutos/storefront-api/internal/api/handler"
	"github.com/99minutos/storefront-api/internal/api/metrics"
	"github.com/99minutos/storefront-api/internal/api/middleware"
	"github.com/99minutos/storefront-api/internal/core/domain"
	"github.com/99minutos/storefront-api/internal/core/ports"
	"github.com/99minutos/storefront-api/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	AuthService    ports.AuthService
	ProductService ports.ProductService
	JWTSecret      string
	// ProtectProducts puts catalogue mutations behind an admin token.
	ProtectProducts bool
	// Readiness lists the dependencies checked by /health/ready.
	Readiness map[string]handlers.Pinger
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(metrics.Middleware())

	authMiddleware := middleware.Auth(deps.JWTSecret)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.AuthService, deps.Logger)
	e.POST("/auth/sign-up", authHandler.SignUp)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/verifyOtp", authHandler.VerifyOTP)
	e.POST("/forgot-password", authHandler.ForgotPassword)
	e.POST("/reset-password", authHandler.ResetPassword)
	e.GET("/auth/whoami", authHandler.WhoAmI, authMiddleware)

	// --- Catalogue routes ---
	productHandler := handler.NewProductHandler(deps.ProductService)
	var guard []echo.MiddlewareFunc
	if deps.ProtectProducts {
		guard = []echo.MiddlewareFunc{authMiddleware, middleware.RBAC(domain.RoleAdmin.String())}
	}

	products := e.Group("/products")
	products.POST("", productHandler.Create, guard...)
	products.GET("", productHandler.List)
	products.GET("/count", productHandler.Count)
	products.GET("/:id", productHandler.Get)
	products.PATCH("/:id", productHandler.Update, guard...)
	products.DELETE("/:id", productHandler.Delete, guard...)

	categories := e.Group("/categories")
	categories.POST("", productHandler.CreateCategory, guard...)
	categories.GET("", productHandler.ListCategories)

	// --- Operational endpoints ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.Readiness)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	return e
}

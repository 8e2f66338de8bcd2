package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/domain/models"
	"github.com/rubberworks/queuegate/internal/server/handlers"
	"github.com/rubberworks/queuegate/internal/server/middleware"
)

// Dependencies groups what the router mounts.
type Dependencies struct {
	Sessions      middleware.SessionResolver
	AllowedOrigin string

	Auth      *handlers.AuthHandler
	Bookings  *handlers.BookingHandler
	Suppliers *handlers.SupplierHandler
	Proxy     *handlers.ProxyHandler
	Reports   *handlers.ReportHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(deps Dependencies, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(deps.AllowedOrigin))

	r.GET("/healthz", handlers.Health)

	api := r.Group("/api")
	api.POST("/auth/login", deps.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.RequireSession(deps.Sessions, logger.Named("auth")))

	read := middleware.RequirePermission(models.PermRead)
	create := middleware.RequirePermission(models.PermCreate)
	update := middleware.RequirePermission(models.PermUpdate)
	remove := middleware.RequirePermission(models.PermDelete)
	approve := middleware.RequirePermission(models.PermApprove)

	secured.POST("/auth/logout", deps.Auth.Logout)
	secured.GET("/auth/session", deps.Auth.Session)

	b := secured.Group("/bookings")
	b.GET("", read, deps.Bookings.List)
	b.POST("", create, deps.Bookings.Create)
	b.GET("/next-sequence", read, deps.Bookings.NextSequence)
	b.GET("/export", read, deps.Bookings.Export)
	b.GET("/:id", read, deps.Bookings.Get)
	b.PUT("/:id", update, deps.Bookings.Update)
	b.DELETE("/:id", remove, deps.Bookings.Delete)
	b.POST("/:id/:action", update, deps.Bookings.Lifecycle)

	s := secured.Group("/suppliers")
	s.GET("", read, deps.Suppliers.List)
	s.POST("", create, deps.Suppliers.Create)
	s.GET("/:id", read, deps.Suppliers.Get)
	s.PUT("/:id", update, deps.Suppliers.Update)
	s.DELETE("/:id", remove, deps.Suppliers.Delete)

	users := deps.Proxy.Forward("/users")
	secured.GET("/users", read, users)
	secured.GET("/users/*path", read, users)
	secured.POST("/users", update, users)
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		secured.Handle(method, "/users/*path", update, users)
	}
	secured.GET("/locations/*path", read, deps.Proxy.Forward("/locations"))
	secured.GET("/rubber-types", read, deps.Proxy.Forward("/rubber-types"))

	secured.GET("/reports/daily", read, deps.Reports.Daily)
	secured.POST("/reports/daily", approve, deps.Reports.RunDaily)

	logger.Info("router initialized")

	return r
}

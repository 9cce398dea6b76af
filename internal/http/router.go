package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20

type RouterConfig struct {
	Env            string
	ServiceName    string
	AllowedOrigins []string
}

// Deps is everything the router mounts. Prom and Gatherer may be nil in tests.
type Deps struct {
	Log      *slog.Logger
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	Gate    *middlewares.AuthMiddleware
	Auth    *handlers.AuthHandler
	Tenants *handlers.TenantsHandler
	Users   *handlers.UsersHandler
	Health  *handlers.HealthHandler
	Keys    handlers.KeyPublisher
}

func NewRouter(cfg RouterConfig, deps Deps) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(deps.Log))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "route not found")
	})

	// probes
	r.GET("/healthz", deps.Health.Healthz)
	r.GET("/readyz", deps.Health.Readyz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	r.GET("/.well-known/jwks.json", handlers.JWKS(deps.Keys))

	gate := deps.Gate
	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register/send-otp", deps.Auth.SendOtp)
		authGroup.POST("/register/verify-otp", deps.Auth.VerifyOtp)
		authGroup.POST("/login", gate.RejectIfLoggedIn(), deps.Auth.Login)
		authGroup.GET("/self", gate.RequireAccessToken(), gate.RequireRefreshToken(), deps.Auth.Self)
		authGroup.GET("/logout", gate.RequireAccessToken(), gate.RequireRefreshToken(), deps.Auth.Logout)
		authGroup.GET("/refresh", gate.RequireRefreshToken(), deps.Auth.Refresh)
		authGroup.POST("/forget-password", deps.Auth.ForgetPassword)
		authGroup.POST("/set-password", deps.Auth.SetPassword)
	}

	// admin
	admin := api.Group("", gate.RequireAccessToken(), gate.RequireRole(user.RoleAdmin))

	tenants := admin.Group("/tenants")
	{
		tenants.POST("", deps.Tenants.Create)
		tenants.GET("", deps.Tenants.List)
		tenants.GET("/:id", deps.Tenants.GetOne)
		tenants.PUT("/:id", deps.Tenants.Update)
		tenants.DELETE("/:id", deps.Tenants.Delete)
	}

	users := admin.Group("/users")
	{
		users.POST("", deps.Users.Create)
		users.GET("", deps.Users.List)
		users.GET("/:id", deps.Users.GetOne)
		users.PUT("/:id", deps.Users.Update)
		users.DELETE("/:id", deps.Users.Delete)
	}

	return r
}

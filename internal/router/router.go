package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	authHandler "github.com/jwalitptl/practice-api/internal/handler/auth"
	consultationHandler "github.com/jwalitptl/practice-api/internal/handler/consultation"
	"github.com/jwalitptl/practice-api/internal/handler/health"
	"github.com/jwalitptl/practice-api/internal/handler/prometheus"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/model"
	"github.com/jwalitptl/practice-api/pkg/logger"
	appvalidator "github.com/jwalitptl/practice-api/pkg/validator"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Handlers struct {
	Auth         *authHandler.Handler
	Profile      Handler
	Patient      Handler
	Appointment  Handler
	Consultation *consultationHandler.Handler
	Report       Handler
	Notification Handler
	Storage      Handler
	Analytics    Handler
	Health       *health.Handler
	Metrics      *prometheus.Handler
}

type RouterConfig struct {
	AllowedOrigins []string
	RateLimit      rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	UploadMaxBytes int64
	IdempotencyTTL time.Duration
	TLS            bool
	// Location is the practice timezone date validation runs in.
	Location *time.Location
}

// New builds the engine. Validation tags used by the request models are
// registered on gin's binding engine here.
func New(cfg RouterConfig, h Handlers, auth *middleware.AuthMiddleware, rdb redis.UniversalClient, log *logger.Logger) (*gin.Engine, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := appvalidator.Register(v, appvalidator.WithLocation(cfg.Location)); err != nil {
			return nil, err
		}
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		h.Metrics.Middleware(),
		middleware.SecurityHeaders(cfg.TLS),
		cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey, middleware.HeaderXRequestID},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	h.Health.RegisterRoutes(engine)
	engine.GET("/metrics", h.Metrics.Handler())

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  cfg.RateLimit,
		Burst: cfg.RateBurst,
	})

	api := engine.Group("/api/v1")

	public := api.Group("",
		limiter.RateLimit(),
		middleware.SizeLimit(middleware.DefaultMaxBodySize),
		middleware.Timeout(cfg.RequestTimeout),
	)
	h.Auth.RegisterRoutes(public)

	stream := api.Group("", auth.AuthenticateStream())
	h.Auth.RegisterStreamRoutes(stream)

	protected := api.Group("",
		auth.Authenticate(),
		limiter.RateLimit(),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.Idempotency(rdb, cfg.IdempotencyTTL, log),
	)

	body := protected.Group("", middleware.SizeLimit(middleware.DefaultMaxBodySize))
	h.Auth.RegisterProtectedRoutes(body)
	for _, rh := range []Handler{
		h.Profile,
		h.Patient,
		h.Appointment,
		h.Consultation,
		h.Report,
		h.Notification,
		h.Analytics,
	} {
		rh.RegisterRoutes(body)
	}
	h.Storage.RegisterRoutes(body.Group("", auth.RequireRole(model.RoleDoctor)))

	uploads := protected.Group("", middleware.SizeLimit(cfg.UploadMaxBytes))
	h.Consultation.RegisterUploadRoutes(uploads)

	return engine, nil
}

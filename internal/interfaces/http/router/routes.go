package router

import (
	"github.com/gin-gonic/gin"
	_ "github.com/paintworks/backend/docs"
	"github.com/paintworks/backend/internal/infrastructure/logger"
	"github.com/paintworks/backend/internal/interfaces/http/handler"
	"github.com/paintworks/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// DefaultAdminRole may read and retry the outbox
const DefaultAdminRole = "admin"

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	Batch    *handler.BatchHandler
	Order    *handler.OrderHandler
	Planning *handler.PlanningHandler
	Outbox   *handler.OutboxHandler
	System   *handler.SystemHandler
}

// Options configure the middleware chain of NewEngine. A nil Meter disables
// HTTP metrics.
type Options struct {
	Logger      *zap.Logger
	ServiceName string
	Tracing     bool
	Profiling   bool
	Meter       metric.Meter
	CORS        middleware.CORSConfig
	MaxBodySize int64
	Auth        middleware.JWTMiddlewareConfig
	AdminRole   string
	Swagger     middleware.SwaggerConfig
}

// NewEngine builds the gin engine: global middleware, health probes and the
// guarded Swagger UI at the root, and the planning API under /api/v1 behind
// JWT authentication
func NewEngine(opts Options, h Handlers) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.AdminRole == "" {
		opts.AdminRole = DefaultAdminRole
	}
	if opts.Auth.Logger == nil {
		opts.Auth.Logger = log
	}

	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{ServiceName: opts.ServiceName, Enabled: opts.Tracing}),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(opts.Meter),
		middleware.Profiling(opts.Profiling),
		middleware.Secure(),
		middleware.CORS(opts.CORS),
	)
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}

	if h.System != nil {
		engine.GET("/health", h.System.Health)
		engine.GET("/health/live", h.System.Ping)
	}

	// Swagger documentation endpoint
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(opts.Swagger, middleware.JWTAuth(opts.Auth)),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuth(opts.Auth), middleware.SpanAttributes())

	if h.Order != nil {
		r.Register(orderRoutes(h.Order))
	}
	if h.Planning != nil {
		r.Register(planningRoutes(h.Planning))
	}
	if h.Batch != nil {
		r.Register(batchRoutes(h.Batch))
	}
	if h.Outbox != nil {
		r.Register(outboxRoutes(h.Outbox, opts.AdminRole))
	}
	routes := r.Setup()
	log.Debug("API routes mounted", zap.Int("count", len(routes)), zap.Strings("routes", routes))

	return engine
}

func orderRoutes(h *handler.OrderHandler) *RouteGroup {
	return NewRouteGroup("/orders").
		GET("/eligible", h.ListEligible).
		PUT("/delivery-dates", h.BulkDeliveryDates).
		GET("/:id", h.Get).
		PUT("/:id/delivery", h.UpdateDelivery).
		POST("/:id/reserve-stock", h.ReserveStock).
		POST("/:id/release-stock", h.ReleaseStock).
		POST("/:id/dispatch", h.Dispatch)
}

func planningRoutes(h *handler.PlanningHandler) *RouteGroup {
	g := NewRouteGroup("/planning").
		POST("/inventory-check", h.InventoryCheck).
		GET("/dashboard", h.Dashboard)

	g.Group("/bom").
		POST("/consolidated", h.ConsolidatedBOM).
		POST("/consolidated/export", h.ExportConsolidatedBOM).
		GET("/:sku_id", h.GetBOM)

	g.Group("/feasibility").
		POST("/product", h.ProductFeasibility).
		POST("/group", h.GroupFeasibility)

	return g
}

func batchRoutes(h *handler.BatchHandler) *RouteGroup {
	return NewRouteGroup("/batches").
		POST("", middleware.IdempotencyKey(), h.Schedule).
		POST("/auto-schedule", middleware.IdempotencyKey(), h.AutoSchedule).
		GET("", h.List).
		GET("/:id", h.Get).
		GET("/:id/activity", h.Activity).
		POST("/:id/start", h.Start).
		POST("/:id/complete", h.Complete).
		POST("/:id/cancel", h.Cancel)
}

func outboxRoutes(h *handler.OutboxHandler, adminRole string) *RouteGroup {
	return NewRouteGroup("/system/outbox").
		Use(middleware.RequireRole(adminRole)).
		GET("/stats", h.GetStats).
		GET("/dead", h.GetDeadLetterEntries).
		POST("/:id/retry", h.RetryDeadEntry)
}

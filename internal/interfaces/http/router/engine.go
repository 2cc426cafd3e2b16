package router

import (
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/logger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/interfaces/http/handler"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by NewEngine
type Handlers struct {
	Invoice *handler.InvoiceHandler
	Payment *handler.PaymentHandler
	Audit   *handler.AuditHandler
	System  *handler.SystemHandler
}

// EngineConfig configures the middleware chain of the ledger API
type EngineConfig struct {
	Logger         *zap.Logger
	CORS           middleware.CORSConfig
	MaxBodySize    int64
	TrustedProxies []string
	DefaultTenant  uuid.UUID
	Tracing        middleware.TracingConfig
	// Idempotency.Store nil disables Idempotency-Key handling
	Idempotency middleware.IdempotencyMiddlewareConfig
	// Registry receives the HTTP metrics and is served on /metrics. Nil
	// disables both.
	Registry *prometheus.Registry
}

// NewEngine builds the gin engine with the full middleware chain and every
// ledger route.
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.TracingWithConfig(cfg.Tracing),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
	)
	if cfg.Registry != nil {
		httpMetrics, err := middleware.NewHTTPMetrics(cfg.Registry)
		if err != nil {
			return nil, err
		}
		engine.Use(httpMetrics.Middleware())
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}
	engine.Use(middleware.BodyLimit(cfg.MaxBodySize))

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.DefaultTenant = cfg.DefaultTenant
	tenantCfg.Logger = log

	r := NewRouter(engine, WithGroupMiddleware(
		middleware.TenantMiddlewareWithConfig(tenantCfg),
		middleware.TracingAttributeInjector(),
	))
	registerLedgerRoutes(r, cfg, h)
	r.Setup()

	return engine, nil
}

func registerLedgerRoutes(r *Router, cfg EngineConfig, h Handlers) {
	invoices := NewDomainGroup("invoices", "/invoices")
	if h.Invoice != nil {
		invoices.
			POST("", h.Invoice.Create).
			GET("", h.Invoice.List).
			GET("/export", h.Invoice.Export).
			GET("/:id", h.Invoice.GetByID).
			PATCH("/:id/status", h.Invoice.UpdateStatus).
			PATCH("/:id/notes", h.Invoice.UpdateNotes).
			POST("/:id/cancel", h.Invoice.Cancel).
			POST("/:id/send", h.Invoice.Send)
	}
	if h.Payment != nil {
		record := []gin.HandlerFunc{h.Payment.Record}
		if cfg.Idempotency.Store != nil {
			idem := cfg.Idempotency
			if idem.Logger == nil {
				idem.Logger = cfg.Logger
			}
			record = append([]gin.HandlerFunc{middleware.Idempotency(idem)}, record...)
		}
		invoices.
			GET("/:id/payments", h.Payment.List).
			POST("/:id/payments", record...)
	}
	r.Register(invoices)

	if h.Audit != nil {
		r.Register(NewDomainGroup("leads", "/leads").GET("/:id/audit-log", h.Audit.ListByLead))
	}
}

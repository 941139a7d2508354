package router

import (
	"time"

	"payhub/internal/config"
	"payhub/internal/handler"
	"payhub/internal/infra"
	"payhub/internal/middleware"
	"payhub/internal/model"
	"payhub/internal/repository"
	"payhub/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces built in main and shared with the worker pool.
type Deps struct {
	Providers  infra.Providers
	Dispatcher service.Dispatcher
	Factory    service.ReceiptFactory
	Gateway    service.ReceiptIssuer
	ReceiptsCB *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Fatal().Err(err).Msg("invalid TRUSTED_PROXIES")
	}

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	transactionRepo := repository.NewTransactionRepository(db)
	certificateRepo := repository.NewCertificateRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	attributionRepo := repository.NewAttributionRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	operatorRepo := repository.NewOperatorRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(operatorRepo, cfg)
	attributionSvc := service.NewAttributionService(attributionRepo, cfg.Merchants, cfg.DefaultMerchant)
	settlementSvc := service.NewSettlementService(
		db, transactionRepo, certificateRepo, statusRepo, webhookEventRepo,
		attributionSvc, cfg.Commissions(), deps.Dispatcher,
	)
	paymentSvc := service.NewPaymentService(transactionRepo, certificateRepo, attributionRepo, attributionSvc, deps.Providers,
		service.PaymentOptions{
			PaymentURL:      cfg.PaymentURL,
			ReturnURL:       cfg.ReturnURL,
			LinkTTL:         cfg.PaymentLinkTTL,
			DefaultProvider: cfg.DefaultProvider,
		})
	certificateSvc := service.NewCertificateService(certificateRepo, statusRepo, transactionRepo)
	receiptSvc := service.NewReceiptService(transactionRepo, deps.Factory, deps.Gateway)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	operatorsH := handler.NewOperatorsHandler(authSvc)
	paymentsH := handler.NewPaymentsHandler(paymentSvc)
	certificatesH := handler.NewCertificatesHandler(certificateSvc, settlementSvc)
	receiptsH := handler.NewReceiptsHandler(receiptSvc)
	webhooksH := handler.NewWebhooksHandler(deps.Providers, settlementSvc, receiptSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, deps.ReceiptsCB))
	r.GET("/order/:id", paymentsH.Landing)
	r.GET("/v1/payments/:id/link", paymentsH.RegisterLink)

	// Provider notifications (public, sender checked per provider)
	hooks := r.Group("/webhooks")
	{
		hooks.POST("/yookassa/:merchant", webhooksH.YooKassa)
		hooks.GET("/sber/:merchant", webhooksH.Sber)
		hooks.POST("/sber/:merchant", webhooksH.Sber)
		hooks.POST("/lifepay/:transaction_id", webhooksH.LifePay)
	}

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleAccountant, model.RoleFranchise)
		backOffice := middleware.RequireRole(model.RoleAdmin, model.RoleAccountant)

		v1.POST("/payments", anyRole, paymentsH.Create)
		v1.GET("/payments", backOffice, paymentsH.List)
		v1.GET("/payments/:id", anyRole, paymentsH.Get)
		v1.GET("/payments/:id/status", anyRole, paymentsH.OrderStatus)
		v1.DELETE("/payments/:id", backOffice, paymentsH.Deactivate)

		certs := v1.Group("/certificates", backOffice)
		{
			certs.GET("/:code", certificatesH.Summary)
			certs.GET("/:code/status", certificatesH.Current)
			certs.GET("/:code/history", certificatesH.History)
			certs.GET("/:code/export", certificatesH.Export)
			certs.POST("/:code/recompute", certificatesH.Recompute)
		}

		v1.POST("/receipts", backOffice, receiptsH.Issue)

		operators := v1.Group("/operators", middleware.RequireRole(model.RoleAdmin))
		{
			operators.POST("", operatorsH.Create)
			operators.GET("", operatorsH.List)
			operators.DELETE("/:id", operatorsH.Deactivate)
			operators.PATCH("/:id/reactivate", operatorsH.Reactivate)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

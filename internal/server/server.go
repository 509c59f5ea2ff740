package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ordersync/internal/config"
	credentialdomain "github.com/smallbiznis/ordersync/internal/credential/domain"
	"github.com/smallbiznis/ordersync/internal/observability"
	obsmiddleware "github.com/smallbiznis/ordersync/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ordersync/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ordersync/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/ordersync/internal/order/domain"
	syncdomain "github.com/smallbiznis/ordersync/internal/sync/domain"
	synclogdomain "github.com/smallbiznis/ordersync/internal/synclog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if mw := corsMiddleware(cfg); mw != nil {
		r.Use(mw)
	}
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(cfg, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	credentialSvc credentialdomain.Service
	orderSvc      orderdomain.Service
	syncSvc       syncdomain.Service
	synclogSvc    synclogdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	CredentialSvc credentialdomain.Service
	OrderSvc      orderdomain.Service
	SyncSvc       syncdomain.Service
	SyncLogSvc    synclogdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		credentialSvc: p.CredentialSvc,
		orderSvc:      p.OrderSvc,
		syncSvc:       p.SyncSvc,
		synclogSvc:    p.SyncLogSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Webhooks are acknowledged without a tenant; ingestion stays pull based.
	api.POST("/webhooks/:provider", s.ReceiveWebhook)

	tenant := api.Group("", TenantRequired())

	// -------- Credentials --------
	tenant.GET("/credentials", s.ListCredentials)
	tenant.GET("/credentials/:provider", s.GetCredential)
	tenant.PUT("/credentials/:provider", s.ConfigureCredential)
	tenant.DELETE("/credentials/:provider", s.DeleteCredential)
	tenant.POST("/credentials/:provider/test", s.TestConnection)
	tenant.POST("/credentials/:provider/toggle", s.ToggleCredential)

	// -------- Aggregators --------
	tenant.POST("/aggregators/:provider/ingest", s.IngestOrders)
	tenant.POST("/aggregators/:provider/full-sync", s.FullSync)

	// -------- Sync --------
	tenant.POST("/sync", s.SyncPendingOrders)
	tenant.GET("/sync/status", s.GetSyncStatus)
	tenant.GET("/sync/logs", s.ListSyncLogs)

	// -------- Orders --------
	tenant.GET("/orders", s.ListOrders)
	tenant.GET("/orders/:id", s.GetOrder)
	tenant.POST("/orders/simulate", s.SimulateOrder)
	tenant.POST("/orders/:id/retry", s.RetryOrder)

	// -------- POS catalog --------
	tenant.GET("/pos/loyverse/stores", s.ListLoyverseCatalog(syncdomain.CatalogStores))
	tenant.GET("/pos/loyverse/items", s.ListLoyverseCatalog(syncdomain.CatalogItems))
	tenant.GET("/pos/loyverse/categories", s.ListLoyverseCatalog(syncdomain.CatalogCategories))
	tenant.GET("/pos/loyverse/payment_types", s.ListLoyverseCatalog(syncdomain.CatalogPaymentTypes))
	tenant.GET("/pos/loyverse/receipts", s.ListLoyverseCatalog(syncdomain.CatalogReceipts))
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

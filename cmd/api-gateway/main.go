package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/formagestpro/formagest-api/api/swagger"
	"github.com/formagestpro/formagest-api/internal/handler"
	"github.com/formagestpro/formagest-api/internal/middleware"
	"github.com/formagestpro/formagest-api/internal/models"
	"github.com/formagestpro/formagest-api/internal/repository"
	"github.com/formagestpro/formagest-api/internal/service"
	"github.com/formagestpro/formagest-api/pkg/cache"
	"github.com/formagestpro/formagest-api/pkg/config"
	"github.com/formagestpro/formagest-api/pkg/database"
	"github.com/formagestpro/formagest-api/pkg/jobs"
	"github.com/formagestpro/formagest-api/pkg/logger"
	corsmiddleware "github.com/formagestpro/formagest-api/pkg/middleware/cors"
	reqidmiddleware "github.com/formagestpro/formagest-api/pkg/middleware/requestid"
	"github.com/formagestpro/formagest-api/pkg/storage"
)

// @title FormaGest API
// @version 1.0.0
// @description Tuition and academic program management
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	programRepo := repository.NewProgramRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db, programRepo)
	transactionRepo := repository.NewTransactionRepository(db)
	conceptRepo := repository.NewPaymentConceptRepository(db)
	cashMovementRepo := repository.NewCashMovementRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	configurationRepo := repository.NewConfigurationRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	// Redis backs the dashboard cache. The API stays up without it.
	var cacheRepo *repository.CacheRepository
	if redisClient, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}

	// Services.
	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "formagest-api",
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	programSvc := service.NewProgramService(programRepo, teacherRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, validate, logr)
	transactionSvc := service.NewTransactionService(transactionRepo, enrollmentRepo, conceptRepo, companyRepo, validate, logr)
	conceptSvc := service.NewPaymentConceptService(conceptRepo, validate, logr)
	cashMovementSvc := service.NewCashMovementService(cashMovementRepo, validate, logr)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, transactionRepo, cfg.Invoices.IVARate, cfg.Invoices.ITRate, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	companySvc := service.NewCompanyService(companyRepo, validate, logr)
	configurationSvc := service.NewConfigurationService(configurationRepo, validate, logr)

	var dashboardSvc *service.DashboardService
	if cacheRepo != nil {
		dashboardSvc = service.NewDashboardService(dashboardRepo, cacheRepo, cfg.Dashboard.CacheTTL, logr)
	} else {
		dashboardSvc = service.NewDashboardService(dashboardRepo, nil, cfg.Dashboard.CacheTTL, logr)
	}

	var documentSvc *service.DocumentService
	if cfg.Documents.Enabled {
		documentFiles, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init document storage", "error", err)
		}
		documentSigner := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
		documentSvc = service.NewDocumentService(documentRepo, transactionRepo, documentFiles, documentSigner,
			cfg.Documents.MaxFileSizeBytes, cfg.Documents.AllowedExtensions, logr)
	}

	reportFiles, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	reportSvc := service.NewReportService(reportRepo, configurationSvc, nil, reportFiles, reportSigner,
		cfg.Billing.DelinquencyDays, logr)
	if cfg.Reports.Enabled {
		reportQueue := jobs.NewQueue("reports", reportSvc.ProcessJob, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		reportSvc.SetQueue(reportQueue)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	programHandler := handler.NewProgramHandler(programSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	transactionHandler := handler.NewTransactionHandler(transactionSvc)
	conceptHandler := handler.NewPaymentConceptHandler(conceptSvc)
	cashMovementHandler := handler.NewCashMovementHandler(cashMovementSvc)
	invoiceHandler := handler.NewInvoiceHandler(invoiceSvc)
	userHandler := handler.NewUserHandler(userSvc)
	companyHandler := handler.NewCompanyHandler(companySvc)
	configurationHandler := handler.NewConfigurationHandler(configurationSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Signed-token downloads authenticate through the token itself.
	if documentSvc != nil {
		documentHandler := handler.NewDocumentHandler(documentSvc)
		api.GET("/documentos/descargar/:token", documentHandler.Download)
		registerDocumentRoutes(api, documentHandler, authSvc)
	}
	api.GET("/reportes/descargar/:token", reportHandler.Download)

	protected := api.Group("", middleware.JWT(authSvc))

	anyRole := middleware.RequireRoles(models.RoleAdministrador, models.RoleCoordinador, models.RoleCajero, models.RoleConsulta)
	academic := middleware.RequireRoles(models.RoleAdministrador, models.RoleCoordinador)
	cashier := middleware.RequireRoles(models.RoleAdministrador, models.RoleCajero)
	enrolling := middleware.RequireRoles(models.RoleAdministrador, models.RoleCoordinador, models.RoleCajero)
	adminOnly := middleware.RequireRoles(models.RoleAdministrador)

	protected.POST("/auth/logout", authHandler.Logout)
	protected.POST("/auth/change-password", authHandler.ChangePassword)
	protected.GET("/auth/me", authHandler.Me)

	protected.GET("/estudiantes", anyRole, studentHandler.List)
	protected.GET("/estudiantes/estadisticas", anyRole, studentHandler.Stats)
	protected.GET("/estudiantes/:id", anyRole, studentHandler.Get)
	protected.GET("/estudiantes/:id/programas", anyRole, studentHandler.Programs)
	protected.POST("/estudiantes", enrolling, studentHandler.Create)
	protected.PUT("/estudiantes/:id", enrolling, studentHandler.Update)
	protected.DELETE("/estudiantes/:id", adminOnly, studentHandler.Delete)

	protected.GET("/docentes", anyRole, teacherHandler.List)
	protected.GET("/docentes/:id", anyRole, teacherHandler.Get)
	protected.POST("/docentes", academic, teacherHandler.Create)
	protected.PUT("/docentes/:id", academic, teacherHandler.Update)
	protected.DELETE("/docentes/:id", adminOnly, teacherHandler.Delete)

	protected.GET("/programas", anyRole, programHandler.List)
	protected.GET("/programas/estadisticas", anyRole, programHandler.Stats)
	protected.GET("/programas/:id", anyRole, programHandler.Get)
	protected.GET("/programas/:id/disponibilidad", anyRole, programHandler.Availability)
	protected.POST("/programas", academic, programHandler.Create)
	protected.PUT("/programas/:id", academic, programHandler.Update)
	protected.POST("/programas/:id/avanzar", academic, programHandler.Advance)
	protected.POST("/programas/:id/cancelar", academic, programHandler.Cancel)
	protected.POST("/programas/:id/reactivar", academic, programHandler.Reactivate)

	protected.GET("/inscripciones", anyRole, enrollmentHandler.List)
	protected.GET("/inscripciones/:id", anyRole, enrollmentHandler.Get)
	protected.GET("/inscripciones/:id/saldo", anyRole, transactionHandler.Balance)
	protected.POST("/inscripciones", enrolling, enrollmentHandler.Enroll)
	protected.PUT("/inscripciones/:id", academic, enrollmentHandler.Update)
	protected.PUT("/inscripciones/:id/estado", academic, enrollmentHandler.UpdateState)
	protected.POST("/inscripciones/:id/retirar", academic, enrollmentHandler.Withdraw)

	protected.GET("/transacciones", anyRole, transactionHandler.List)
	protected.GET("/transacciones/estadisticas", anyRole, transactionHandler.Stats)
	protected.GET("/transacciones/numero/:numero", anyRole, transactionHandler.GetByNumber)
	protected.GET("/transacciones/:id", anyRole, transactionHandler.Get)
	protected.GET("/transacciones/:id/recibo", anyRole, transactionHandler.Receipt)
	protected.POST("/transacciones", cashier, transactionHandler.RegisterPayment)
	protected.POST("/transacciones/pago-inscripcion", cashier, transactionHandler.RegisterEnrollmentPayment)
	protected.POST("/transacciones/:id/confirmar", cashier, transactionHandler.Confirm)
	protected.POST("/transacciones/:id/anular", adminOnly,
		middleware.Audit(userRepo, models.AuditActionAnnul, "transacciones"), transactionHandler.Annul)

	protected.GET("/conceptos-pago", anyRole, conceptHandler.List)
	protected.GET("/conceptos-pago/:id", anyRole, conceptHandler.Get)
	protected.POST("/conceptos-pago", adminOnly, conceptHandler.Create)
	protected.PUT("/conceptos-pago/:id", adminOnly, conceptHandler.Update)
	protected.DELETE("/conceptos-pago/:id", adminOnly, conceptHandler.Delete)

	protected.GET("/movimientos-caja", anyRole, cashMovementHandler.List)
	protected.GET("/movimientos-caja/cierre-diario", anyRole, cashMovementHandler.DailyClose)
	protected.GET("/movimientos-caja/totales", anyRole, cashMovementHandler.PeriodTotals)
	protected.POST("/movimientos-caja", cashier, cashMovementHandler.Register)

	if cfg.Invoices.Enabled {
		protected.GET("/facturas", anyRole, invoiceHandler.List)
		protected.GET("/facturas/:id", anyRole, invoiceHandler.Get)
		protected.GET("/transacciones/:id/factura", anyRole, invoiceHandler.GetByTransaction)
		protected.POST("/facturas", cashier, invoiceHandler.Issue)
	}

	protected.GET("/usuarios", adminOnly, userHandler.List)
	protected.GET("/usuarios/:id", middleware.RBAC(string(models.RoleAdministrador), middleware.SelfRole), userHandler.Get)
	protected.POST("/usuarios", adminOnly, userHandler.Create)
	protected.PUT("/usuarios/:id", adminOnly, userHandler.Update)
	protected.POST("/usuarios/:id/reset-password", adminOnly, userHandler.ResetPassword)
	protected.DELETE("/usuarios/:id", adminOnly, userHandler.Delete)
	protected.GET("/auditoria", adminOnly, userHandler.AuditTrail)

	protected.GET("/empresa", anyRole, companyHandler.Get)
	protected.PUT("/empresa", adminOnly,
		middleware.Audit(userRepo, models.AuditActionUpdate, "empresa"), companyHandler.Update)

	protected.GET("/configuracion", adminOnly, configurationHandler.List)
	protected.GET("/configuracion/:clave", adminOnly, configurationHandler.Get)
	protected.PUT("/configuracion/:clave", adminOnly,
		middleware.Audit(userRepo, models.AuditActionUpdate, "configuraciones"), configurationHandler.Update)

	protected.GET("/reportes/saldos", anyRole, reportHandler.Balance)
	protected.GET("/reportes/morosidad", anyRole, reportHandler.Delinquency)
	protected.GET("/reportes/mejores-pagadores", anyRole, reportHandler.TopPayers)
	protected.GET("/reportes/ingresos", anyRole, reportHandler.Income)
	protected.GET("/reportes/pagos-dia", anyRole, reportHandler.Daily)
	protected.POST("/reportes/exportar", enrolling, reportHandler.Export)
	protected.GET("/reportes/trabajos/:id", anyRole, reportHandler.JobStatus)

	if cfg.Dashboard.Enabled {
		protected.GET("/dashboard", anyRole, dashboardHandler.Metrics)
		protected.POST("/dashboard/refresh", adminOnly, dashboardHandler.Refresh)
	}

	protected.GET("/metricas", adminOnly, metricsHandler.Snapshot)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}

func registerDocumentRoutes(api *gin.RouterGroup, documentHandler *handler.DocumentHandler, authSvc *service.AuthService) {
	anyRole := middleware.RequireRoles(models.RoleAdministrador, models.RoleCoordinador, models.RoleCajero, models.RoleConsulta)
	cashier := middleware.RequireRoles(models.RoleAdministrador, models.RoleCajero)

	group := api.Group("", middleware.JWT(authSvc))
	group.POST("/documentos", cashier, documentHandler.Upload)
	group.GET("/documentos/:id/url", anyRole, documentHandler.DownloadURL)
	group.GET("/transacciones/:id/documentos", anyRole, documentHandler.ListByTransaction)
	group.DELETE("/documentos/:id", cashier, documentHandler.Delete)
}

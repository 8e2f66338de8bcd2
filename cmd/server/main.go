package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/rubberworks/queuegate/internal/config"
	"github.com/rubberworks/queuegate/internal/repository/mongodb"
	"github.com/rubberworks/queuegate/internal/repository/sheets"
	"github.com/rubberworks/queuegate/internal/scheduler"
	"github.com/rubberworks/queuegate/internal/server/handlers"
	"github.com/rubberworks/queuegate/internal/server/router"
	authsvc "github.com/rubberworks/queuegate/internal/service/auth"
	bookingsvc "github.com/rubberworks/queuegate/internal/service/bookings"
	reportingsvc "github.com/rubberworks/queuegate/internal/service/reporting"
	suppliersvc "github.com/rubberworks/queuegate/internal/service/suppliers"
	"github.com/rubberworks/queuegate/pkg/clients/backend"
	whatsappclient "github.com/rubberworks/queuegate/pkg/clients/whatsapp"
	"github.com/rubberworks/queuegate/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	location, _ := time.LoadLocation(cfg.Reporting.Timezone)

	upstream := backend.NewClient(cfg.Backend)

	sessionStore, err := authsvc.NewStore(ctx, cfg.Auth.KVURL)
	if err != nil {
		baseLogger.Fatal("failed to init session store", zap.Error(err))
	}
	if closer, ok := sessionStore.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
		baseLogger.Info("redis session store enabled")
	} else {
		baseLogger.Warn("KV_URL not set, sessions are kept in memory")
	}

	authService := authsvc.NewService(upstream, sessionStore, cfg.Auth.Secret, cfg.Auth.SessionTTL, baseLogger.Named("svc.auth"))
	bookingService := bookingsvc.NewService(upstream, bookingsvc.NewCache(cfg.Bookings.CacheEnabled), baseLogger.Named("svc.bookings"))
	supplierService := suppliersvc.NewService(upstream, baseLogger.Named("svc.suppliers"))

	reportOpts := reportingsvc.Options{Location: location}

	if cfg.MongoDB.Enabled() {
		mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		reportOpts.Store = mongoRepo
	} else {
		baseLogger.Warn("MONGODB_URI not set, daily reports are not persisted")
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		reportOpts.Sheet = sheetsRepo
	}

	if cfg.WhatsApp.Enabled() {
		reportOpts.Notifier = whatsappclient.NewClient(cfg.WhatsApp)
		reportOpts.Recipient = cfg.WhatsApp.ReportRecipient
		baseLogger.Info("whatsapp report notifications enabled")
	}

	reportingService := reportingsvc.NewService(bookingService, reportOpts, baseLogger.Named("svc.reporting"))

	engine := router.New(router.Dependencies{
		Sessions:      authService,
		AllowedOrigin: cfg.Auth.PublicURL,
		Auth:          handlers.NewAuthHandler(authService, cfg.Auth.PublicURL, baseLogger.Named("handlers.auth")),
		Bookings:      handlers.NewBookingHandler(bookingService, baseLogger.Named("handlers.bookings")),
		Suppliers:     handlers.NewSupplierHandler(supplierService, baseLogger.Named("handlers.suppliers")),
		Proxy:         handlers.NewProxyHandler(upstream, baseLogger.Named("handlers.proxy")),
		Reports:       handlers.NewReportHandler(reportingService, baseLogger.Named("handlers.reports")),
	}, baseLogger.Named("router"))

	if cfg.Reporting.ServiceEmail == "" {
		baseLogger.Warn("REPORT_SERVICE_EMAIL not set, scheduled reports call the backend without a token")
	}
	serviceLogin := authsvc.NewServiceLogin(authService, cfg.Reporting.ServiceEmail, cfg.Reporting.ServicePassword)

	sched := scheduler.NewScheduler(cfg.Reporting.CronSchedule, location, reportingService, serviceLogin, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("backend", cfg.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

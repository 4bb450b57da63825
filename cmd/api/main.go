package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/config"
	appHTTP "github.com/cmlabs-hris/payroll-engine-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/fieldcrypt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/storage"
	"github.com/cmlabs-hris/payroll-engine-go/internal/repository/postgresql"
	payrollService "github.com/cmlabs-hris/payroll-engine-go/internal/service/payroll"
	"github.com/cmlabs-hris/payroll-engine-go/migrations"
)

const version = "v1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("payroll engine stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})).
		With(slog.String("app", "payroll-engine"), slog.String("env", cfg.App.Env)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, migrations.FS); err != nil {
		return fmt.Errorf("error applying migrations: %w", err)
	}

	location, err := cfg.Location()
	if err != nil {
		return err
	}

	cipher, err := fieldcrypt.New(cfg.Crypto.DataKey)
	if err != nil {
		return fmt.Errorf("error loading DATA_ENCRYPTION_KEY: %w", err)
	}
	if !cipher.Configured() {
		slog.Warn("DATA_ENCRYPTION_KEY not set, bank fields are read as plain text")
	}

	archive, err := storage.NewLocalStorage(cfg.Storage.BasePath, cfg.Storage.BaseURL)
	if err != nil {
		return fmt.Errorf("error preparing file storage: %w", err)
	}

	repos := payrollService.Repositories{
		Configurations: postgresql.NewConfigurationRepository(db),
		Agreements:     postgresql.NewAgreementRepository(db),
		Benefits:       postgresql.NewBenefitRepository(db),
		Runs:           postgresql.NewRunRepository(db),
		Attendance:     postgresql.NewAttendanceRepository(db),
		Assignments:    postgresql.NewAssignmentRepository(db),
		Employees:      postgresql.NewEmployeeRepository(db),
		Audit:          postgresql.NewAuditRepository(db),
	}
	payrollSvc := payrollService.NewPayrollService(
		postgresql.NewTransactor(db, cfg.Payroll.TxRetries),
		repos,
		cipher,
		archive,
		payrollService.Options{Location: location, BatchSize: cfg.Payroll.BatchSize},
	)

	scheduler := cron.NewScheduler()
	if cfg.Payroll.AutoDraft {
		cron.NewPayrollJobs(payrollSvc, cfg.Payroll.SystemActorID, location, cfg.Payroll.AutoDraftInterval).RegisterJobs(scheduler)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	router := appHTTP.NewRouter(JWTService, appHTTP.NewPayrollHandler(payrollSvc), appHTTP.RouterOptions{
		Env:            cfg.App.Env,
		Version:        version,
		AllowedOrigins: cfg.App.CORSOrigins,
		LogLevel:       cfg.SlogLevel(),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", server.Addr, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

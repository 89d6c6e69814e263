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

	"github.com/cmlabs-hris/payroll-backend-go/internal/config"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/holiday"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/payroll-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/disbursement"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/payroll-backend-go/internal/service/attendance"
	holidayService "github.com/cmlabs-hris/payroll-backend-go/internal/service/holiday"
	payrollService "github.com/cmlabs-hris/payroll-backend-go/internal/service/payroll"
)

const version = "v1.0.0"

type repositories struct {
	payroll        payroll.PayrollRepository
	rates          payroll.RateRepository
	changeRequests payroll.ChangeRequestRepository
	attendance     attendance.AttendanceRepository
	holidays       holiday.HolidayRepository
	close          func()
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	repos, err := openRepositories(cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	if cfg.Payroll.SeedHolidays || cfg.StoreDriver == config.StoreDriverMemory {
		year := time.Now().In(loc).Year()
		if _, err := fixtures.SeedHolidays(context.Background(), repos.holidays, year, year+1); err != nil {
			return err
		}
	}

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	var dispatcher payroll.ReleaseDispatcher = disbursement.LogDispatcher{}
	if cfg.Disbursement.URL != "" {
		dispatcher = disbursement.NewClient(cfg.Disbursement.URL, cfg.Disbursement.Secret, cfg.Disbursement.Timeout)
	}

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return err
	}
	hub := sse.NewHub()

	holidaySvc := holidayService.NewHolidayService(repos.holidays)
	attendanceSvc := attendanceService.NewAttendanceService(repos.attendance, holidaySvc)
	contributions := payrollService.NewContributionCalculator(cfg.Payroll.EmployeeShareRatio)
	releaseScheduler := payrollService.NewReleaseScheduler(repos.payroll, dispatcher, locker, hub, loc)
	payrollSvc := payrollService.NewPayrollService(
		repos.payroll,
		repos.rates,
		repos.changeRequests,
		repos.attendance,
		contributions,
		releaseScheduler,
	)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Env:            cfg.App.Env,
			Version:        version,
			LogLevel:       level,
		},
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc),
		appHTTP.NewHolidayHandler(holidaySvc),
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewEventHandler(hub, JWTService),
	)

	scheduler := cron.NewScheduler()
	cron.NewReleaseJobs(releaseScheduler, cfg.Payroll.ReleaseInterval).RegisterJobs(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	// No write timeout: event streams stay open
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// Shutdown waits for idle connections; closing the hub ends open event streams
	server.RegisterOnShutdown(hub.Close)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "store", cfg.StoreDriver, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		slog.Info("Shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

func openRepositories(cfg *config.Config) (*repositories, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("Using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			payroll:        store.Payroll(),
			rates:          store.Rates(),
			changeRequests: store.ChangeRequests(),
			attendance:     store.Attendance(),
			holidays:       store.Holidays(),
			close:          func() {},
		}, nil
	}

	db, err := database.NewPostgreSQLDB(context.Background(), cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return &repositories{
		payroll:        postgresql.NewPayrollRepository(db),
		rates:          postgresql.NewRateRepository(db),
		changeRequests: postgresql.NewChangeRequestRepository(db),
		attendance:     postgresql.NewAttendanceRepository(db),
		holidays:       postgresql.NewHolidayRepository(db),
		close:          db.Close,
	}, nil
}

// newLocker returns the Redis locker when Redis is enabled so that replicas
// share release claims, and an in-process locker otherwise.
func newLocker(cfg *config.Config) (lock.Locker, func(), error) {
	if !cfg.Redis.Enabled {
		return lock.NewMemoryLocker(), func() {}, nil
	}

	client, err := lock.NewRedisClient(cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to redis: %w", err)
	}
	closeClient := func() {
		if err := client.Close(); err != nil {
			slog.Warn("Failed to close redis client", "error", err)
		}
	}
	return lock.NewRedisLocker(client, "payroll"), closeClient, nil
}

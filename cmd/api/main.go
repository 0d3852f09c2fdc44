package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	httpadp "loanledger/internal/adapter/http"
	"loanledger/internal/adapter/middleware"
	"loanledger/internal/adapter/repository/mysql"
	"loanledger/internal/config"
	"loanledger/internal/domain/loan"
	"loanledger/internal/infrastructure/cache"
	"loanledger/internal/infrastructure/db"
	"loanledger/internal/infrastructure/logging"
	"loanledger/internal/infrastructure/metrics"
	ucfactory "loanledger/internal/usecase/factory"
	ucloan "loanledger/internal/usecase/loan"
	"loanledger/internal/usecase/runner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	gdb, err := db.OpenGorm(cfg.MySQLDSN(), db.GormLogLevel(logging.ParseLevel(cfg.LogLevel) == zap.DebugLevel), lg)
	if err != nil {
		lg.Fatal("open mysql", zap.Error(err))
	}
	if err := mysql.AutoMigrate(gdb); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}

	rdb, err := cache.OpenRedis(context.Background(), cache.RedisOptions{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		lg.Fatal("open redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()

	m := metrics.Ledger()
	run := runner.New(cache.NewStreamPublisher(rdb, cfg.EventStream), lg, m)
	tx := mysql.NewGormUoW(gdb)

	var opts []loan.Option
	if cfg.EnforcePaymentTime {
		opts = append(opts, loan.WithPaymentTimeEnforced(nil))
	}
	fuc := ucfactory.NewUsecase(tx, cfg.Factory(), run)
	luc := ucloan.NewUsecase(tx, run, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deployed, err := fuc.Deploy(ctx, cfg.Deployer())
	if err != nil {
		lg.Fatal("deploy factory", zap.Error(err))
	}
	lg.Info("factory ready",
		zap.String("address", fuc.Address().Hex()),
		zap.Bool("deployed", deployed),
		zap.Bool("enforce_payment_time", cfg.EnforcePaymentTime),
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	e.HTTPErrorHandler = httpadp.ErrorHandler
	e.Use(
		echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}),
		echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
			LogMethod:    true,
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogRequestID: true,
			LogError:     true,
			LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
				fields := []zap.Field{
					zap.String("method", v.Method),
					zap.String("uri", v.URI),
					zap.Int("status", v.Status),
					zap.Duration("latency", v.Latency),
					zap.String("request_id", v.RequestID),
					zap.String("caller", middleware.CallerFrom(c).Hex()),
				}
				if v.Error != nil {
					fields = append(fields, zap.Error(v.Error))
				}
				if v.Status >= http.StatusInternalServerError {
					lg.Error("request", fields...)
					return nil
				}
				lg.Info("request", fields...)
				return nil
			},
		}),
		echomw.Recover(),
		middleware.RejectValue(),
		middleware.Caller(),
		middleware.IdempotencyMiddleware(rdb, cfg.IdempotencyTTL(), lg),
	)

	httpadp.Register(e, httpadp.NewHandler(m.Handler()), httpadp.NewFactoryHandler(fuc), httpadp.NewLoanHandler(luc))

	go func() {
		addr := ":" + cfg.AppPort
		lg.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", zap.Error(err))
	}
}

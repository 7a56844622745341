package main

import (
	"os"
	"strings"
	"time"

	"github.com/shiningsmiles/tuition-ledger/internal/config"
	"github.com/shiningsmiles/tuition-ledger/internal/handlers"
	"github.com/shiningsmiles/tuition-ledger/internal/identity"
	"github.com/shiningsmiles/tuition-ledger/internal/queue"
	"github.com/shiningsmiles/tuition-ledger/internal/repository"
	"github.com/shiningsmiles/tuition-ledger/internal/services"
	xhttp "github.com/shiningsmiles/tuition-ledger/pkg/http"
	"github.com/shiningsmiles/tuition-ledger/pkg/logger"
	"github.com/shiningsmiles/tuition-ledger/pkg/pg"
	"github.com/shiningsmiles/tuition-ledger/pkg/prom"
	"github.com/shiningsmiles/tuition-ledger/pkg/redis"
)

func main() {
	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := config.Get().AppEnv == "dev"
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	if err := prom.Create(config.Get().AppHost, config.Get().AppEnv, config.Get().PromNamespace); err != nil {
		logger.Error("failed creating metrics", "error", err)
		return
	}

	events := queue.NewPublisher(redisAdap, queue.PublisherConfig{
		Stream: config.Get().EventStreamName,
		MaxLen: config.Get().EventStreamMaxLen,
	})

	paymentRepo := repository.NewPaymentRepository(db)
	reconRepo := repository.NewReconciliationRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)

	sequencer := services.NewReceiptSequencer(paymentRepo, config.Get().ReceiptPrefix)
	ledger := services.NewPaymentService(paymentRepo, directoryRepo, directoryRepo, sequencer, events)
	recon := services.NewReconciliationService(reconRepo, paymentRepo, directoryRepo)
	reports := services.NewReportService(paymentRepo, directoryRepo, directoryRepo)

	resolver := identity.NewResolver(config.Get().JWTSecret)
	s.Use(handlers.AuthMiddleware(resolver))

	handlers.RegisterRoutes(s.Router,
		handlers.NewPaymentHandler(ledger),
		handlers.NewReconciliationHandler(recon),
		handlers.NewReportHandler(reports),
		handlers.NewHealthHandler(db, redisAdap),
	)

	s.CloseOnSignal()
	if err := s.ListenAndServe(config.Get().HttpListenAddr); err != nil {
		logger.Error("error in running http-server", "error", err)
	}
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}

package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jeongwonlab/possync/internal/config"
	"github.com/jeongwonlab/possync/internal/handlers"
	"github.com/jeongwonlab/possync/internal/processor"
	"github.com/jeongwonlab/possync/internal/queue"
	"github.com/jeongwonlab/possync/internal/repository"
	"github.com/jeongwonlab/possync/internal/services"
	"github.com/jeongwonlab/possync/internal/session"
	xhttp "github.com/jeongwonlab/possync/pkg/http"
	"github.com/jeongwonlab/possync/pkg/logger"
	"github.com/jeongwonlab/possync/pkg/pg"
	"github.com/jeongwonlab/possync/pkg/prom"
	"github.com/jeongwonlab/possync/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	// transport (tcp for now)
	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

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

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
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

	// publish side of the action stream; the consumers live in the
	// processor service below
	actionQueue, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:              config.Get().ActionQueueName,
		ConsumerGroup:     config.Get().ActionConsumerGroup,
		ConsumerName:      config.Get().ActionConsumerName + "-publisher",
		MaxRetries:        config.Get().ActionMaxRetries,
		VisibilityTimeout: config.Get().ActionVisibilityTimeout,
		PollInterval:      config.Get().ActionPollInterval,
		BatchSize:         config.Get().ActionBatchSize,
		MaxLen:            config.Get().ActionQueueMaxLen,
		EnableDLQ:         config.Get().ActionEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating action queue", "error", err)
		return
	}

	memberRepo := repository.NewMemberRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	giftCardRepo := repository.NewGiftCardRepository(db)
	terminalRepo := repository.NewTerminalRepository(db)

	registry := session.NewRegistry(session.NewRedisRemote(redisAdap))

	// services
	pairingService := services.NewPairingService(terminalRepo)
	giftCardService := services.NewGiftCardService(giftCardRepo)
	paymentService := services.NewPaymentService(memberRepo, transactionRepo, giftCardRepo, config.Get().StoreName)
	terminalService := services.NewTerminalService(
		registry,
		memberRepo,
		paymentService,
		giftCardService,
		config.Get().StoreName,
		config.Get().VatRatePercent,
		config.Get().SessionResetDelay,
	)

	// v1 handlers
	terminalHandler := handlers.NewTerminalHandler(terminalService)
	pairingHandler := handlers.NewPairingHandler(pairingService)
	giftCardHandler := handlers.NewGiftCardHandler(giftCardService)
	transactionHandler := handlers.NewTransactionHandler(paymentService)
	displayHandler := handlers.NewDisplayHandler(pairingService, terminalService, actionQueue)
	healthHandler := handlers.NewHealthHandler(nil)

	g := s.Router.Group("/api/v1")
	handlers.RegisterTerminalRoutes(g, terminalHandler)
	handlers.RegisterPairingRoutes(g, pairingHandler)
	handlers.RegisterGiftCardRoutes(g, giftCardHandler)
	handlers.RegisterTransactionRoutes(g, transactionHandler)
	handlers.RegisterDisplayRoutes(g, displayHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	// action pipeline: stream consumers feeding the terminal service
	idempotencyService := processor.NewIdempotencyService(redisAdap, processor.DefaultIdempotencyConfig())
	processorService, err := processor.NewService(redisAdap)
	if err != nil {
		logger.Error("failed to create action processor", "error", err)
		return
	}
	processorService.RegisterProcessor(processor.NewActionProcessor(
		terminalService,
		idempotencyService,
		processorService.Metrics(),
		config.Get().ActionFreshnessWindow,
	))

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(":9100", "/metrics")
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := processorService.Start(); err != nil {
			logger.Error("failed to start action processor", "error", err)
		}
	}()

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	select {
	case <-c:
		s.Shutdown()
		processorService.Stop()
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

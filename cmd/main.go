package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/SamyaDeb/FarmerShield/internal/config"
	"github.com/SamyaDeb/FarmerShield/internal/database/minio"
	"github.com/SamyaDeb/FarmerShield/internal/database/postgres"
	"github.com/SamyaDeb/FarmerShield/internal/database/redis"
	"github.com/SamyaDeb/FarmerShield/internal/engine"
	"github.com/SamyaDeb/FarmerShield/internal/event"
	"github.com/SamyaDeb/FarmerShield/internal/evidence"
	"github.com/SamyaDeb/FarmerShield/internal/handlers"
	"github.com/SamyaDeb/FarmerShield/internal/ledger"
	"github.com/SamyaDeb/FarmerShield/internal/repository"
	"github.com/SamyaDeb/FarmerShield/internal/services"
	"github.com/SamyaDeb/FarmerShield/internal/weather"
	"github.com/SamyaDeb/FarmerShield/internal/worker"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/farmershield", "log", "shield_service")
	fmt.Println("Log directory:", logDir)
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	slog.SetDefault(slog.New(slog.NewTextHandler(file, nil)))

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()
	log.Printf("Connecting to PostgreSQL with: host=%s, port=%s, user=%s, dbname=%s",
		cfg.PostgresCfg.Host, cfg.PostgresCfg.Port, cfg.PostgresCfg.Username, cfg.PostgresCfg.DBname)

	// Block until the database is reachable: everything below holds the handle,
	// so there is nothing useful to serve without it.
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}
	defer db.Close()

	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}
	defer redisClient.Close()

	// Event publishing and evidence archiving are best-effort collaborators:
	// the engine runs without them when the brokers are down.
	var notifier engine.ClaimNotifier
	var claimPublisher *event.ClaimPublisher
	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err != nil {
		log.Printf("error connect to RabbitMQ, claim events disabled: %s", err)
	} else {
		defer rabbitConn.Close()
		claimPublisher = event.NewClaimPublisher(rabbitConn)
		notifier = claimPublisher
	}

	var archiver engine.EvidenceArchiver
	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		log.Printf("error connect to MinIO, evidence archiving disabled: %s", err)
	} else {
		archiver = evidence.NewArchiver(minioClient)
	}

	// repositories
	claimRepository := repository.NewClaimRepository(db)
	farmerRepository := repository.NewFarmerRepository(db)
	policyRepository := repository.NewPolicyRepository(db)

	// external collaborators
	weatherClient := weather.NewClient(cfg.WeatherCfg)
	gatewayClient := ledger.NewGatewayClient(cfg.LedgerCfg)

	coordinator := engine.NewCoordinator(
		claimRepository,
		policyRepository,
		gatewayClient,
		redisClient,
		archiver,
		notifier,
		cfg.MonitorCfg.MaxTransferAttempts,
		cfg.MonitorCfg.LockTTL,
	)

	// services
	claimService := services.NewClaimService(claimRepository, farmerRepository, claimPublisher)
	farmerService := services.NewFarmerService(farmerRepository)
	monitorService := worker.NewMonitorService(farmerRepository, weatherClient, coordinator)

	// handlers
	claimHandler := handlers.NewClaimHandler(claimService)
	farmerHandler := handlers.NewFarmerHandler(farmerService)
	settlementHandler := handlers.NewSettlementHandler(farmerService, monitorService)

	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Shield service is healthy")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	claimHandler.Register(app)
	farmerHandler.Register(app)
	settlementHandler.Register(app)

	// background settlement loop
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var managerWg sync.WaitGroup
	pool := worker.NewWorkingPool(cfg.MonitorCfg.NumWorkers, cfg.MonitorCfg.QueueSize)
	managerWg.Add(1)
	go pool.Start(ctx, &managerWg)

	scheduler := worker.NewJobScheduler("settlement", cfg.MonitorCfg.Interval, pool, monitorService.RunCycle)
	go scheduler.Run(ctx)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting shield-service on port %s", cfg.Port)
		if err := app.Listen(fmt.Sprintf("0.0.0.0:%s", cfg.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	cancel()
	managerWg.Wait()

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}
}

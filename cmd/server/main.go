package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	httpapi "rentdesk-backend/internal/api/http"
	"rentdesk-backend/internal/config"
	"rentdesk-backend/internal/contractdoc"
	"rentdesk-backend/internal/esign"
	"rentdesk-backend/internal/jobs"
	"rentdesk-backend/internal/kafka"
	"rentdesk-backend/internal/logger"
	"rentdesk-backend/internal/payment"
	"rentdesk-backend/internal/redisx"
	"rentdesk-backend/internal/repository/postgres"
	"rentdesk-backend/internal/security"
	"rentdesk-backend/internal/service"
	"rentdesk-backend/internal/storage"
	"rentdesk-backend/internal/utils"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RentDesk Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "public_base_url", cfg.Server.PublicBaseURL)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx := context.Background()

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Firebase backs push notifications and, optionally, artifact storage
	var app *firebase.App
	if cfg.Firebase.CredentialsFile != "" {
		app, err = firebase.NewApp(ctx, &firebase.Config{
			ProjectID:     cfg.Firebase.ProjectID,
			StorageBucket: cfg.Storage.Bucket,
		}, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
		if err != nil {
			logger.Error("Failed to initialize firebase", "error", err)
			log.Fatalf("Failed to initialize firebase: %v", err)
		}
	}

	pushSvc := service.NopPushService()
	if app != nil {
		client, err := app.Messaging(ctx)
		if err != nil {
			logger.Error("Failed to initialize firebase messaging", "error", err)
			log.Fatalf("Failed to initialize firebase messaging: %v", err)
		}
		pushSvc = service.NewPushService(client)
		logger.Info("Push notifications enabled", "project", cfg.Firebase.ProjectID)
	}

	// Initialize Storage Service
	var artifacts storage.ArtifactStore
	switch cfg.Storage.Type {
	case "firebase":
		bucketStore, err := storage.NewFirebaseBucketStore(ctx, app, cfg.Storage.Bucket)
		if err != nil {
			logger.Error("Failed to initialize bucket storage", "error", err)
			log.Fatalf("Failed to initialize bucket storage: %v", err)
		}
		artifacts = bucketStore
		logger.Info("Using bucket storage", "bucket", cfg.Storage.Bucket)
	default:
		localStore, err := storage.NewLocalStore(cfg.Storage.UploadDir)
		if err != nil {
			logger.Error("Failed to initialize local storage", "error", err)
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		artifacts = localStore
		logger.Info("Using local storage", "upload_dir", cfg.Storage.UploadDir)
	}

	// Webhook dedup fast path; without redis the database alone keeps
	// deliveries idempotent
	var dedup service.Deduper
	if cfg.Redis.Addr != "" {
		rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		dedup = redisx.NewDedup(rdb, 0)
		logger.Info("Webhook dedup enabled", "redis", cfg.Redis.Addr)
	}

	var events service.EventPublisher = kafka.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.BufferSize)
		producer.Start()
		defer producer.WaitClosed()
		defer producer.Close()
		events = producer
		logger.Info("Lifecycle events enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// Integrations
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.StripeTimeout())
	signer := esign.NewClient(cfg.ESign.BaseURL, cfg.ESign.APIKey, cfg.ESignTimeout())
	renderer := contractdoc.NewPDFRenderer()
	fees := utils.NewFeeCalculator(cfg.Billing.ServiceFeeCents)

	// Initialize Services
	emailSvc := service.NewEmailService(
		cfg.SendGrid.APIKey,
		cfg.SendGrid.FromEmail,
		cfg.SendGrid.FromName,
		cfg.Server.PortalBaseURL,
		cfg.Billing.Currency,
	)
	noteSvc := service.NewNotificationService(store.NotificationRepository, pushSvc)
	checkoutSvc := service.NewCheckoutService(
		store.ReservationRepository,
		store.PaymentRepository,
		store.TeamRepository,
		store.CustomerRepository,
		gateway,
		fees,
		service.CheckoutConfig{Currency: cfg.Billing.Currency, PublicBaseURL: cfg.Server.PublicBaseURL},
	)
	portalSvc := service.NewPortalService(
		store.ReservationRepository,
		store.PaymentRepository,
		store.TeamRepository,
		store.CustomerRepository,
		store.VehicleRepository,
		checkoutSvc,
	)
	contractSvc := service.NewContractService(
		store.ReservationRepository,
		store.ContractRepository,
		store.TeamRepository,
		store.CustomerRepository,
		store.VehicleRepository,
		renderer,
		signer,
		artifacts,
		events,
		cfg.Billing.Currency,
	)
	reconcilerSvc := service.NewReconcilerService(
		store.ReservationRepository,
		store.PaymentRepository,
		store.ContractRepository,
		store.TeamRepository,
		store.CustomerRepository,
		gateway,
		signer,
		artifacts,
		contractSvc,
		noteSvc,
		emailSvc,
		events,
		dedup,
	)
	handoverSvc := service.NewHandoverService(store.ReservationRepository, events)

	jobRunner := jobs.NewJobRunner(store.ReminderRepository, emailSvc, cfg)

	// Initialize HTTP handlers
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())
	router := httpapi.NewRouter(httpapi.Handlers{
		Public:   httpapi.NewPublicHandler(portalSvc, reconcilerSvc),
		Webhooks: httpapi.NewWebhookHandler(gateway, reconcilerSvc, cfg.ESign.WebhookSecret),
		Staff:    httpapi.NewStaffHandler(handoverSvc, contractSvc, portalSvc, noteSvc),
		Photos:   httpapi.NewPhotoHandler(store.ReservationRepository, artifacts),
		Cron:     httpapi.NewCronHandler(jobRunner),
	}, tokenManager, cfg.Cron.Secret)

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// gRPC health endpoint for the orchestrator
	var grpcServer *grpc.Server
	if addr := cfg.GetGRPCAddress(); addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			logger.Error("Failed to listen", "error", err, "address", addr)
			log.Fatalf("Failed to listen: %v", err)
		}
		grpcServer = grpc.NewServer()
		healthSrv := health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, healthSrv)
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

		// Register reflection service for grpcurl
		reflection.Register(grpcServer)

		go func() {
			logger.Info("gRPC health server listening", "address", addr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("Failed to serve gRPC", "error", err)
			}
		}()
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutting down", "signal", fmt.Sprint(sig))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	logger.Info("Server stopped. Goodbye!")
}

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/config"
	"github.com/icancar/fleet-management-sub000/internal/delivery/http/handler"
	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	"github.com/icancar/fleet-management-sub000/internal/infrastructure/database/mongodb"
	"github.com/icancar/fleet-management-sub000/internal/infrastructure/database/postgres"
	"github.com/icancar/fleet-management-sub000/internal/infrastructure/messaging"
	"github.com/icancar/fleet-management-sub000/internal/ingestion"
	"github.com/icancar/fleet-management-sub000/internal/logger"
	"github.com/icancar/fleet-management-sub000/internal/routes"
	"github.com/icancar/fleet-management-sub000/internal/usecase/device"
	"github.com/icancar/fleet-management-sub000/internal/usecase/live"
	"github.com/icancar/fleet-management-sub000/internal/usecase/odometer"
	"github.com/icancar/fleet-management-sub000/internal/usecase/tracking"
	"github.com/icancar/fleet-management-sub000/internal/usecase/user"
	"github.com/icancar/fleet-management-sub000/internal/usecase/vehicle"
	pkgmqtt "github.com/icancar/fleet-management-sub000/pkg/mqtt"
)

const tokenCleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if env == "" {
		env = "development"
	}
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application", zap.String("environment", env))

	if cfg.Database.Host == "" || cfg.Database.DBName == "" {
		logger.Fatal("Database configuration is missing. Please set DB_HOST and DB_NAME environment variables.")
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is missing. Please set JWT_SECRET environment variable.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// closers run in reverse order on shutdown
	var closers []func() error

	db, err := postgres.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	closers = append(closers, db.Close)

	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(); err != nil {
			logger.Fatal("Failed to run database migrations", zap.Error(err))
		}
	}

	healthChecks := map[string]handler.Pinger{"postgres": db.Health}

	fixes, mongoClient, err := openFixStore(ctx, cfg, db)
	if err != nil {
		logger.Fatal("Failed to open location fix store", zap.Error(err))
	}
	if mongoClient != nil {
		closers = append(closers, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return mongoClient.Disconnect(shutdownCtx)
		})
		healthChecks["mongo"] = func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) }
	}

	userRepository := postgres.NewUserRepository(db)
	refreshTokenRepository := postgres.NewRefreshTokenRepository(db)
	deviceRepository := postgres.NewDeviceRepository(db)
	vehicleRepository := postgres.NewVehicleRepository(db)

	hub := live.NewHub(cfg.Live.SubscriberBuffer)
	closers = append(closers, func() error { hub.Close(); return nil })

	bus, closeBus, err := openLiveBus(cfg, hub)
	if err != nil {
		logger.Fatal("Failed to open live bus", zap.Error(err))
	}
	closers = append(closers, closeBus)

	integrator := odometer.NewIntegrator(fixes, vehicleRepository)

	var trackingOpts []tracking.Option
	if cfg.Tracking.RouteCache {
		trackingOpts = append(trackingOpts, tracking.WithRouteCache(cfg.Tracking.RouteCacheTTL))
	}
	trackingService := tracking.NewService(
		fixes,
		deviceRepository,
		vehicleRepository,
		userRepository,
		integrator,
		live.NewNotifier(bus),
		trackingOpts...,
	)

	userService := user.NewService(userRepository, refreshTokenRepository, cfg)
	if err := userService.EnsureAdmin(ctx, cfg.Admin); err != nil {
		logger.Fatal("Failed to seed administrator", zap.Error(err))
	}
	go userService.StartTokenCleanupJob(ctx, tokenCleanupInterval)

	deviceService := device.NewService(deviceRepository, userRepository)
	vehicleService := vehicle.NewService(vehicleRepository, userRepository, integrator)

	var metrics handler.MetricsSource
	if cfg.MQTT.Enabled {
		processor, mqttClient, err := startMQTTIngestion(cfg, trackingService)
		if err != nil {
			logger.Fatal("Failed to start MQTT ingestion", zap.Error(err))
		}
		metrics = processor
		closers = append(closers, func() error { processor.Stop(); return nil })
		closers = append(closers, func() error { mqttClient.Stop(); return nil })
		healthChecks["mqtt"] = mqttClient.Ping
	}

	router := routes.SetupRoutes(ctx, cfg, routes.Handlers{
		User:     handler.NewUserHandler(userService),
		Device:   handler.NewDeviceHandler(deviceService),
		Vehicle:  handler.NewVehicleHandler(vehicleService),
		Tracking: handler.NewTrackingHandler(trackingService, integrator, userRepository),
		Live:     handler.NewLiveHandler(bus, userRepository, cfg.Live.PingInterval, cfg.CORS.AllowedOrigins),
		Admin:    handler.NewAdminHandler(metrics, healthChecks),
	})

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Live streams stay open indefinitely, so writes are not time-boxed.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Close the hub first so open live streams return and Shutdown can drain.
	hub.Close()
	shutdownErr := server.Shutdown(shutdownCtx)
	for i := len(closers) - 1; i >= 0; i-- {
		shutdownErr = multierr.Append(shutdownErr, closers[i]())
	}

	if shutdownErr != nil {
		logger.Error("Shutdown completed with errors", zap.Errors("errors", multierr.Errors(shutdownErr)))
		return
	}
	logger.Info("Server exited properly")
}

// openFixStore returns the configured location fix repository. The mongo
// client is nil when fixes live in postgres.
func openFixStore(ctx context.Context, cfg *config.Config, db *postgres.DB) (location.Repository, *mongo.Client, error) {
	if cfg.Tracking.FixStore != "mongo" {
		return postgres.NewLocationRepository(db), nil, nil
	}

	client, err := mongodb.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, nil, err
	}

	repo := mongodb.NewLocationRepository(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
	if err := repo.EnsureIndexes(ctx); err != nil {
		return nil, nil, multierr.Append(err, client.Disconnect(context.Background()))
	}
	return repo, client, nil
}

func openLiveBus(cfg *config.Config, hub *live.Hub) (live.Bus, func() error, error) {
	if cfg.Live.Bus != "nats" {
		return hub, func() error { return nil }, nil
	}

	bus, err := messaging.NewNATSBus(cfg.Live.NATSURL, cfg.Live.SubjectPrefix, hub)
	if err != nil {
		return nil, nil, err
	}
	return bus, bus.Close, nil
}

func startMQTTIngestion(cfg *config.Config, ingester ingestion.Ingester) (*ingestion.Processor, *ingestion.MQTTIngestionClient, error) {
	processor := ingestion.NewProcessor(ingester, cfg.MQTT.Workers, cfg.MQTT.BufferSize)
	processor.Start()

	client, err := ingestion.NewMQTTIngestionClient(&ingestion.MQTTIngestionConfig{
		ClientConfig: &pkgmqtt.Config{
			Broker:               cfg.MQTT.Broker,
			ClientID:             cfg.MQTT.ClientID,
			Username:             cfg.MQTT.Username,
			Password:             cfg.MQTT.Password,
			CleanSession:         false,
			KeepAlive:            cfg.MQTT.KeepAlive,
			ConnectTimeout:       cfg.MQTT.ConnectTimeout,
			AutoReconnect:        true,
			MaxReconnectInterval: time.Minute,
		},
		LocationTopic: cfg.MQTT.LocationTopic,
		QoS:           cfg.MQTT.QoS,
	}, processor)
	if err != nil {
		processor.Stop()
		return nil, nil, err
	}
	if err := client.Start(); err != nil {
		processor.Stop()
		return nil, nil, err
	}
	return processor, client, nil
}

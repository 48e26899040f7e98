package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"order-tracking-service/internal/config"
	"order-tracking-service/internal/controller"
	"order-tracking-service/internal/job"
	"order-tracking-service/internal/logger"
	"order-tracking-service/internal/mapper"
	"order-tracking-service/internal/metrics"
	"order-tracking-service/internal/middleware"
	"order-tracking-service/internal/rabbit"
	"order-tracking-service/internal/reconcile"
	"order-tracking-service/internal/repository"
	"order-tracking-service/internal/service"
	"order-tracking-service/internal/shopify"
	"order-tracking-service/internal/status"
	"order-tracking-service/internal/tracking"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stdout"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("el servicio terminó con error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Conexión a MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("conectando a mongo: %w", err)
	}
	defer func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
	}()

	repo := repository.NewMongoOrderRepository(client.Database(cfg.MongoDBName))
	if err := repo.Ping(connectCtx); err != nil {
		return fmt.Errorf("mongo no responde: %w", err)
	}
	if err := repo.EnsureIndexes(connectCtx); err != nil {
		return fmt.Errorf("creando índices: %w", err)
	}

	// Sin registro de estados no se puede validar nada
	statuses := status.NewHolder(repo)
	reg, err := statuses.Reload(connectCtx)
	if err != nil {
		return fmt.Errorf("cargando registro de estados: %w", err)
	}
	log.Info("registro de estados cargado",
		zap.Int("product_codes", len(reg.ListCodes(status.KindProduct))),
		zap.Int("order_codes", len(reg.ListCodes(status.KindOrder))),
	)

	shop, err := shopify.NewClient(shopify.Config{
		StoreURL:    cfg.Shopify.StoreURL,
		AccessToken: cfg.Shopify.AccessToken,
		APIVersion:  cfg.Shopify.APIVersion,
		Timeout:     cfg.Shopify.Timeout,
		MaxRetries:  cfg.Shopify.MaxRetries,
	}, log)
	if err != nil {
		return fmt.Errorf("configurando shopify: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	orderMapper := mapper.New(mapper.Options{StoreHandle: cfg.Shopify.StoreURL, Locations: cfg.Shopify.Locations})
	syncService := service.NewSyncService(shop, orderMapper, reconcile.Default(), repo, statuses, log, service.SyncConfig{
		Lookback: cfg.Sync.Lookback,
		Metrics:  m,
	})

	opts := []service.Option{
		service.WithMetrics(m),
		service.WithConsolidationGate(service.ConsolidationGate(cfg.ConsolidationGate)),
	}

	// RabbitMQ es opcional
	if cfg.RabbitURL != "" {
		conn, err := rabbit.Dial(ctx, cfg.RabbitURL, log)
		if err != nil {
			return err
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("abriendo canal de rabbit: %w", err)
		}
		consumer := rabbit.NewOrderUpdateConsumer(syncService, log.Named("rabbit"))
		publisher, err := rabbit.Setup(ctx, ch, consumer, log.Named("rabbit"))
		if err != nil {
			return err
		}
		opts = append(opts, service.WithPublisher(publisher))
	} else {
		log.Info("RABBIT_URL vacío, mensajería deshabilitada")
	}

	orderService := service.NewOrderStatusService(repo, statuses, orderMapper, log.Named("orders"), opts...)

	scheduler := job.NewScheduler(log.Named("cron"), cfg.Sync.Timeout)
	if _, err := scheduler.Register(cfg.Sync.Cron, job.NewSyncJob(syncService)); err != nil {
		return err
	}
	scheduler.Start()

	var auth middleware.TokenValidator
	if cfg.AuthURL != "" {
		auth = service.NewAuthService(cfg.AuthURL, cfg.AuthTimeout, log.Named("auth"))
	}

	gin.SetMode(gin.ReleaseMode)
	router := controller.NewRouter(controller.RouterConfig{
		Orders:         controller.NewOrderController(orderService, syncService, log),
		Tracking:       controller.NewTrackingController(orderService, tracking.NewClient(tracking.Config{APIKey: cfg.Ship24.APIKey, BaseURL: cfg.Ship24.APIURL, Timeout: cfg.Ship24.Timeout}, log.Named("ship24")), log),
		Statuses:       controller.NewStatusController(statuses, repo, log),
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimiter:    middleware.NewRateLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window),
		Metrics:        m,
		MetricsHandler: metrics.Handler(prometheus.DefaultGatherer),
		Auth:           auth,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("servicio de seguimiento de órdenes escuchando", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("señal recibida, apagando")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("servidor http: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	// primero el cron, para que una sincronización en curso termine
	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("la sincronización en curso no terminó a tiempo")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("apagando http", zap.Error(err))
	}
	log.Info("servicio detenido")
	return nil
}

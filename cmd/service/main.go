package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"delegate-portal/config"
	"delegate-portal/internal/cache"
	"delegate-portal/internal/cart"
	"delegate-portal/internal/consumer"
	"delegate-portal/internal/payment"
	"delegate-portal/internal/producer"
	"delegate-portal/internal/reconcile"
	"delegate-portal/internal/repository"
	"delegate-portal/internal/router"
	"delegate-portal/internal/service"
	"delegate-portal/internal/token"
	"delegate-portal/pkg/database"
	"delegate-portal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Redis cache enabled")
	} else {
		log.Info("Redis cache disabled")
	}

	cartStore := newCartStore(cfg, redisClient, log)

	var catalog service.CatalogProvider = repos.Catalog
	if redisClient != nil {
		catalog = cache.NewCatalogCache(redisClient, repos.Catalog, cfg.CatalogCacheTTL, log)
	}

	events, closeEvents := newEventBus(cfg, log)
	defer closeEvents()

	orderSvc := service.NewOrderService(repos, catalog, events, log, service.OrderOptions{Reprice: cfg.CheckoutReprice})
	paymentSvc := service.NewPaymentService(
		repos,
		payment.NewPayHere(cfg.Payments.PayHereMerchantID, cfg.Payments.PayHereMerchantSecret),
		payment.NewCyberSource(cfg.Payments.CyberSourceSecretKey),
		events,
		log,
		service.PaymentOptions{DelegateFee: service.DelegateFee{
			Amount:   cfg.Payments.DelegateFeeAmount,
			Currency: cfg.Payments.DelegateFeeCurrency,
		}},
	)
	if !cfg.Payments.DelegateFeeAmount.IsPositive() {
		log.Warn("DELEGATE_FEE_AMOUNT not set; delegate fee notifications will be recorded but not applied")
	}
	walletSvc := service.NewWalletService(repos, events, log)
	userSvc := service.NewUserService(repos, log)

	tokens := token.NewHSProvider(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)

	r := router.Router(router.Deps{
		Orders:       orderSvc,
		Payments:     paymentSvc,
		Wallet:       walletSvc,
		CartStore:    cartStore,
		Tokens:       tokens,
		Users:        userSvc,
		AllowOrigins: cfg.AllowOrigins,
	}, log)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	var scheduler *reconcile.Scheduler
	if cfg.ReconcileInterval > 0 {
		scheduler = reconcile.NewScheduler(reconcile.NewWalletReconciler(repos.Wallets, log), cfg.ReconcileInterval, log)
		scheduler.Start(bgCtx)
	}

	if cfg.Events.UserTopic != "" && len(cfg.Events.KafkaBrokers) > 0 {
		users := consumer.NewKafkaUserConsumer(cfg.Events.KafkaBrokers, cfg.Events.KafkaGroupID, cfg.Events.UserTopic, userSvc, log)
		defer users.Close()
		go func() {
			if err := users.Run(bgCtx); err != nil {
				log.Error("user consumer stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down HTTP server...")

	if scheduler != nil {
		scheduler.Stop()
	}
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("HTTP server stopped gracefully")
}

func newCartStore(cfg *config.Config, redisClient *cache.RedisClient, log *zap.Logger) cart.Persister {
	switch cfg.Cart.Store {
	case "memory":
		return cart.NewMemoryStore()
	case "redis":
		if redisClient == nil {
			log.Fatal("CART_STORE=redis requires REDIS_ENABLED=true")
		}
		return cache.NewCartStore(redisClient, cfg.Cart.TTL)
	default:
		fs, err := cart.NewFileStore(cfg.Cart.Dir)
		if err != nil {
			log.Fatal("failed to open cart store", zap.Error(err))
		}
		return fs
	}
}

// newEventBus returns a nil bus when publishing is disabled.
func newEventBus(cfg *config.Config, log *zap.Logger) (service.EventBus, func()) {
	switch cfg.Events.Driver {
	case "kafka":
		if len(cfg.Events.KafkaBrokers) == 0 {
			log.Fatal("EVENTS_DRIVER=kafka requires KAFKA_BROKERS")
		}
		bus := producer.NewKafkaEventBus(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopicPrefix)
		log.Info("Kafka event bus enabled", zap.Strings("brokers", cfg.Events.KafkaBrokers))
		return bus, func() {
			if err := bus.Close(); err != nil {
				log.Warn("failed to close kafka writer", zap.Error(err))
			}
		}
	case "rabbitmq":
		bus, err := producer.NewRabbitEventBus(cfg.Events.RabbitURL, cfg.Events.RabbitExchange)
		if err != nil {
			log.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		log.Info("RabbitMQ event bus enabled", zap.String("exchange", cfg.Events.RabbitExchange))
		return bus, func() {
			if err := bus.Close(); err != nil {
				log.Warn("failed to close rabbitmq connection", zap.Error(err))
			}
		}
	default:
		log.Info("Event publishing disabled")
		return nil, func() {}
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/YelzhanWeb/lunchbox/internal/adapter/airtable"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/bank"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/cache"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/logger"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/memstore"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/noop"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/postgres"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/lunchbox/internal/adapter/records"
	"github.com/YelzhanWeb/lunchbox/internal/app/access"
	"github.com/YelzhanWeb/lunchbox/internal/app/kitchen"
	"github.com/YelzhanWeb/lunchbox/internal/app/menu"
	"github.com/YelzhanWeb/lunchbox/internal/app/order"
	"github.com/YelzhanWeb/lunchbox/internal/app/tracking"
	"github.com/YelzhanWeb/lunchbox/internal/config"
	"github.com/YelzhanWeb/lunchbox/internal/interfaces"
	"github.com/YelzhanWeb/lunchbox/internal/store"

	amqpAdapter "github.com/YelzhanWeb/lunchbox/internal/adapter/amqp"
	httpAdapter "github.com/YelzhanWeb/lunchbox/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "api", "Service mode: api, notification-subscriber, print-config")
	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *mode == "print-config" {
		out, err := cfg.YAML()
		if err != nil {
			log.Fatalf("Failed to render config: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	lgr := logger.New(*mode, logger.Options{File: cfg.App.LogFile, Level: cfg.App.LogLevel})
	ctx := context.Background()

	switch *mode {
	case "api":
		runAPI(ctx, cfg, lgr)

	case "notification-subscriber":
		runNotificationSubscriber(ctx, cfg, lgr)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

// repositories are the record store adapters shared by every mode.
type repositories struct {
	employees interfaces.EmployeeRepository
	orgs      interfaces.OrganizationRepository
	menu      interfaces.MenuRepository
	orders    interfaces.OrderRepository
	children  interfaces.ChildRepository
	requests  interfaces.RequestLogRepository
	payments  interfaces.PaymentRepository
}

func openStore(cfg *config.Config, lgr logger.Logger) store.RecordStore {
	if cfg.Store.Driver == config.StoreMemory {
		lgr.Warn("store_memory", "Using the in-memory record store, data is not persisted", "startup", nil)
		return memstore.New()
	}

	lgr.Info("store_configured", "Using the Airtable record store", "startup", map[string]interface{}{
		"base_url": cfg.Store.BaseURL,
		"base_id":  cfg.Store.BaseID,
	})
	return airtable.NewClient(cfg.Store, lgr)
}

func newRepositories(st store.RecordStore, cfg *config.Config) repositories {
	s := cfg.Schema
	return repositories{
		employees: records.NewEmployeeRepository(st, s.Employees),
		orgs:      records.NewOrganizationRepository(st, s.Organizations),
		menu:      records.NewMenuRepository(st, s.Menu),
		orders:    records.NewOrderRepository(st, s.Orders, cfg.Ordering.PageSize),
		children:  records.NewChildRepository(st, s.MealBoxes, s.OrderLines),
		requests:  records.NewRequestLogRepository(st, s.RequestLog),
		payments:  records.NewPaymentRepository(st, s.Payments, s.BankConfigs),
	}
}

func runAPI(ctx context.Context, cfg *config.Config, lgr logger.Logger) {
	repos := newRepositories(openStore(cfg, lgr), cfg)

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()

		repos.orgs = cache.NewOrganizationCache(repos.orgs, rdb, cfg.Redis.TTL, lgr)
		lgr.Info("redis_connected", "Organization cache enabled", "startup", map[string]interface{}{
			"addr": cfg.Redis.Addr,
			"ttl":  cfg.Redis.TTL.String(),
		})
	} else {
		lgr.Warn("redis_disabled", "Redis address empty, organization cache disabled", "startup", nil)
	}

	var audit interfaces.AuditRepository = noop.Audit{}
	if cfg.Database.Enabled() {
		db, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()

		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("Failed to prepare audit schema: %v", err)
		}
		audit = postgres.NewAuditRepository(db)

		lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
			"host": cfg.Database.Host,
			"db":   cfg.Database.Database,
		})
	} else {
		lgr.Warn("db_disabled", "Database host empty, order audit journal disabled", "startup", nil)
	}

	var publisher interfaces.EventPublisher = noop.Publisher{}
	if cfg.RabbitMQ.Enabled() {
		mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer mqConn.Close()

		publisher = rabbitmq.NewPublisher(mqConn, cfg.RabbitMQ)
		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host":     cfg.RabbitMQ.Host,
			"exchange": cfg.RabbitMQ.Exchange,
		})
	} else {
		lgr.Warn("rabbitmq_disabled", "RabbitMQ host empty, order events disabled", "startup", nil)
	}

	acc := access.NewService(repos.employees)

	orderService := order.NewService(order.Dependencies{
		Access:        acc,
		Employees:     repos.employees,
		Organizations: repos.orgs,
		Menu:          repos.menu,
		Orders:        repos.orders,
		Children:      repos.children,
		RequestLog:    repos.requests,
		Payments:      repos.payments,
		Bank:          bank.NewUnconfigured(),
		Publisher:     publisher,
		Audit:         audit,
	}, cfg.Ordering, lgr)
	menuService := menu.NewService(acc, repos.orgs, repos.menu, cfg.Ordering, lgr)
	kitchenService := kitchen.NewService(repos.orders, repos.children, repos.menu, lgr)
	trackingService := tracking.NewService(acc, repos.orders, repos.payments, audit, lgr)

	gin.SetMode(gin.ReleaseMode)
	router := httpAdapter.NewRouter(httpAdapter.Handlers{
		Orders:   httpAdapter.NewOrderHandler(orderService, lgr),
		Tracking: httpAdapter.NewTrackingHandler(trackingService, lgr),
		Catalog:  httpAdapter.NewCatalogHandler(menuService, kitchenService, lgr),
		Tokens:   httpAdapter.NewTokenHandler(cfg.Security),
	}, httpAdapter.NewAuthz(cfg.Security), lgr)

	server := &http.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Lunch API started on %s", cfg.App.HTTPAddr), "startup", map[string]interface{}{
		"addr":  cfg.App.HTTPAddr,
		"store": cfg.Store.Driver,
	})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down Lunch API", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger) {
	if !cfg.RabbitMQ.Enabled() {
		log.Fatal("rabbitmq.host is required for notification-subscriber mode")
	}

	repos := newRepositories(openStore(cfg, lgr), cfg)

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host":  cfg.RabbitMQ.Host,
		"queue": cfg.RabbitMQ.Queue,
	})

	consumer := rabbitmq.NewConsumer(mqConn, cfg.RabbitMQ, lgr)
	handler := amqpAdapter.NewNotificationHandler(repos.employees, amqpAdapter.NewLogNotifier(lgr), lgr)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lgr.Info("service_started", "Notification Subscriber started", "startup", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.ConsumeOrderEvents(ctx, handler.HandleOrderEvent); err != nil && !errors.Is(err, context.Canceled) {
			lgr.Error("consumer_error", "Error consuming order events", "runtime", nil, err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		lgr.Warn("shutdown_timeout", "Consumer did not stop in time", "shutdown", nil)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/unoapi-commander/internal/commander"
	"github.com/cuongbtq/unoapi-commander/internal/config"
	"github.com/cuongbtq/unoapi-commander/internal/configstore"
	"github.com/cuongbtq/unoapi-commander/internal/document"
	"github.com/cuongbtq/unoapi-commander/internal/outgoing"
	"github.com/cuongbtq/unoapi-commander/internal/queue"
	"github.com/cuongbtq/unoapi-commander/internal/template"
	"github.com/cuongbtq/unoapi-commander/internal/worker"
	"github.com/cuongbtq/unoapi-commander/shared/kafka"
	"github.com/cuongbtq/unoapi-commander/shared/logger"
	"github.com/cuongbtq/unoapi-commander/shared/postgresql"
	"github.com/cuongbtq/unoapi-commander/shared/rabbitmq"
	"github.com/cuongbtq/unoapi-commander/shared/redis"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("COMMANDER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/commander-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateCommanderConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting commander service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("queue", cfg.Commander.Queue),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Template overrides are optional; built-ins cover the unoapi templates
	var templateStore template.Store
	var dbClient *postgresql.Client
	if cfg.Database.Host != "" {
		dbClient, err = initPostgreSQL(ctx, &cfg.Database, appLogger.Component("postgresql"))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dbClient.Close()

		if cfg.Database.AutoMigrate {
			if err := dbClient.MigrateUp(cfg.Database.MigrationsPath, cfg.Database.Database); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		templateStore = template.NewStorage(dbClient.GetDB(), appLogger.Component("template_storage"))
	} else {
		appLogger.Warn("No database configured, serving built-in templates only")
	}

	redisClient, err := initRedis(ctx, &cfg.Redis, appLogger.Component("redis"))
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, cfg.Commander.Queue, appLogger.Component("rabbitmq"))
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	producer := queue.NewProducer(rabbitClient, appLogger.Component("producer"))

	sender, closeSender, err := initOutgoing(cfg, producer, appLogger.Component("outgoing"))
	if err != nil {
		return fmt.Errorf("failed to initialize outgoing sender: %w", err)
	}
	defer closeSender()

	store := configstore.NewRedisStore(redisClient.GetClient(), appLogger.Component("configstore"), configstore.Options{
		KeyPrefix:   cfg.Redis.KeyPrefix,
		TTL:         cfg.Redis.TTL,
		MaxAttempts: cfg.Redis.MaxAttempts,
	})

	cmd := commander.New(&commander.Config{
		Logger:   appLogger.Component("commander"),
		Renderer: template.NewService(templateStore, appLogger.Component("template")),
		Parser:   document.NewParser(),
		Store:    store,
		Queue:    producer,
		Outgoing: sender,
		Queues: commander.Queues{
			BulkParser: cfg.Commander.BulkParserQueue,
			BulkReport: cfg.Commander.BulkReportQueue,
			Reload:     cfg.Commander.ReloadQueue,
		},
	})

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Component("worker"),
		Broker:        rabbitClient,
		Handler:       cmd,
		QueueName:     cfg.Commander.Queue,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		JobTimeout:    cfg.Worker.JobTimeout,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Commander service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	cancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Commander service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		NoColor:      cfg.NoColor,
		TimeFormat:   time.RFC3339,
	})
}

// initPostgreSQL initializes the template database client
func initPostgreSQL(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	return postgresql.NewClient(ctx, &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
}

// initRedis initializes the config store connection
func initRedis(ctx context.Context, cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	return redis.NewClient(ctx, &redis.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		Database:     cfg.Database,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}, logger)
}

// initRabbitMQ initializes the RabbitMQ client consuming queueName
func initRabbitMQ(cfg *config.RabbitMQConfig, queueName string, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		ExchangeType:      cfg.ExchangeType,
		Durable:           cfg.Durable,
		AutoDelete:        cfg.AutoDelete,
		QueueName:         queueName,
		QueueExclusive:    cfg.Consumer.Exclusive,
		BindingKey:        cfg.BindingKey,
		PrefetchCount:     cfg.Consumer.PrefetchCount,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
	}, logger)
}

// initOutgoing picks the acknowledgment transport. The returned func
// releases whatever the transport opened.
func initOutgoing(cfg *config.Config, producer *queue.Producer, logger *slog.Logger) (commander.Sender, func(), error) {
	switch cfg.Outgoing.Transport {
	case config.TransportKafka:
		writer, err := kafka.NewWriter(&kafka.Config{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			RequiredAcks: cfg.Kafka.RequiredAcks,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		closeWriter := func() {
			if err := writer.Close(); err != nil {
				logger.Error("Failed to close Kafka writer", slog.Any("error", err))
			}
		}
		return outgoing.NewKafkaSender(writer, logger), closeWriter, nil
	default:
		return outgoing.NewQueueSender(producer, cfg.Outgoing.Queue, logger), func() {}, nil
	}
}

package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	VHost             string
	ExchangeType      string
	Durable           bool
	AutoDelete        bool
	QueueName         string
	QueueExclusive    bool
	BindingKey        string
	PrefetchCount     int
	RetryAttempts     int
	RetryInterval     time.Duration
	Heartbeat         time.Duration
	ConnectionTimeout time.Duration
}

// PublishBindingKey binds queues declared by a publisher to every routing
// key on their exchange
const PublishBindingKey = "#"

// channel is the subset of *amqp.Channel the client drives
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Ack(tag uint64, multiple bool) error
	Nack(tag uint64, multiple, requeue bool) error
	Close() error
}

// Client represents a RabbitMQ client. Every queue name doubles as the name
// of the topic exchange jobs are published to, so producers only need the
// queue name and a routing key. The first publish to a name declares the
// exchange and a durable queue of the same name bound with "#", so jobs
// are kept until their consumer starts.
type Client struct {
	config      *Config
	conn        *amqp.Connection
	channel     channel
	logger      *slog.Logger
	closeChan   chan *amqp.Error
	isConnected bool

	mu       sync.Mutex
	declared map[string]bool
}

// NewClient creates a new RabbitMQ client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config:      config,
		logger:      logger,
		closeChan:   make(chan *amqp.Error),
		isConnected: false,
		declared:    make(map[string]bool),
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		c.conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			c.logger.Info("Successfully connected to RabbitMQ")
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	ch, err := c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}
	c.channel = ch

	if c.config.QueueName != "" {
		if err := c.setup(); err != nil {
			c.channel.Close()
			c.conn.Close()
			return fmt.Errorf("failed to setup exchange and queue: %w", err)
		}
	}

	c.closeChan = make(chan *amqp.Error, 1)
	ch.NotifyClose(c.closeChan)
	c.isConnected = true

	go c.watchClose()

	c.logger.Info("RabbitMQ client initialized",
		slog.String("queue", c.config.QueueName),
		slog.String("exchange_type", c.config.ExchangeType),
	)

	return nil
}

// watchClose marks the client disconnected when the broker closes the channel
func (c *Client) watchClose() {
	amqpErr, ok := <-c.closeChan
	if !ok {
		return
	}
	c.mu.Lock()
	c.isConnected = false
	c.mu.Unlock()
	c.logger.Error("RabbitMQ channel closed",
		slog.String("reason", amqpErr.Reason),
		slog.Int("code", amqpErr.Code),
	)
}

// setup declares the consumed queue, its exchange and the binding
func (c *Client) setup() error {
	if err := c.declareRoute(c.config.QueueName, c.config.QueueExclusive, c.config.BindingKey); err != nil {
		return err
	}
	c.declared[c.config.QueueName] = true
	return nil
}

// ensureRoute declares the exchange and queue for name on first use.
// Callers hold c.mu.
func (c *Client) ensureRoute(name string) error {
	if c.declared[name] {
		return nil
	}
	if err := c.declareRoute(name, false, PublishBindingKey); err != nil {
		return err
	}
	c.declared[name] = true
	return nil
}

// declareRoute declares the exchange name, a queue of the same name and the
// binding between them
func (c *Client) declareRoute(name string, exclusive bool, bindingKey string) error {
	if err := c.declareExchange(name); err != nil {
		return err
	}

	_, err := c.channel.QueueDeclare(
		name,                // name
		c.config.Durable,    // durable
		c.config.AutoDelete, // auto-delete
		exclusive,           // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	err = c.channel.QueueBind(
		name,       // queue name
		bindingKey, // binding key
		name,       // exchange
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", name, err)
	}

	return nil
}

func (c *Client) declareExchange(name string) error {
	err := c.channel.ExchangeDeclare(
		name,                  // name
		c.config.ExchangeType, // type
		c.config.Durable,      // durable
		c.config.AutoDelete,   // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", name, err)
	}
	return nil
}

// Publish publishes body to the exchange named after queue
func (c *Client) Publish(ctx context.Context, queue, routingKey string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	if err := c.ensureRoute(queue); err != nil {
		return err
	}

	err := c.channel.PublishWithContext(
		ctx,
		queue,      // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)

	if err != nil {
		c.logger.Error("Failed to publish message to RabbitMQ",
			slog.String("queue", queue),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.String("queue", queue),
		slog.String("routing_key", routingKey),
		slog.Int("body_size", len(body)),
	)

	return nil
}

// Qos limits the number of unacknowledged deliveries per consumer
func (c *Client) Qos(prefetchCount int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.channel.Qos(prefetchCount, 0, false)
}

// Consume starts consuming messages from the configured queue
func (c *Client) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return nil, fmt.Errorf("not connected to RabbitMQ")
	}

	messages, err := c.channel.Consume(
		c.config.QueueName, // queue
		consumerTag,        // consumer tag
		false,              // auto-ack
		false,              // exclusive
		false,              // no-local
		false,              // no-wait
		nil,                // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	c.logger.Info("Started consuming messages from RabbitMQ",
		slog.String("queue", c.config.QueueName),
		slog.String("consumer_tag", consumerTag),
	)

	return messages, nil
}

// Ack acknowledges a single delivery
func (c *Client) Ack(deliveryTag uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.channel.Ack(deliveryTag, false)
}

// Nack rejects a single delivery
func (c *Client) Nack(deliveryTag uint64, requeue bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.channel.Nack(deliveryTag, false, requeue)
}

// Close closes the RabbitMQ connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	c.mu.Lock()
	c.isConnected = false
	c.mu.Unlock()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}

// HealthCheck reports an error when the broker connection is down
func (c *Client) HealthCheck(_ context.Context) error {
	if !c.IsConnected() {
		return errors.New("not connected to RabbitMQ")
	}
	return nil
}

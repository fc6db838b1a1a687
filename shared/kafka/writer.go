package kafka

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers      []string
	Topic        string
	RequiredAcks int
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// NewWriter creates a synchronous writer keyed by message key, so all
// messages of an account land on the same partition
func NewWriter(config *Config, logger *slog.Logger) (*kafkago.Writer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	batchTimeout := config.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	logger.Info("Creating Kafka writer",
		slog.String("brokers", strings.Join(config.Brokers, ",")),
		slog.String("topic", config.Topic),
	)

	return &kafkago.Writer{
		Addr:         kafkago.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequiredAcks(config.RequiredAcks),
		Async:        false,
		BatchTimeout: batchTimeout,
		WriteTimeout: config.WriteTimeout,
	}, nil
}

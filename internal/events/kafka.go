package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	apperrors "github.com/codehound/hound-search/internal/pkg/errors"
)

// Topic carrying search audit events.
const Topic = "search.audit"

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Version  string
	Timeout  time.Duration
}

// KafkaPublisher publishes audit events to a Kafka topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
}

// NewKafkaPublisher connects a synchronous Kafka producer.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "kafka brokers cannot be empty")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "hound-search-events"
	}
	if cfg.Version == "" {
		cfg.Version = "2.8.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	version, err := sarama.ParseKafkaVersion(cfg.Version)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid kafka version", err)
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Version = version
	kafkaConfig.ClientID = cfg.ClientID
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Net.DialTimeout = cfg.Timeout
	kafkaConfig.Net.WriteTimeout = cfg.Timeout

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "creating kafka producer", err)
	}

	return &KafkaPublisher{producer: producer}, nil
}

// Publish implements Publisher. The fingerprint partitions the topic so
// events for one query land in order.
func (p *KafkaPublisher) Publish(_ context.Context, event Event) error {
	event = Stamp(event)

	data, err := json.Marshal(event)
	if err != nil {
		return apperrors.InternalError("marshaling audit event", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: Topic,
		Key:   sarama.StringEncoder(event.Fingerprint),
		Value: sarama.ByteEncoder(data),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "publishing audit event", err)
	}
	return nil
}

// Close shuts the producer down.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

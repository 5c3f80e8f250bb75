package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ackTimeout bounds how long Publish waits for broker acknowledgment.
const ackTimeout = 10 * time.Second

type KafkaQueue struct {
	producer *kafka.Producer
	consumer *kafka.Consumer
	topic    string
	logger   zerolog.Logger
}

// NewKafkaQueue connects a producer and a consumer to the given brokers.
// The producer asks for acknowledgment from all in-sync replicas and
// retries the transport up to 3 times before a send is reported failed.
func NewKafkaQueue(brokers, topic, groupID string) (*KafkaQueue, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
		"retries":           3,
		"batch.size":        16384,
		"linger.ms":         5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"group.id":          groupID,
		"auto.offset.reset": "latest",
	})
	if err != nil {
		producer.Close()
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &KafkaQueue{
		producer: producer,
		consumer: consumer,
		topic:    topic,
		logger:   log.With().Str("component", "kafka").Logger(),
	}, nil
}

// Publish sends data to the topic keyed by key and waits for the broker
// acknowledgment, bounded by ackTimeout. A delivery error, a timeout or
// context cancellation is returned as an error; the caller decides
// whether that is fatal.
func (k *KafkaQueue) Publish(ctx context.Context, key string, data []byte) error {
	deliveryChan := make(chan kafka.Event, 1)

	err := k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &k.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(key),
		Value: data,
	}, deliveryChan)
	if err != nil {
		return err
	}

	timer := time.NewTimer(ackTimeout)
	defer timer.Stop()

	select {
	case e := <-deliveryChan:
		if msg, ok := e.(*kafka.Message); ok {
			if msg.TopicPartition.Error != nil {
				return msg.TopicPartition.Error
			}
			k.logger.Debug().
				Str("topic", k.topic).
				Int32("partition", msg.TopicPartition.Partition).
				Str("offset", msg.TopicPartition.Offset.String()).
				Msg("event delivered")
		}
	case <-timer.C:
		return fmt.Errorf("timed out waiting for delivery ack after %v", ackTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// Consume subscribes to the topic and polls until the context is
// cancelled. Handler errors are logged and the loop keeps going.
func (k *KafkaQueue) Consume(ctx context.Context, handler func([]byte) error) error {
	if err := k.consumer.Subscribe(k.topic, nil); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := k.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				if kerr, ok := err.(kafka.Error); ok && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				return err
			}

			if err = handler(msg.Value); err != nil {
				k.logger.Error().Err(err).Msg("error processing message")
			}
		}
	}
}

func (k *KafkaQueue) Close() error {
	k.producer.Close()
	return k.consumer.Close()
}

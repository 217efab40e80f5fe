package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ms-badging/internal/logger"
	"ms-badging/internal/models"

	"github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RegistrationHandler turns one registration into a badge.
type RegistrationHandler func(ctx context.Context, reg models.RegistrationEvent) error

type Consumer struct {
	reader messageReader
	topic  string
	Logger *logger.Logger
}

// NewConsumer creates a Kafka consumer for the given topic and group
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, topic: topic, Logger: log}
}

// Start consumes until ctx is cancelled. Messages that cannot be decoded or
// handled are logged and committed so one bad record cannot stall the group.
func (c *Consumer) Start(ctx context.Context, handler RegistrationHandler) error {
	c.Logger.LogProcess("REGISTRATION_CONSUMER", fmt.Sprintf("started on %s", c.topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.Logger.LogProcess("REGISTRATION_CONSUMER", "stopped")
				return nil
			}
			c.Logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			return err
		}

		var reg models.RegistrationEvent
		if err := json.Unmarshal(msg.Value, &reg); err != nil {
			c.Logger.Warn("KAFKA", fmt.Sprintf("Failed to unmarshal registration at offset %d: %v", msg.Offset, err))
		} else if err := handler(ctx, reg); err != nil {
			c.Logger.Error("KAFKA", fmt.Sprintf("Failed to issue badge for participant %s: %v", reg.ParticipantID, err))
		} else {
			c.Logger.LogKafka("CONSUME", msg.Topic, reg.ParticipantID)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.Logger.Error("KAFKA", fmt.Sprintf("Failed to commit offset %d: %v", msg.Offset, err))
		}
	}
}

// Close gracefully shuts down the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-badging/internal/logger"
	"ms-badging/internal/models"

	"github.com/segmentio/kafka-go"
)

type Topics struct {
	BadgeIssued      string
	CheckIns         string
	BadgeDeactivated string
	Registrations    string
}

func DefaultTopics() Topics {
	return Topics{
		BadgeIssued:      "badges.issued",
		CheckIns:         "badges.checkins",
		BadgeDeactivated: "badges.deactivated",
		Registrations:    "registrations.created",
	}
}

// Produced lists the topics this service writes to.
func (t Topics) Produced() []string {
	return []string{t.BadgeIssued, t.CheckIns, t.BadgeDeactivated}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer messageWriter
	Topics Topics
	Logger *logger.Logger
}

// CheckInMessage is the value published on the check-ins topic.
type CheckInMessage struct {
	BadgeID         string                 `json:"badge_id"`
	Name            string                 `json:"name"`
	ParticipantType models.ParticipantType `json:"participant_type"`
	Event           models.CheckInEvent    `json:"event"`
}

type DeactivationMessage struct {
	Badge         models.Badge `json:"badge"`
	Reason        string       `json:"reason"`
	DeactivatedAt time.Time    `json:"deactivated_at"`
}

func NewProducer(brokers []string, topics Topics, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// Publish writes value as JSON, keyed so all events of one badge stay ordered
// on one partition.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, key)
	return nil
}

func (p *Producer) PublishBadgeIssued(ctx context.Context, badge models.Badge) error {
	return p.Publish(ctx, p.Topics.BadgeIssued, badge.BadgeID, badge)
}

func (p *Producer) PublishCheckIn(ctx context.Context, badge models.Badge, event models.CheckInEvent) error {
	return p.Publish(ctx, p.Topics.CheckIns, badge.BadgeID, CheckInMessage{
		BadgeID:         badge.BadgeID,
		Name:            badge.Name,
		ParticipantType: badge.ParticipantType,
		Event:           event,
	})
}

func (p *Producer) PublishBadgeDeactivated(ctx context.Context, badge models.Badge, reason string) error {
	return p.Publish(ctx, p.Topics.BadgeDeactivated, badge.BadgeID, DeactivationMessage{
		Badge:         badge,
		Reason:        reason,
		DeactivatedAt: time.Now(),
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"ms-allocation/internal/config"
	"ms-allocation/internal/logger"
	"ms-allocation/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer streams claim lifecycle events. The writer carries no fixed topic
// so one connection pool serves every claim topic.
type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
	now    func() time.Time
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newProducer(writer, topics, log)
}

func newProducer(w MessageWriter, topics config.TopicConfig, log *logger.Logger) *Producer {
	return &Producer{Writer: w, Topics: topics, Logger: log, now: time.Now}
}

// PublishClaimBooked streams the booking of a claim to Kafka
func (p *Producer) PublishClaimBooked(ctx context.Context, claim models.Claim) error {
	return p.publish(ctx, p.Topics.ClaimBooked, claim)
}

// PublishClaimCancelled streams the cancellation of a claim to Kafka
func (p *Producer) PublishClaimCancelled(ctx context.Context, claim models.Claim) error {
	return p.publish(ctx, p.Topics.ClaimCancelled, claim)
}

// publish keys messages by event id so a consumer sees one event's claims in order.
func (p *Producer) publish(ctx context.Context, topic string, claim models.Claim) error {
	msgBytes, err := json.Marshal(models.NewClaimEvent(claim, p.now()))
	if err != nil {
		return fmt.Errorf("marshal claim %d: %w", claim.ID, err)
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(claim.EventID, 10)),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("claim %d (%s)", claim.ID, claim.State))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

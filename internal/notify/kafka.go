package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"mention-token-bot/internal/domain"
)

// LaunchPublisher emits launch events for downstream consumers.
type LaunchPublisher interface {
	PublishLaunch(ctx context.Context, l *domain.Launch) error
}

// NopLaunchPublisher drops events. Used when no broker is configured.
type NopLaunchPublisher struct{}

// PublishLaunch does nothing.
func (NopLaunchPublisher) PublishLaunch(context.Context, *domain.Launch) error { return nil }

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LaunchEvent is the JSON payload written to the launches topic.
type LaunchEvent struct {
	LaunchID        string `json:"launch_id"`
	MentionID       string `json:"mention_id"`
	PostID          string `json:"post_id"`
	SourceURL       string `json:"source_url"`
	SourceUser      string `json:"source_user"`
	TokenName       string `json:"token_name"`
	TokenSymbol     string `json:"token_symbol"`
	TokenAddress    string `json:"token_address"`
	TransactionHash string `json:"tx_hash"`
	BlockNumber     uint64 `json:"block_number"`
	CreatedAt       int64  `json:"created_at"`
}

// KafkaLaunchPublisher publishes launch events keyed by source URL.
type KafkaLaunchPublisher struct {
	writer messageWriter
	Topic  string
}

// NewKafkaLaunchPublisher creates a publisher writing to topic on brokers.
func NewKafkaLaunchPublisher(brokers []string, topic string) *KafkaLaunchPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaLaunchPublisher{writer: writer, Topic: topic}
}

// PublishLaunch writes one event for l.
func (p *KafkaLaunchPublisher) PublishLaunch(ctx context.Context, l *domain.Launch) error {
	value, err := json.Marshal(LaunchEvent{
		LaunchID:        l.LaunchID,
		MentionID:       l.MentionID,
		PostID:          l.PostID,
		SourceURL:       l.SourceURL,
		SourceUser:      l.SourceUser,
		TokenName:       l.TokenName,
		TokenSymbol:     l.TokenSymbol,
		TokenAddress:    l.TokenAddress,
		TransactionHash: l.TransactionHash,
		BlockNumber:     l.BlockNumber,
		CreatedAt:       l.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal launch event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(l.SourceURL),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaLaunchPublisher) Close() error {
	return p.writer.Close()
}

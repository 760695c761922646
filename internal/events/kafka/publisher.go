// Package kafka forwards the saga's terminal facts to a Kafka topic so
// out-of-process consumers (audit, notifications) can react without touching
// the in-process bus.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"sigil/internal/events"
	"sigil/internal/registration"
)

// Publisher bridges bus facts onto a Kafka topic. Only terminal facts cross
// the process boundary; commands stay in-process.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, res.Err)
		}
	}
	return nil
}

// Register binds the publisher to the terminal fact names.
func (p *Publisher) Register(bus *events.Bus) {
	bus.Subscribe(registration.EventProfileCreationFailed, p.forward)
	bus.Subscribe(registration.EventAuthUserDeleted, p.forward)
}

// envelope is the wire form of a forwarded fact.
type envelope struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
	AuthID     string    `json:"auth_id"`
	ProfileID  string    `json:"profile_id"`
	Reason     string    `json:"reason,omitempty"`
}

func (p *Publisher) forward(ctx context.Context, msg events.Message) error {
	env := envelope{
		Name:       msg.MessageName(),
		OccurredAt: time.Now().UTC(),
	}
	switch fact := msg.(type) {
	case registration.ProfileCreationFailed:
		env.AuthID = fact.AuthID.String()
		env.ProfileID = fact.ProfileID.String()
		env.Reason = fact.Reason
	case registration.AuthUserDeleted:
		env.AuthID = fact.AuthID.String()
		env.ProfileID = fact.ProfileID.String()
	default:
		return fmt.Errorf("unexpected message type %T for %s", msg, msg.MessageName())
	}

	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Name, err)
	}

	record := &kgo.Record{
		// Keyed by auth id so facts about one account stay ordered.
		Key:   []byte(env.AuthID),
		Value: value,
		Topic: p.topic,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", env.Name, err)
	}

	p.logger.Debug("fact forwarded to kafka", "name", env.Name, "auth_id", env.AuthID)
	return nil
}

// Close flushes buffered records and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}

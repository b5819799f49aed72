// Package kafka publishes audit events to a Kafka topic. The topic is the
// durable audit trail; the registry only produces, consumers (indexers,
// compliance tooling) live downstream.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"registrar/pkg/domain"
	audit "registrar/pkg/platform/audit"
	"registrar/pkg/platform/sentinel"
)

// Store implements audit.Store by producing events to Kafka. Events for the
// same owner share a partition key, so per-owner ordering is preserved.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Store, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, resp.Err)
	}

	return &Store{client: client, topic: topic}, nil
}

// Append produces one event synchronously. A failed produce surfaces to the
// publisher; in async mode the event is dropped after the bounded timeout
// rather than blocking the registry's write path forever.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.Owner),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByOwner is not served from Kafka; the topic is write-only from the
// registry's side. Readers consume the topic directly.
func (s *Store) ListByOwner(context.Context, domain.OwnerAddress) ([]audit.Event, error) {
	return nil, fmt.Errorf("audit events are consumed from kafka, not listed: %w", sentinel.ErrUnavailable)
}

// Close flushes buffered records and releases the client.
func (s *Store) Close() {
	s.client.Close()
}

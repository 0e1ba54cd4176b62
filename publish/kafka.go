package publish

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"chanscribe/types"
)

// TranscriptReady is the event handed to the embedding/indexing consumer
// once a transcript is durably stored.
type TranscriptReady struct {
	VideoID       string               `json:"video_id"`
	TranscriptKey string               `json:"transcript_key"`
	SegmentCount  int                  `json:"segment_count"`
	Coverage      types.CoverageReport `json:"coverage"`
	GeneratedAt   time.Time            `json:"generated_at"`
}

// Publisher announces finished transcripts on a Kafka topic.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher creates a synchronous producer. Acks from all replicas
// are required so a published event is as durable as the transcript.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &Publisher{producer: producer, topic: topic}, nil
}

// TranscriptReady publishes one event, keyed by video id so per-video
// ordering is preserved across partitions.
func (p *Publisher) TranscriptReady(event TranscriptReady) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.VideoID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to publish transcript event for %s: %w", event.VideoID, err)
	}
	return nil
}

// Close shuts down the producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/imageresizer/internal/config"
	"github.com/yokitheyo/imageresizer/internal/domain"
	"github.com/yokitheyo/imageresizer/internal/dto"
)

type Producer struct {
	client *wbfkafka.Producer
	topic  string
}

// NewPublisher returns a Kafka producer when events are enabled and a
// publisher that drops every event otherwise.
func NewPublisher(cfg *config.KafkaConfig) domain.EventPublisher {
	if !cfg.Enabled {
		zlog.Logger.Info().Msg("Kafka events disabled")
		return noopPublisher{}
	}
	return NewProducer(cfg)
}

// NewProducer создаёт Kafka producer через wbf.
func NewProducer(cfg *config.KafkaConfig) *Producer {
	client := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)
	zlog.Logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka producer initialized (wbf)")
	return &Producer{
		client: client,
		topic:  cfg.Topic,
	}
}

// PublishStored sends a single message keyed by image id. No retries.
func (p *Producer) PublishStored(ctx context.Context, image *domain.StoredImage) error {
	data, err := json.Marshal(dto.MapImageToStoredEvent(image))
	if err != nil {
		zlog.Logger.Error().Err(err).Str("image_id", image.ID).Msg("Failed to marshal event")
		return fmt.Errorf("marshal stored event: %w", err)
	}
	if err := p.client.Send(ctx, []byte(image.ID), data); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("image_id", image.ID).
			Str("topic", p.topic).
			Msg("Failed to send Kafka message")
		return fmt.Errorf("send stored event: %w", err)
	}
	zlog.Logger.Info().
		Str("image_id", image.ID).
		Str("topic", p.topic).
		Msg("Stored event sent to Kafka")
	return nil
}

// Close закрывает продюсер.
func (p *Producer) Close() error {
	if err := p.client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to close Kafka producer")
		return err
	}
	zlog.Logger.Info().Msg("Kafka producer closed successfully")
	return nil
}

type noopPublisher struct{}

func (noopPublisher) PublishStored(context.Context, *domain.StoredImage) error { return nil }

func (noopPublisher) Close() error { return nil }

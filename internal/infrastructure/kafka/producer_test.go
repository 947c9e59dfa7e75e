package kafka

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/imageresizer/internal/config"
	"github.com/yokitheyo/imageresizer/internal/domain"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

func TestNewPublisher_DisabledDropsEvents(t *testing.T) {
	pub := NewPublisher(&config.KafkaConfig{Enabled: false, Topic: "images.stored"})

	_, isProducer := pub.(*Producer)
	assert.False(t, isProducer)
	require.NoError(t, pub.PublishStored(context.Background(), &domain.StoredImage{ID: "x"}))
	require.NoError(t, pub.Close())
}

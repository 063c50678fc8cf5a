package kafka

import (
	"context"
	"testing"

	"github.com/clerapp/platform/pkg/common/logger"
	"github.com/stretchr/testify/assert"
)

func TestNewPublisherWithoutBrokers(t *testing.T) {
	logger.Silence()
	p := NewPublisher(nil, "cler.prescriptions")
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.PublishEvent(context.Background(), "prescription.created", "test", map[string]interface{}{}))
}

func TestNewPublisherWithBrokers(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "cler.prescriptions")
	producer, ok := p.(*Producer)
	if assert.True(t, ok) {
		assert.Equal(t, "cler.prescriptions", producer.writer.Topic)
		assert.NoError(t, producer.Close())
	}
}

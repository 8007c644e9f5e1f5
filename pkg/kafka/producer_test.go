package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)
}

func TestNewProducerOptions(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"localhost:9092"}),
		WithCompression("zstd"),
		WithRequiredAcks(-1),
		WithHashByKey(true),
	)
	require.NoError(t, err)
	defer p.Close()

	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
	assert.Equal(t, kafka.Zstd, p.writer.Compression)
	assert.Equal(t, kafka.RequireAll, p.writer.RequiredAcks)

	// nothing to send, no broker round trip
	require.NoError(t, p.PublishBatch(context.Background(), "events", nil))
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue("text")
	require.NoError(t, err)
	assert.Equal(t, "text", string(b))

	b, err = encodeValue(map[string]int{"bars": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bars":3}`, string(b))

	_, err = encodeValue(make(chan int))
	require.Error(t, err)
}

func TestNewProducerDefaultsAndValidation(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}))
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, kafka.Snappy, p.writer.Compression)
	assert.Equal(t, 3, p.writer.MaxAttempts)
	assert.Equal(t, 100, p.writer.BatchSize)
	assert.IsType(t, &kafka.LeastBytes{}, p.writer.Balancer)

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("brotli"))
	assert.ErrorContains(t, err, "brotli")

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithRequiredAcks(2))
	assert.Error(t, err)
}

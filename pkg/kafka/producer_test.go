package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProducer_Ping_NoBrokers(t *testing.T) {
	p := NewProducer(DefaultProducerConfig(nil), testLogger())
	t.Cleanup(func() { p.Close() })

	err := p.Ping(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers configured")
}

func TestProducer_Ping_UnreachableBroker(t *testing.T) {
	// Port 1 is never a Kafka broker; the dial fails immediately.
	p := NewProducer(DefaultProducerConfig([]string{"127.0.0.1:1"}), testLogger())
	t.Cleanup(func() { p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := p.Ping(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "all brokers unreachable")
}

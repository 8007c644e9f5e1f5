package logger

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestJSONOutputAndLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Debug("hidden")
	l.With(String("service", "test")).Info("series served",
		String("symbol", "NVDA"),
		Int("bars", 252),
		Duration("duration_ms", 1500*time.Millisecond),
		Date("from", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
	)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "series served", entry["message"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "NVDA", entry["symbol"])
	assert.EqualValues(t, 252, entry["bars"])
	assert.EqualValues(t, 1500, entry["duration_ms"])
	assert.Equal(t, "2024-01-02", entry["from"])
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestCollectorAggregatesErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("upstream failed", String("upstream", "yahoo"))
	}
	l.Error("upstream failed", String("upstream", "iex"))
	l.Warn("not collected")

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "logs", pub.topic)

	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Fields["upstream"].(string)] = e.Count
	}
	assert.Equal(t, map[string]int{"yahoo": 3, "iex": 1}, counts)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")

	require.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.batches) == 1
	}, time.Second, time.Millisecond)
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Len(t, pub.batches, 1)
	assert.Len(t, pub.batches[0], 2)
}

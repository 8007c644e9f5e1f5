package repository

import (
	"context"
	"time"

	"StockDash/internal/domain/models"
	pkgkafka "StockDash/pkg/kafka"
	xutil "StockDash/pkg/util"
)

// chartEventRecord is the JSON form of a ChartEvent on the events topic.
type chartEventRecord struct {
	Source     string `json:"source"`
	Symbol     string `json:"symbol"`
	Start      string `json:"start"`
	End        string `json:"end"`
	ShowTrend  bool   `json:"show_trend"`
	Bars       int    `json:"bars"`
	CacheHit   bool   `json:"cache_hit"`
	Degraded   bool   `json:"degraded"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	At         string `json:"at"`
}

func toRecord(ev models.ChartEvent) chartEventRecord {
	return chartEventRecord{
		Source:     ev.Source,
		Symbol:     ev.Symbol,
		Start:      xutil.FormatDate(ev.Start),
		End:        xutil.FormatDate(ev.End),
		ShowTrend:  ev.ShowTrend,
		Bars:       ev.Bars,
		CacheHit:   ev.CacheHit,
		Degraded:   ev.Degraded,
		DurationMS: ev.Duration.Milliseconds(),
		Error:      ev.Error,
		At:         ev.At.UTC().Format(time.RFC3339Nano),
	}
}

type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaEventPublisher implements EventPublisher for Kafka, keyed by symbol.
type KafkaEventPublisher struct {
	producer producer
	topic    string
}

func NewKafkaEventPublisher(p *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: p, topic: topic}
}

func (p *KafkaEventPublisher) PublishChartEvent(ctx context.Context, ev models.ChartEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), toRecord(ev))
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NoopEventPublisher drops every event. Used when events are disabled.
type NoopEventPublisher struct{}

func (NoopEventPublisher) PublishChartEvent(context.Context, models.ChartEvent) error { return nil }
func (NoopEventPublisher) Close() error                                              { return nil }

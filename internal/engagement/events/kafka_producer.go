package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gartstein/consulting/internal/engagement/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

const defaultQueueSize = 1000

type EventType string

const (
	EngagementCreated   EventType = "engagement_created"
	EngagementPaused    EventType = "engagement_paused"
	EngagementResumed   EventType = "engagement_resumed"
	EngagementFinalized EventType = "engagement_finalized"
	EngagementCancelled EventType = "engagement_cancelled"
)

// Event is the message published for every lifecycle change.
type Event struct {
	Type       EventType         `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	Engagement EngagementPayload `json:"engagement"`
}

// EngagementPayload is the engagement snapshot carried by an Event.
type EngagementPayload struct {
	ID                    string     `json:"id"`
	Client                string     `json:"client"`
	Type                  string     `json:"engagementType"`
	Size                  string     `json:"size"`
	ConsultantID          string     `json:"consultantId,omitempty"`
	Status                string     `json:"status"`
	PausedDaysTotal       int        `json:"pausedDaysTotal"`
	EffectiveDurationDays int        `json:"effectiveDurationDays"`
	Rating                int        `json:"rating,omitempty"`
	DeadlineMet           bool       `json:"deadlineMet"`
	CommissionPercent     string     `json:"commissionPercent"`
	CommissionAmount      string     `json:"commissionAmount"`
	FinalizedAt           *time.Time `json:"finalizedAt,omitempty"`
	CancelledAt           *time.Time `json:"cancelledAt,omitempty"`
	Version               int64      `json:"version"`
}

// NewEvent snapshots the engagement into an Event.
func NewEvent(eventType EventType, en *models.Engagement) Event {
	payload := EngagementPayload{
		ID:                    en.ID.String(),
		Client:                en.Client,
		Type:                  string(en.Type),
		Size:                  string(en.Size),
		Status:                string(en.Status),
		PausedDaysTotal:       en.PausedDaysTotal,
		EffectiveDurationDays: en.EffectiveDurationDays(),
		Rating:                en.Rating,
		DeadlineMet:           en.DeadlineMet,
		CommissionPercent:     en.CommissionPercent.StringFixed(2),
		CommissionAmount:      en.CommissionAmount.StringFixed(2),
		FinalizedAt:           en.FinalizedAt,
		CancelledAt:           en.CancelledAt,
		Version:               en.Version,
	}
	if en.ConsultantID != nil {
		payload.ConsultantID = en.ConsultantID.String()
	}
	return Event{Type: eventType, OccurredAt: en.UpdatedAt, Engagement: payload}
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
}

func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	// Create topic if it doesn't exist
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	p := newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger, defaultQueueSize)
	go p.eventLoop()
	return p, nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, queueSize int) *Producer {
	return &Producer{
		writer:    writer,
		events:    make(chan Event, queueSize),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
	}
}

// Produce enqueues the event without blocking; it is dropped when the queue is full.
func (p *Producer) Produce(eventType EventType, en *models.Engagement) {
	select {
	case p.events <- NewEvent(eventType, en):
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.String("engagement_id", en.ID.String()),
		)
	}
}

func (p *Producer) eventLoop() {
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("engagement_id", event.Engagement.ID),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Engagement.ID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("engagement_id", event.Engagement.ID),
		)
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// NopProducer discards events. It is used when no brokers are configured.
type NopProducer struct{}

func (NopProducer) Produce(EventType, *models.Engagement) {}

func (NopProducer) Close() {}

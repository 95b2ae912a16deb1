package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"strava_sync/internal/domain"
)

const (
	ActionExported = "exported"
	ActionUploaded = "uploaded"
)

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With("component", "publisher"),
	}, nil
}

type Message struct {
	Action    string           `json:"action"` // "exported" or "uploaded"
	RunID     string           `json:"run_id"`
	Activity  *domain.Activity `json:"activity,omitempty"`
	Upload    *UploadEvent     `json:"upload,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

type UploadEvent struct {
	File       string `json:"file"`
	DataType   string `json:"data_type"`
	ActivityID int64  `json:"activity_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Patched    bool   `json:"patched"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func NewUploadEvent(outcome *domain.UploadOutcome) *UploadEvent {
	event := &UploadEvent{
		File:       filepath.Base(outcome.Task.FilePath),
		DataType:   string(outcome.Task.DataType),
		Patched:    outcome.Patched,
		DurationMS: outcome.Duration.Milliseconds(),
	}
	if outcome.Result != nil {
		event.ActivityID = outcome.Result.ActivityID
		event.ExternalID = outcome.Result.ExternalID
		event.Error = outcome.Result.Error
	}
	if outcome.Err != nil {
		event.Error = outcome.Err.Error()
	}
	return event
}

// PublishActivity announces an activity appended to the record store.
func (r *RabbitMQ) PublishActivity(ctx context.Context, runID string, activity *domain.Activity) error {
	err := r.publish(ctx, Message{
		Action:    ActionExported,
		RunID:     runID,
		Activity:  activity,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	r.logger.Debug("published activity", "activity_id", activity.ID, "run_id", runID)
	return nil
}

// PublishUpload announces the outcome of one uploaded file.
func (r *RabbitMQ) PublishUpload(ctx context.Context, runID string, outcome *domain.UploadOutcome) error {
	event := NewUploadEvent(outcome)
	err := r.publish(ctx, Message{
		Action:    ActionUploaded,
		RunID:     runID,
		Upload:    event,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	r.logger.Debug("published upload", "file", event.File, "run_id", runID)
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

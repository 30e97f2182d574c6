package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Caskiuz/nemy-marketplace/internal/entities"
	"github.com/Caskiuz/nemy-marketplace/internal/metrics"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const queueSize = 256

// Event is the status-change notification handed to the external
// notification collaborators. Delivery mechanics (push, SMS, email)
// live entirely behind the webhook / topic.
type Event struct {
	ID          string               `json:"id"`
	OrderID     string               `json:"order_id"`
	OrderNumber string               `json:"order_number"`
	OldStatus   entities.OrderStatus `json:"old_status"`
	NewStatus   entities.OrderStatus `json:"new_status"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// NewEvent stamps id and time onto a status change.
func NewEvent(orderID, orderNumber string, oldStatus, newStatus entities.OrderStatus) Event {
	return Event{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		OrderNumber: orderNumber,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
		OccurredAt:  time.Now().UTC(),
	}
}

// Notifier queues status events and dispatches them from a background
// loop to the configured sinks: an HTTP webhook and, when brokers are
// configured, a kafka topic. Dispatch is best effort; a full queue
// drops the event with a log line rather than blocking a transition.
type Notifier struct {
	queue       chan Event
	client      *resty.Client
	webhookURL  string
	kafkaWriter *kafka.Writer
	metrics     *metrics.Metrics
}

func NewNotifier(webhookURL string, kafkaBrokers []string, kafkaTopic string, metrics *metrics.Metrics) *Notifier {
	client := resty.New()

	client.
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)

	notifier := &Notifier{
		queue:      make(chan Event, queueSize),
		client:     client,
		webhookURL: webhookURL,
		metrics:    metrics,
	}

	if len(kafkaBrokers) > 0 {
		notifier.kafkaWriter = &kafka.Writer{
			Addr:         kafka.TCP(kafkaBrokers...),
			Topic:        kafkaTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		}
	}

	return notifier
}

// Publish enqueues without blocking.
func (n *Notifier) Publish(event Event) {
	select {
	case n.queue <- event:
	default:
		zap.L().Info("notifier queue full, dropping event",
			zap.String("order", event.OrderNumber),
			zap.String("new_status", string(event.NewStatus)),
		)
	}
}

// Start drains the queue until the context ends, then closes the kafka
// writer if one was configured.
func (n *Notifier) Start(ctx context.Context) error {
	defer func() {
		if n.kafkaWriter != nil {
			if err := n.kafkaWriter.Close(); err != nil {
				zap.L().Info("error closing kafka writer", zap.Error(err))
			}
		}
	}()

	for {
		select {
		case event := <-n.queue:
			n.dispatch(ctx, event)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, event Event) {
	if n.webhookURL != "" {
		n.postWebhook(ctx, event)
	}

	if n.kafkaWriter != nil {
		n.publishKafka(ctx, event)
	}
}

func (n *Notifier) postWebhook(ctx context.Context, event Event) {
	response, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(n.webhookURL)

	if err != nil {
		zap.L().Info("error posting status event webhook", zap.Error(err))
		n.metrics.Events.WithLabelValues("webhook", "error").Inc()
		return
	}

	if response.IsError() {
		zap.L().Info("status event webhook rejected",
			zap.String("status", response.Status()),
			zap.String("order", event.OrderNumber),
		)
		n.metrics.Events.WithLabelValues("webhook", "rejected").Inc()
		return
	}

	n.metrics.Events.WithLabelValues("webhook", "ok").Inc()
}

func (n *Notifier) publishKafka(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		zap.L().Info("error encoding status event", zap.Error(err))
		n.metrics.Events.WithLabelValues("kafka", "error").Inc()
		return
	}

	err = n.kafkaWriter.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
		Time:  event.OccurredAt,
	})

	if err != nil {
		zap.L().Info("error publishing status event to kafka", zap.Error(err))
		n.metrics.Events.WithLabelValues("kafka", "error").Inc()
		return
	}

	n.metrics.Events.WithLabelValues("kafka", "ok").Inc()
}

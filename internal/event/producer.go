package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Anuu03/Sweet-Bites/internal/domain"
	pkgkafka "github.com/Anuu03/Sweet-Bites/pkg/kafka"
	"github.com/Anuu03/Sweet-Bites/pkg/logger"
)

// Kafka topic constants for checkout domain events.
const (
	TopicCheckoutCreated = "sweetbites.checkout.created"
	TopicPaymentRecorded = "sweetbites.checkout.payment_recorded"
	TopicOrderFinalized  = "sweetbites.order.finalized"
)

const (
	AggregateTypeCheckout = "checkout"
	AggregateTypeOrder    = "order"
)

// Source identifier for events originating from this service.
const SourceCheckoutService = "checkout-service"

// CheckoutCreatedData is the payload for a checkout.created event.
type CheckoutCreatedData struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Items         []domain.LineItem `json:"items"`
	PaymentMethod string            `json:"payment_method"`
	TotalPrice    int64             `json:"total_price"`
}

// PaymentRecordedData is the payload for a checkout.payment_recorded event.
type PaymentRecordedData struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"`
	IsPaid        bool   `json:"is_paid"`
}

// OrderFinalizedData is the payload for an order.finalized event.
type OrderFinalizedData struct {
	OrderID       string `json:"order_id"`
	CheckoutID    string `json:"checkout_id"`
	UserID        string `json:"user_id"`
	PaymentMethod string `json:"payment_method"`
	TotalPrice    int64  `json:"total_price"`
	IsPaid        bool   `json:"is_paid"`
}

// Producer publishes checkout domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the checkout service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCheckoutCreated publishes a checkout.created event.
func (p *Producer) PublishCheckoutCreated(ctx context.Context, session *domain.CheckoutSession) error {
	data := CheckoutCreatedData{
		ID:            session.ID,
		UserID:        session.UserID,
		Items:         session.Items,
		PaymentMethod: session.PaymentMethod,
		TotalPrice:    session.TotalPrice,
	}

	return p.publish(ctx, TopicCheckoutCreated, session.ID, AggregateTypeCheckout, data)
}

// PublishPaymentRecorded publishes a checkout.payment_recorded event.
func (p *Producer) PublishPaymentRecorded(ctx context.Context, session *domain.CheckoutSession) error {
	data := PaymentRecordedData{
		ID:            session.ID,
		UserID:        session.UserID,
		PaymentMethod: session.PaymentMethod,
		PaymentStatus: session.PaymentStatus,
		IsPaid:        session.IsPaid,
	}

	return p.publish(ctx, TopicPaymentRecorded, session.ID, AggregateTypeCheckout, data)
}

// PublishOrderFinalized publishes an order.finalized event.
func (p *Producer) PublishOrderFinalized(ctx context.Context, order *domain.Order) error {
	data := OrderFinalizedData{
		OrderID:       order.ID,
		CheckoutID:    order.CheckoutID,
		UserID:        order.UserID,
		PaymentMethod: order.PaymentMethod,
		TotalPrice:    order.TotalPrice,
		IsPaid:        order.IsPaid,
	}

	return p.publish(ctx, TopicOrderFinalized, order.ID, AggregateTypeOrder, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCheckoutService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	evt.WithCorrelationID(logger.CorrelationIDFromContext(ctx))

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}

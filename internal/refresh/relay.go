package refresh

import (
	"context"
	"fmt"
	"time"

	"moneymanager/internal/amqp"
	"moneymanager/internal/log"
)

// Broker is the slice of the AMQP client the relay needs.
type Broker interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
	ConsumeLedgerChanged(ctx context.Context, handler func(*amqp.LedgerChangedMessage) error) error
}

// Lookup finds the live coordinators of a user on this instance.
type Lookup interface {
	CoordinatorsFor(userID string) []*Coordinator
}

// Relay propagates ledger changes between instances. Events carrying this
// instance's id are ignored since the local bump already happened.
type Relay struct {
	broker   Broker
	instance string
	lookup   Lookup
	logger   *log.Logger
}

func NewRelay(broker Broker, instance string, lookup Lookup, logger *log.Logger) *Relay {
	return &Relay{
		broker:   broker,
		instance: instance,
		lookup:   lookup,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentRefresh),
	}
}

// ForUser returns a Publisher bound to userID, for use with WithPublisher.
func (r *Relay) ForUser(userID string) Publisher {
	return userPublisher{relay: r, userID: userID}
}

type userPublisher struct {
	relay  *Relay
	userID string
}

func (p userPublisher) PublishChanged(ctx context.Context, token uint64) error {
	msg := amqp.NewLedgerChangedMessage(p.userID, p.relay.instance, token)
	if err := p.relay.broker.PublishLedgerChanged(ctx, msg); err != nil {
		return fmt.Errorf("publish ledger change: %w", err)
	}
	return nil
}

// Run consumes events until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Refresh relay started", log.FieldInstance, r.instance)
	return r.broker.ConsumeLedgerChanged(ctx, func(msg *amqp.LedgerChangedMessage) error {
		r.Handle(ctx, msg)
		return nil
	})
}

// Handle applies one event and reports how many coordinators were advanced.
func (r *Relay) Handle(ctx context.Context, msg *amqp.LedgerChangedMessage) int {
	if msg.Instance == r.instance || msg.UserID == "" {
		return 0
	}
	coords := r.lookup.CoordinatorsFor(msg.UserID)
	for _, c := range coords {
		c.Observe(ctx)
	}
	r.logger.DebugContext(ctx, "Applied remote ledger change",
		log.FieldInstance, msg.Instance,
		"pages", len(coords),
		"lag_ms", time.Since(msg.Timestamp).Milliseconds())
	return len(coords)
}

package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneymanager/internal/amqp"
)

func TestTokenStartsAtZeroAndBumpIncrementsOnce(t *testing.T) {
	c := New()
	assert.Equal(t, uint64(0), c.Token())
	assert.Equal(t, uint64(1), c.Bump(context.Background()))
	assert.Equal(t, uint64(1), c.Token())
	c.Bump(context.Background())
	assert.Equal(t, uint64(2), c.Token())
}

func TestBumpNotifiesEverySubscriber(t *testing.T) {
	c := New()
	var mu sync.Mutex
	seen := map[string]uint64{}
	record := func(name string) Listener {
		return func(_ context.Context, token uint64) error {
			mu.Lock()
			defer mu.Unlock()
			seen[name] = token
			return nil
		}
	}
	c.Subscribe("report", record("report"))
	c.Subscribe("summary", record("summary"))
	c.Subscribe("failing", func(context.Context, uint64) error { return errors.New("offline") })
	unsub := c.Subscribe("accounts", record("accounts"))
	unsub()
	unsub()

	c.Bump(context.Background())

	assert.Equal(t, map[string]uint64{"report": 1, "summary": 1}, seen)
}

type recordingPublisher struct {
	tokens []uint64
}

func (p *recordingPublisher) PublishChanged(_ context.Context, token uint64) error {
	p.tokens = append(p.tokens, token)
	return nil
}

func TestObserveDoesNotPublish(t *testing.T) {
	pub := &recordingPublisher{}
	c := New(WithPublisher(pub))

	c.Bump(context.Background())
	c.Observe(context.Background())

	assert.Equal(t, uint64(2), c.Token())
	assert.Equal(t, []uint64{1}, pub.tokens)
}

type fakeBroker struct {
	published []*amqp.LedgerChangedMessage
	inbound   []*amqp.LedgerChangedMessage
}

func (b *fakeBroker) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChangedMessage) error {
	b.published = append(b.published, msg)
	return nil
}

func (b *fakeBroker) ConsumeLedgerChanged(_ context.Context, handler func(*amqp.LedgerChangedMessage) error) error {
	for _, m := range b.inbound {
		if err := handler(m); err != nil {
			return err
		}
	}
	return nil
}

type staticLookup map[string][]*Coordinator

func (l staticLookup) CoordinatorsFor(userID string) []*Coordinator { return l[userID] }

func TestRelayRoundTrip(t *testing.T) {
	mine, theirs := New(), New()
	broker := &fakeBroker{}
	relay := NewRelay(broker, "instance-a", staticLookup{"u1": {mine, theirs}}, nil)

	var notified atomic.Int32
	theirs.Subscribe("report", func(context.Context, uint64) error {
		notified.Add(1)
		return nil
	})

	withPub := New(WithPublisher(relay.ForUser("u1")))
	withPub.Bump(context.Background())
	require.Len(t, broker.published, 1)
	assert.Equal(t, "u1", broker.published[0].UserID)
	assert.Equal(t, "instance-a", broker.published[0].Instance)
	assert.Equal(t, uint64(1), broker.published[0].Token)

	broker.inbound = []*amqp.LedgerChangedMessage{
		broker.published[0],
		amqp.NewLedgerChangedMessage("u1", "instance-b", 7),
		amqp.NewLedgerChangedMessage("u2", "instance-b", 1),
	}
	require.NoError(t, relay.Run(context.Background()))

	assert.Equal(t, uint64(1), mine.Token())
	assert.Equal(t, uint64(1), theirs.Token())
	assert.Equal(t, int32(1), notified.Load())
}

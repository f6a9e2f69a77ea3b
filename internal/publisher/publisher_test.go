package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/brfledger/utilitybilling/internal/logger"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillPublisher_Publish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := logger.NewNopLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 10}, watermill.NopLogger{})
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, "billing_events")
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub, "billing_events", log)
	event := NewEvent(EventInvoiceGenerated, "bp_1", "hh_1", map[string]interface{}{"invoice_id": "inv_1"})
	require.NoError(t, pub.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, "hh_1", msg.Metadata.Get(metadataPartitionKey))
		assert.Equal(t, string(EventInvoiceGenerated), msg.Metadata.Get("event_name"))

		var got Event
		require.NoError(t, jsoniter.Unmarshal(msg.Payload, &got))
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, "bp_1", got.BillingPeriodID)
		assert.Equal(t, "inv_1", got.Payload["invoice_id"])
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestEvent_PartitionKey(t *testing.T) {
	assert.Equal(t, "hh_1", NewEvent(EventInvoicePaid, "bp_1", "hh_1", nil).PartitionKey())
	assert.Equal(t, "bp_1", NewEvent(EventPeriodBilled, "bp_1", "", nil).PartitionKey())
}

func TestNoopPublisher(t *testing.T) {
	pub := NewNoopPublisher(logger.NewNopLogger())
	assert.NoError(t, pub.Publish(context.Background(), NewEvent(EventPeriodBilled, "bp_1", "", nil)))
	assert.NoError(t, pub.Close())
}

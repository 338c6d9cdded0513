package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key     string
	payload any
}

// recorder keeps every message and fails with err when set.
type recorder struct {
	sent []published
	err  error
}

func (r *recorder) Publish(_ context.Context, routingKey string, payload any) error {
	r.sent = append(r.sent, published{routingKey, payload})
	return r.err
}

var _ Publisher = (*recorder)(nil)

func TestEnvelope_JSONShape(t *testing.T) {
	raw, err := json.Marshal(Envelope{
		Type:      BookingStatusChanged,
		RequestID: "req-1",
		Data:      map[string]any{"bookingId": 4, "status": "ongoing"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"booking.status_changed","requestId":"req-1","data":{"bookingId":4,"status":"ongoing"}}`, string(raw))

	raw, err = json.Marshal(Envelope{Type: PaymentPosted, Data: nil})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"payment.posted","data":null}`, string(raw))
}

func TestRecorder_KeepsRoutingKeyAndEnvelope(t *testing.T) {
	r := &recorder{}
	var pub Publisher = r

	require.NoError(t, pub.Publish(context.Background(), BookingCreated, Envelope{Type: BookingCreated, Data: 9}))
	r.err = errors.New("channel closed")
	assert.EqualError(t, pub.Publish(context.Background(), PaymentPosted, Envelope{Type: PaymentPosted}), "channel closed")

	require.Len(t, r.sent, 2)
	assert.Equal(t, BookingCreated, r.sent[0].key)
	assert.Equal(t, Envelope{Type: BookingCreated, Data: 9}, r.sent[0].payload)
	assert.Equal(t, PaymentPosted, r.sent[1].key)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), BookingCreated, Envelope{}))
}

func TestAMQPPublisher_RejectsUnencodablePayload(t *testing.T) {
	p := &AMQPPublisher{exchange: "fleetops"}
	err := p.Publish(context.Background(), BookingCreated, Envelope{Type: BookingCreated, Data: make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode event")
}

func TestAMQPPublisher_CloseWithoutConnection(t *testing.T) {
	assert.NoError(t, (&AMQPPublisher{}).Close())
}

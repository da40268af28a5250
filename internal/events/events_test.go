package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vilo/internal/stay"
)

func bookingEvent(t *testing.T) Event {
	t.Helper()
	ev, err := NewEvent(BookingCreated, "seaside", "ref-1", BookingPayload{
		Reference: "ref-1",
		RoomID:    101,
		Stay:      stay.NewRange(stay.MustParse("2024-07-01"), stay.MustParse("2024-07-04")),
		Nights:    3,
		Total:     300,
	})
	require.NoError(t, err)
	return ev
}

func TestEventBus_Publish(t *testing.T) {
	logger := zerolog.New(io.Discard)
	bus := NewEventBus(&logger)
	ctx := context.Background()

	var got []string
	bus.Subscribe(BookingCreated, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.Type)
		return nil
	})
	bus.Subscribe(BookingCreated, func(_ context.Context, e Event) error {
		return errors.New("boom")
	})
	bus.SubscribeAll(func(_ context.Context, e Event) error {
		got = append(got, "all:"+e.Type)
		return nil
	}, BookingCreated, BookingCancelled)

	failed := bus.Publish(ctx, bookingEvent(t))
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"first:booking.created", "all:booking.created"}, got)

	got = nil
	assert.Zero(t, bus.Publish(ctx, Event{Type: BookingCancelled}))
	assert.Equal(t, []string{"all:booking.cancelled"}, got)

	assert.Zero(t, bus.Publish(ctx, Event{Type: "unknown"}))

	var nilBus *EventBus
	assert.Zero(t, nilBus.Publish(ctx, Event{Type: BookingCreated}))
}

func TestNewEvent(t *testing.T) {
	ev := bookingEvent(t)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())

	p, err := ev.DecodeBooking()
	require.NoError(t, err)
	assert.Equal(t, "ref-1", p.Reference)
	assert.Equal(t, stay.MustParse("2024-07-04"), p.Stay.End)
}

func TestKafkaPublisher_Handle(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	ev := bookingEvent(t)

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "vilo.bookings" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "ref-1" {
			return errors.New("unexpected key " + string(key))
		}
		value, _ := msg.Value.Encode()
		var decoded Event
		if err := json.Unmarshal(value, &decoded); err != nil {
			return err
		}
		if decoded.Type != BookingCreated {
			return errors.New("unexpected type " + decoded.Type)
		}
		return nil
	})

	pub := NewKafkaPublisherWithProducer(producer, "vilo.bookings", nil)
	require.NoError(t, pub.Handle(context.Background(), ev))
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisherWithProducer(producer, "vilo.bookings", nil)
	err := pub.Handle(context.Background(), bookingEvent(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_OnBus(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()

	bus := NewEventBus(nil)
	pub := NewKafkaPublisherWithProducer(producer, "vilo.bookings", nil)
	bus.Subscribe(BookingCreated, pub.Handle)

	assert.Zero(t, bus.Publish(context.Background(), bookingEvent(t)))
	require.NoError(t, pub.Close())
}

package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

type fakeDelivery struct {
	subject string
	header  nats.Header
	data    []byte
	acked   bool
	naked   bool
}

func (d *fakeDelivery) Subject() string      { return d.subject }
func (d *fakeDelivery) Headers() nats.Header { return d.header }
func (d *fakeDelivery) Data() []byte         { return d.data }
func (d *fakeDelivery) Ack() error           { d.acked = true; return nil }
func (d *fakeDelivery) Nak() error           { d.naked = true; return nil }

func TestConsumer_ProcessAcksOnSuccess(t *testing.T) {
	var gotSubject, gotKey string
	var gotData []byte
	handler := func(ctx context.Context, subject, key string, data []byte) error {
		gotSubject, gotKey, gotData = subject, key, data
		return nil
	}
	c := NewConsumer(nil, ConsumerConfig{}, handler, logger.NewNop())

	header := nats.Header{}
	header.Set(nats.MsgIdHdr, "req-1")
	msg := &fakeDelivery{subject: "ebms.events", header: header, data: []byte(`{}`)}

	c.process(context.Background(), msg)

	require.True(t, msg.acked)
	require.False(t, msg.naked)
	require.Equal(t, "ebms.events", gotSubject)
	require.Equal(t, "req-1", gotKey)
	require.Equal(t, []byte(`{}`), gotData)
}

func TestConsumer_ProcessNaksOnError(t *testing.T) {
	handler := func(context.Context, string, string, []byte) error {
		return errors.New("store unavailable")
	}
	c := NewConsumer(nil, ConsumerConfig{}, handler, logger.NewNop())

	msg := &fakeDelivery{subject: "ebms.message-details", header: nats.Header{}}
	c.process(context.Background(), msg)

	require.True(t, msg.naked)
	require.False(t, msg.acked)
}

func TestConsumer_ProcessIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var handlerErr error
	handler := func(ctx context.Context, _, _ string, _ []byte) error {
		handlerErr = ctx.Err()
		return nil
	}
	c := NewConsumer(nil, ConsumerConfig{}, handler, logger.NewNop())

	msg := &fakeDelivery{subject: "ebms.events", header: nats.Header{}}
	c.process(ctx, msg)

	require.NoError(t, handlerErr)
	require.True(t, msg.acked)
}

func TestConsumerConfigDefaults(t *testing.T) {
	cfg := ConsumerConfig{Workers: -1}.withDefaults()

	require.Equal(t, "event-tracker", cfg.Durable)
	require.Equal(t, 1, cfg.Workers)
	require.Equal(t, 10, cfg.MaxDeliver)
	require.Positive(t, cfg.AckWait)
}

func TestSubjects(t *testing.T) {
	require.Equal(t, "ebms.message-details", Subject(DefaultSubjectPrefix, "message-details"))
	require.Equal(t, "ebms.>", WildcardSubject(DefaultSubjectPrefix))

	cfg := StreamConfig{}.withDefaults()
	require.Equal(t, DefaultStreamName, cfg.Name)
	require.Equal(t, DefaultSubjectPrefix, cfg.SubjectPrefix)
}

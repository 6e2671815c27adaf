package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// DefaultStreamName is the name of the message-event stream.
	DefaultStreamName = "EBMS_EVENTS"

	// DefaultSubjectPrefix is the prefix for all message-event subjects.
	DefaultSubjectPrefix = "ebms"
)

// StreamConfig names the stream and the subjects it captures.
type StreamConfig struct {
	Name          string
	SubjectPrefix string
	MaxAge        time.Duration
}

func (c StreamConfig) withDefaults() StreamConfig {
	if c.Name == "" {
		c.Name = DefaultStreamName
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 30 * 24 * time.Hour
	}
	return c
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
	cfg    StreamConfig
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client, cfg StreamConfig) *StreamManager {
	return &StreamManager{client: client, cfg: cfg.withDefaults()}
}

// Name returns the stream name.
func (m *StreamManager) Name() string {
	return m.cfg.Name
}

// SubjectPrefix returns the subject prefix captured by the stream.
func (m *StreamManager) SubjectPrefix() string {
	return m.cfg.SubjectPrefix
}

// EnsureStream ensures the stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, m.cfg.Name)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        m.cfg.Name,
		Subjects:    []string{WildcardSubject(m.cfg.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      m.cfg.MaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Duplicates:  2 * time.Minute,
		Description: "Message details and processing events from the messaging gateway",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// Subject returns the subject carrying records of the given kind.
func Subject(prefix, kind string) string {
	return fmt.Sprintf("%s.%s", prefix, kind)
}

// WildcardSubject returns the filter subject matching every record kind.
func WildcardSubject(prefix string) string {
	return fmt.Sprintf("%s.>", prefix)
}

// Publish publishes a raw payload of the given kind. A non-empty key is sent
// as the message id so the stream drops re-publishes within its duplicate window.
func (m *StreamManager) Publish(ctx context.Context, kind, key string, data []byte) (uint64, error) {
	msg := nats.NewMsg(Subject(m.cfg.SubjectPrefix, kind))
	msg.Data = data
	if key != "" {
		msg.Header.Set(nats.MsgIdHdr, key)
	}

	ack, err := m.client.JetStream().PublishMsg(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to publish %s: %w", kind, err)
	}

	return ack.Sequence, nil
}

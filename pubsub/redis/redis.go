// Package redis delivers chat messages to live subscribers over Redis Pub/Sub.
// Each session has its own channel; payloads are JSON-encoded l3agi.ChatMessage.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	l3agi "github.com/psyuktha/L3AGI"
)

// DefaultPrefix is prepended to the session id to form the channel name.
const DefaultPrefix = "chat:"

// Publisher implements l3agi.Publisher.
type Publisher struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ l3agi.Publisher = (*Publisher)(nil)

// Option configures a Publisher.
type Option func(*Publisher)

// WithPrefix overrides the channel name prefix.
func WithPrefix(p string) Option {
	return func(pub *Publisher) { pub.prefix = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(pub *Publisher) { pub.logger = l }
}

// New returns a Publisher on client. The caller owns client.
func New(client *redis.Client, opts ...Option) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("pubsub: redis client is nil")
	}
	p := &Publisher{client: client, prefix: DefaultPrefix, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Channel returns the channel name of a session.
func (p *Publisher) Channel(sessionID string) string {
	return p.prefix + sessionID
}

// SendChatMessage publishes msg on its session's channel. It does not wait
// for subscribers.
func (p *Publisher) SendChatMessage(ctx context.Context, msg l3agi.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("pubsub: encode message: %w", err)
	}
	receivers, err := p.client.Publish(ctx, p.Channel(msg.SessionID), payload).Result()
	if err != nil {
		return fmt.Errorf("pubsub: publish: %w", err)
	}
	p.logger.Debug("chat message published", "session_id", msg.SessionID, "id", msg.ID, "receivers", receivers)
	return nil
}

// Subscription receives the messages of one session.
type Subscription struct {
	pubsub   *redis.PubSub
	cancel   context.CancelFunc
	messages <-chan l3agi.ChatMessage
	once     sync.Once
}

// Subscribe listens on a session's channel until ctx is done or the
// subscription is closed. Payloads that fail to decode are logged and skipped.
func (p *Publisher) Subscribe(ctx context.Context, sessionID string) (*Subscription, error) {
	ps := p.client.Subscribe(ctx, p.Channel(sessionID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("pubsub: subscribe: %w", err)
	}
	subCtx, cancel := context.WithCancel(ctx)
	out := make(chan l3agi.ChatMessage, 64)
	go func(messages <-chan *redis.Message) {
		defer close(out)
		for {
			select {
			case <-subCtx.Done():
				return
			case m, ok := <-messages:
				if !ok {
					return
				}
				var msg l3agi.ChatMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					p.logger.Warn("dropping undecodable chat message", "channel", m.Channel, "error", err)
					continue
				}
				select {
				case out <- msg:
				case <-subCtx.Done():
					return
				}
			}
		}
	}(ps.Channel())

	return &Subscription{pubsub: ps, cancel: cancel, messages: out}, nil
}

// Messages returns the decoded messages. The channel is closed when the
// subscription ends.
func (s *Subscription) Messages() <-chan l3agi.ChatMessage {
	return s.messages
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
	})
	return err
}

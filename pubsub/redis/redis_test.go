package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	l3agi "github.com/psyuktha/L3AGI"
)

func testPublisher(t *testing.T, opts ...Option) (*Publisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	p, err := New(client, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, mr
}

func TestNewNilClient(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil client")
	}
}

func TestPublishSubscribe(t *testing.T) {
	p, _ := testPublisher(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := p.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	sent := l3agi.ChatMessage{ID: "m1", SessionID: "s1", Role: l3agi.RoleAI, Content: "Paris", AgentID: "a1", CreatedAt: 7}
	if err := p.SendChatMessage(ctx, sent); err != nil {
		t.Fatalf("SendChatMessage: %v", err)
	}
	// A message for another session must not arrive.
	if err := p.SendChatMessage(ctx, l3agi.ChatMessage{ID: "m2", SessionID: "s2"}); err != nil {
		t.Fatalf("SendChatMessage: %v", err)
	}

	select {
	case got := <-sub.Messages():
		if got != sent {
			t.Errorf("received %+v, want %+v", got, sent)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}

	select {
	case got := <-sub.Messages():
		t.Errorf("unexpected message %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelPrefix(t *testing.T) {
	p, _ := testPublisher(t, WithPrefix("l3agi:session:"))
	if got := p.Channel("s1"); got != "l3agi:session:s1" {
		t.Errorf("Channel() = %q", got)
	}
}

func TestSubscriptionClose(t *testing.T) {
	p, _ := testPublisher(t)
	sub, err := p.Subscribe(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	select {
	case _, ok := <-sub.Messages():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("messages channel not closed")
	}
}

func TestPublishServerDown(t *testing.T) {
	p, mr := testPublisher(t)
	mr.Close()
	err := p.SendChatMessage(context.Background(), l3agi.ChatMessage{SessionID: "s1"})
	if err == nil {
		t.Error("expected error when redis is unreachable")
	}
}

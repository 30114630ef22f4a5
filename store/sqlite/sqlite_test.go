package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	l3agi "github.com/psyuktha/L3AGI"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInitIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "init.db"))
	defer s.Close()
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestStoreAndGetMessages(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	msgs := []l3agi.ChatMessage{
		{ID: "m1", SessionID: "s1", Role: l3agi.RoleHuman, Content: "Hello", SenderName: "Sam", CreatedAt: 1000},
		{ID: "m2", SessionID: "s1", Role: l3agi.RoleAI, Content: "Hi!", ParentID: "m1", AgentID: "a1", CreatedAt: 1001},
		{ID: "m3", SessionID: "s1", Role: l3agi.RoleHuman, Content: "Bye", CreatedAt: 1002},
		{ID: "x1", SessionID: "other", Role: l3agi.RoleHuman, Content: "elsewhere", CreatedAt: 1003},
	}
	for _, m := range msgs {
		if err := s.StoreMessage(ctx, m); err != nil {
			t.Fatalf("StoreMessage: %v", err)
		}
	}

	got, err := s.GetMessages(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3, got %d", len(got))
	}
	if got[0] != msgs[0] || got[1] != msgs[1] || got[2] != msgs[2] {
		t.Errorf("messages = %+v", got)
	}

	// The limit keeps the most recent messages.
	got, err = s.GetMessages(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(got) != 2 || got[0].Content != "Hi!" || got[1].Content != "Bye" {
		t.Errorf("limited messages = %+v", got)
	}

	if n, err := s.CountMessages(ctx, "s1"); err != nil || n != 3 {
		t.Errorf("CountMessages(s1) = %d, %v", n, err)
	}
	if n, err := s.CountMessages(ctx, "missing"); err != nil || n != 0 {
		t.Errorf("CountMessages(missing) = %d, %v", n, err)
	}
}

func TestStoreMessageUpsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	m := l3agi.ChatMessage{ID: "m1", SessionID: "s1", Role: l3agi.RoleAI, Content: "draft", CreatedAt: 1}
	if err := s.StoreMessage(ctx, m); err != nil {
		t.Fatal(err)
	}
	m.Content = "final"
	m.VoiceURL = "https://cdn/a.mp3"
	if err := s.StoreMessage(ctx, m); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetMessages(ctx, "s1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "final" || got[0].VoiceURL != "https://cdn/a.mp3" {
		t.Errorf("messages = %+v", got)
	}
}

func TestRunLogs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i, kind := range []string{l3agi.RunLogAgentAction, l3agi.RunLogToolStart, l3agi.RunLogToolEnd, l3agi.RunLogAgentFinish} {
		l := l3agi.RunLog{ID: fmt.Sprintf("r%d", i), SessionID: "s1", AgentID: "a1", Kind: kind, Name: "lookup", CreatedAt: 5}
		if err := s.StoreRunLog(ctx, l); err != nil {
			t.Fatalf("StoreRunLog: %v", err)
		}
	}

	logs, err := s.ListRunLogs(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("ListRunLogs: %v", err)
	}
	if len(logs) != 4 {
		t.Fatalf("expected 4 logs, got %d", len(logs))
	}
	if logs[0].Kind != l3agi.RunLogAgentAction || logs[3].Kind != l3agi.RunLogAgentFinish {
		t.Errorf("logs out of insertion order: %+v", logs)
	}

	none, err := s.ListRunLogs(ctx, "other", 10)
	if err != nil || len(none) != 0 {
		t.Errorf("other session logs = %+v, %v", none, err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.StoreMessage(ctx, l3agi.ChatMessage{
				ID: fmt.Sprintf("m%02d", i), SessionID: "s1", Role: l3agi.RoleHuman, Content: "hi", CreatedAt: int64(i),
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("StoreMessage: %v", err)
		}
	}
	got, err := s.GetMessages(ctx, "s1", 100)
	if err != nil || len(got) != 20 {
		t.Fatalf("got %d messages, %v", len(got), err)
	}
}

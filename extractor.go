package l3agi

import (
	"context"
	"strings"
	"unicode"
)

const (
	// FinalAnswerMarker precedes the user-visible answer in the engine output.
	FinalAnswerMarker = "Final Answer:"
	// FallbackAnswer is the result when no marker is found in the response.
	FallbackAnswer = "Final Answer not found in response."
)

// markerTokens is the marker as the tokenizer emits it, one fragment each.
var markerTokens = [3]string{"Final", "Answer", ":"}

// AnswerRun extracts the final answer from one engine run's content stream.
//
// Fragments received before the marker are buffered but never forwarded.
// Once the marker is seen every later non-empty fragment is forwarded as is.
// An AnswerRun is single-use and must not be shared between goroutines.
type AnswerRun struct {
	chunks    []string
	detected  bool
	markerEnd int // len(chunks) when the marker completed
}

// NewAnswerRun returns an empty run.
func NewAnswerRun() *AnswerRun {
	return &AnswerRun{}
}

// Observe records fragment and reports whether it should be forwarded.
func (r *AnswerRun) Observe(fragment string) bool {
	r.chunks = append(r.chunks, fragment)

	if r.detected {
		return fragment != ""
	}

	n := len(r.chunks)
	if n >= 3 &&
		strings.TrimSpace(r.chunks[n-3]) == markerTokens[0] &&
		strings.TrimSpace(r.chunks[n-2]) == markerTokens[1] &&
		strings.TrimSpace(r.chunks[n-1]) == markerTokens[2] {
		r.detected = true
		r.markerEnd = n
	}
	return false
}

// Process reads events until the channel is closed, sending forwarded
// fragments to out. Only EventChatModelStream events are read. It returns
// ctx.Err() if ctx is done before events is closed. out is not closed.
func (r *AnswerRun) Process(ctx context.Context, events <-chan StreamEvent, out chan<- string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Kind != EventChatModelStream {
				continue
			}
			fragment := ev.Data.Chunk.Content
			if !r.Observe(fragment) {
				continue
			}
			select {
			case out <- fragment:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Detected reports whether the marker has been seen in the stream.
func (r *AnswerRun) Detected() bool { return r.detected }

// Chunks returns a copy of every fragment received so far.
func (r *AnswerRun) Chunks() []string {
	return append([]string(nil), r.chunks...)
}

// FullResponse concatenates every fragment received so far.
func (r *AnswerRun) FullResponse() string {
	return strings.Join(r.chunks, "")
}

// Result is the authoritative answer of the run: the text after the first
// literal FinalAnswerMarker in the full response, leading whitespace removed.
// When the literal marker is absent but the streamed marker was detected, the
// text after the streamed marker is used. Otherwise FallbackAnswer.
func (r *AnswerRun) Result() string {
	if answer, ok := FinalAnswer(r.FullResponse()); ok {
		return answer
	}
	if r.detected {
		return strings.TrimLeftFunc(strings.Join(r.chunks[r.markerEnd:], ""), unicode.IsSpace)
	}
	return FallbackAnswer
}

// FinalAnswer returns the text following the first FinalAnswerMarker in full,
// with leading whitespace removed. ok is false when the marker is absent.
func FinalAnswer(full string) (answer string, ok bool) {
	i := strings.Index(full, FinalAnswerMarker)
	if i == -1 {
		return "", false
	}
	return strings.TrimLeftFunc(full[i+len(FinalAnswerMarker):], unicode.IsSpace), true
}

// StreamAnswer runs engine on input and forwards final-answer fragments to out.
// out is closed before StreamAnswer returns. The returned string is the run's
// Result. If the engine fails, the fragments already sent stay delivered and
// the failure is returned as an *ErrUpstream.
//
// Cancelling ctx stops the run: the engine context is cancelled and
// StreamAnswer waits for the engine to return before it does.
func StreamAnswer(ctx context.Context, engine Engine, input map[string]any, out chan<- string) (string, error) {
	defer close(out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan StreamEvent, 64)
	done := make(chan error, 1)
	go func() {
		done <- engine.StreamEvents(ctx, input, events)
	}()

	run := NewAnswerRun()
	procErr := run.Process(ctx, events, out)
	if procErr != nil {
		cancel()
		// Drain so an engine blocked on send can observe cancellation and return.
		go func() {
			for range events {
			}
		}()
	}

	engineErr := <-done
	switch {
	case procErr != nil:
		return "", &ErrUpstream{Err: procErr}
	case engineErr != nil:
		return "", &ErrUpstream{Err: engineErr}
	}
	return run.Result(), nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrScriptExhausted indicates an invocation past the end of the script.
var ErrScriptExhausted = errors.New("script exhausted")

// Scripted replays a fixed queue of replies in order. It stands in for a
// live provider in tests and scenario rehearsals, recording every request
// it serves.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	requests []Request
}

var _ Invoker = (*Scripted)(nil)

// NewScripted queues replies in the order they will be served.
func NewScripted(replies ...Reply) *Scripted {
	return &Scripted{replies: append([]Reply(nil), replies...)}
}

// Invoke serves the next queued reply.
func (s *Scripted) Invoke(ctx context.Context, req Request) (Reply, error) {
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return Reply{}, fmt.Errorf("%w: request %d", ErrScriptExhausted, len(s.requests))
	}

	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

// Requests returns a copy of every request served so far, in order.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Remaining reports how many scripted replies are still queued.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}

// Narrate builds a narration-only reply.
func Narrate(text string) Reply {
	return Reply{Narration: text}
}

// Call builds an action request with a generated correlation id.
func Call(name string, args map[string]any) ActionRequest {
	return ActionRequest{ID: uuid.New().String(), Name: name, Args: args}
}

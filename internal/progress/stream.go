package progress

import (
	"context"
	"fmt"

	"github.com/hetulpatel/crossarb/internal/logging"
)

const DefaultBuffer = 64

const (
	TypeProgress = "progress"
	TypeDone     = "done"
	TypeError    = "error"
)

// Message is one frame sent to a client while a run is in flight.
type Message struct {
	Type  string `json:"type"`
	RunID string `json:"run_id,omitempty"`
	Msg   string `json:"msg,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Func is a long-running job that reports progress lines as it goes.
type Func func(ctx context.Context, report func(string)) (any, error)

// Sender delivers one message to the client.
type Sender func(Message) error

// Stream runs fn on its own goroutine and forwards its progress lines to send
// in order through a channel holding at most buffer lines. The done or error
// message is sent only after fn has returned and the channel is drained.
//
// If send fails the client is gone: Stream returns the send error right away
// and a background drainer keeps consuming progress so fn runs to completion.
// fn is never cancelled by a failed send.
func Stream(ctx context.Context, runID string, buffer int, fn Func, send Sender) error {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan string, buffer)
	var (
		result any
		runErr error
	)
	go func() {
		defer close(ch)
		result, runErr = run(ctx, fn, func(msg string) { ch <- msg })
	}()

	for msg := range ch {
		if err := send(Message{Type: TypeProgress, RunID: runID, Msg: msg}); err != nil {
			logging.Debugf("[progress] run %s: client gone (%v), draining in background", runID, err)
			go drain(ch)
			return err
		}
	}

	if runErr != nil {
		return send(Message{Type: TypeError, RunID: runID, Msg: runErr.Error()})
	}
	return send(Message{Type: TypeDone, RunID: runID, Data: result})
}

func run(ctx context.Context, fn Func, report func(string)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()
	return fn(ctx, report)
}

func drain(ch <-chan string) {
	for range ch {
	}
}

// Package progress implements a multi-producer, single-consumer stream of
// typed status messages threaded through every stage. Senders hold a cheap
// clonable handle; the receiver is single-owner and external (a CLI
// renderer, or nothing at all). Dropping the receiver must never crash a
// sender.
package progress

import (
	"log"

	"github.com/orneryd/corpusgraph/internal/corpuserr"
	"github.com/orneryd/corpusgraph/internal/stageid"
)

// Message is the closed set of status variants the executor and stages may
// emit.
type Message struct {
	Kind Kind

	// StepsCreated
	Steps []stageid.ID

	// Info, Warning
	Text string

	// Progress
	Done, Total int

	// StepDone, Failed
	Step stageid.ID
	Err  error
}

// Kind is the closed set of progress message variants.
type Kind uint8

const (
	StepsCreated Kind = iota
	Info
	Warning
	Progress
	StepDone
	Failed
)

// Sender is a cheap, clonable handle producers use to emit messages. The
// zero value is not usable; obtain one from New.
type Sender struct {
	ch chan Message
}

// Receiver is the single-owner consumer of a channel's message stream.
type Receiver struct {
	ch chan Message
}

// New creates a bounded channel of the given capacity and returns its sender
// and receiver halves. Capacity bounds how many in-flight messages a chatty
// stage may queue before Send blocks, applying backpressure rather than
// growing without limit.
func New(capacity int) (Sender, Receiver) {
	ch := make(chan Message, capacity)
	return Sender{ch: ch}, Receiver{ch: ch}
}

// Send delivers msg to the receiver, blocking if the channel is full. It
// returns without error once the receiver has been dropped and the channel
// closed by Receiver.Close; callers that need to detect a dropped receiver
// should use TrySend.
func (s Sender) Send(msg Message) {
	defer func() {
		// A send on a channel closed by Receiver.Close panics; swallow it,
		// matching the "dropping the receiver must not crash senders"
		// requirement. The failure is non-fatal to the caller's stage, but
		// it is still logged as a SendStatusError rather than vanishing.
		if r := recover(); r != nil {
			err := &corpuserr.SendStatusError{Reason: "receiver closed"}
			log.Printf("progress: %v (message kind %d dropped)", err, msg.Kind)
		}
	}()
	s.ch <- msg
}

// TrySend delivers msg without blocking. It returns false if the channel is
// full or closed.
func (s Sender) TrySend(msg Message) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

// Recv returns the next message and true, or a zero Message and false once
// the channel has been closed and drained.
func (r Receiver) Recv() (Message, bool) {
	m, ok := <-r.ch
	return m, ok
}

// Close closes the underlying channel. Safe to call once the receiver is no
// longer interested in further messages; any sender still holding a handle
// degrades to a no-op via the recover in Send/TrySend rather than panicking.
func (r Receiver) Close() {
	defer func() { recover() }()
	close(r.ch)
}

// Convenience constructors mirroring the Kind variants.

func NewStepsCreated(steps []stageid.ID) Message { return Message{Kind: StepsCreated, Steps: steps} }
func NewInfo(text string) Message                { return Message{Kind: Info, Text: text} }
func NewWarning(text string) Message             { return Message{Kind: Warning, Text: text} }
func NewProgress(done, total int) Message        { return Message{Kind: Progress, Done: done, Total: total} }
func NewStepDone(step stageid.ID) Message        { return Message{Kind: StepDone, Step: step} }
func NewFailed(err error) Message                { return Message{Kind: Failed, Err: err} }

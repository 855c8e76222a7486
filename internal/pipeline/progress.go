package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Phase tags a progress event with the pipeline state that produced it.
type Phase string

const (
	PhaseStorySummary Phase = "story_summary"
	PhaseCharacters   Phase = "characters"
	PhaseSettings     Phase = "settings"
	PhaseParts        Phase = "parts"
	PhaseChapters     Phase = "chapters"
	PhaseScenes       Phase = "scenes"
	PhaseSceneContent Phase = "scene_content"
	PhaseAssembling   Phase = "assembling"
	PhaseComplete     Phase = "complete"
	PhaseFailed       Phase = "failed"
)

// ProgressEvent is one entry in the run's append-only progress stream.
// Sequence numbers increase strictly in publish order.
type ProgressEvent struct {
	Seq      int64  `json:"seq"`
	Phase    Phase  `json:"phase"`
	Message  string `json:"message"`
	Payload  any    `json:"payload,omitempty"`
	Terminal bool   `json:"terminal"`
}

// progressQueue is a bounded, single-consumer event buffer. Publishing
// never blocks: when the buffer is full the oldest non-terminal event is
// dropped. The terminal complete/failed event is never dropped, so a slow
// consumer always learns how the run ended.
type progressQueue struct {
	mu       sync.Mutex
	buf      []ProgressEvent
	capacity int
	seq      int64
	dropped  int
	closed   bool
	notify   chan struct{}
	logger   *slog.Logger
}

func newProgressQueue(capacity int, logger *slog.Logger) *progressQueue {
	if capacity < 2 {
		capacity = 2
	}
	return &progressQueue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		logger:   logger,
	}
}

// publish appends an event, assigning the next sequence number. A terminal
// event closes the queue; publishes after close are ignored (results of
// cancelled in-flight work).
func (q *progressQueue) publish(phase Phase, message string, payload any, terminal bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	q.seq++
	ev := ProgressEvent{
		Seq:      q.seq,
		Phase:    phase,
		Message:  message,
		Payload:  payload,
		Terminal: terminal,
	}

	if len(q.buf) >= q.capacity {
		// Drop the oldest droppable event. Terminal events are only ever
		// appended last, so index 0 is always safe here.
		q.buf = q.buf[1:]
		q.dropped++
		q.logger.Warn("progress buffer full, dropped oldest event", "dropped_total", q.dropped)
	}
	q.buf = append(q.buf, ev)
	if terminal {
		q.closed = true
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// next pops the oldest buffered event. ok is false when the buffer is
// drained; done additionally reports that the terminal event has been
// consumed and no more will come.
func (q *progressQueue) next() (ev ProgressEvent, ok, done bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		return ProgressEvent{}, false, q.closed
	}
	ev = q.buf[0]
	q.buf = q.buf[1:]
	return ev, true, q.closed && len(q.buf) == 0
}

// streamDrainGrace bounds how long stream keeps delivering after its
// context is cancelled.
const streamDrainGrace = 200 * time.Millisecond

// stream drains the queue into a channel until the terminal event has been
// delivered, then closes it. Intended for a single consumer. Cancelling
// the context bounds the drain: a consumer that keeps reading still
// receives the buffered tail within the grace window, while an abandoned
// channel releases the goroutine when the window lapses instead of
// stranding it on the send.
func (q *progressQueue) stream(ctx context.Context) <-chan ProgressEvent {
	out := make(chan ProgressEvent)
	go func() {
		defer close(out)

		cancelled := ctx.Done()
		var expired <-chan time.Time
		expire := func() {
			cancelled = nil
			expired = time.After(streamDrainGrace)
		}

		for {
			ev, ok, done := q.next()
			if ok {
				select {
				case out <- ev:
				case <-expired:
					return
				case <-cancelled:
					expire()
					select {
					case out <- ev:
					case <-expired:
						return
					}
				}
				if ev.Terminal {
					return
				}
				continue
			}
			if done {
				return
			}
			select {
			case <-q.notify:
			case <-expired:
				return
			case <-cancelled:
				expire()
			}
		}
	}()
	return out
}

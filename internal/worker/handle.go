package worker

import (
	"log/slog"

	"tools.zach/dev/dispresence/internal/presence"
)

// ///////////////////////////////////////////////
// Handle
// ///////////////////////////////////////////////

// Handle is the owner's grip on a running worker: the send side of its stop
// signal and a view of its liveness. A nil *Handle means no worker and is
// safe to query.
type Handle struct {
	worker *Worker
	stop   *Signal
	done   chan struct{}
}

// Start clones cfg and runs a new worker for it on its own goroutine.
// Only one worker should broadcast at a time; callers stop and wait for the
// previous handle before starting another.
func Start(conn Conn, cfg *presence.Config, opts Options) *Handle {
	stop := NewSignal()
	h := &Handle{
		worker: New(conn, cfg.Clone(), stop, opts),
		stop:   stop,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("presence worker panic", "error", r)
			}
		}()
		h.worker.Run()
	}()

	return h
}

// Stop asks the worker to stop. It does not wait; use [Handle.Done].
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.stop.Send()
}

// Done returns a channel closed once the worker has stopped and released its
// connection. For a nil handle the channel is already closed.
func (h *Handle) Done() <-chan struct{} {
	if h == nil {
		return closedChan
	}
	return h.done
}

// Running reports whether the worker goroutine is still alive.
func (h *Handle) Running() bool {
	if h == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// State returns the worker's lifecycle state, or [Stopped] for a nil handle.
func (h *Handle) State() State {
	if h == nil {
		return Stopped
	}
	return h.worker.State()
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Package worker runs the background loop that keeps a presence broadcast
// alive: connect with backoff, push the activity on a fixed interval,
// reconnect when a push fails, and stop on request.
//
// The loop moves through [Connecting], [Updating] and finally [Stopped]. It
// never returns to Connecting once it has left it; connection loss while
// updating is handled by [Conn.Reconnect] inside the update iteration.
package worker

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"tools.zach/dev/dispresence/internal/discord"
	"tools.zach/dev/dispresence/internal/logger"
	"tools.zach/dev/dispresence/internal/presence"
)

// ///////////////////////////////////////////////
// Defaults
// ///////////////////////////////////////////////

const (
	// DefaultUpdateInterval is how often the activity is re-sent.
	DefaultUpdateInterval = 15 * time.Second
	// DefaultBackoffMin is the wait after the first failed connect.
	DefaultBackoffMin = 250 * time.Millisecond
	// DefaultBackoffMax caps the connect backoff before jitter.
	DefaultBackoffMax = 30 * time.Second

	// jitterFraction is the largest share of a backoff step added as jitter.
	jitterFraction = 0.2
)

// ///////////////////////////////////////////////
// State
// ///////////////////////////////////////////////

// State is the worker's position in its lifecycle.
type State int32

const (
	Connecting State = iota
	Updating
	Stopped
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Updating:
		return "updating"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ///////////////////////////////////////////////
// Connection
// ///////////////////////////////////////////////

// Conn is the IPC connection a worker drives. [discord.Client] implements it.
type Conn interface {
	Connect() error
	SetActivity(*discord.Activity) error
	Reconnect() error
	Close() error
}

var _ Conn = (*discord.Client)(nil)

// ///////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////

// Options tunes the worker's timing. Zero values take the defaults above.
type Options struct {
	UpdateInterval time.Duration
	BackoffMin     time.Duration
	BackoffMax     time.Duration

	// Clock drives every wait. Defaults to the real clock.
	Clock clockwork.Clock
	// Jitter returns a value in [0, 1) scaled into the backoff jitter.
	// Defaults to math/rand.
	Jitter func() float64
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.UpdateInterval <= 0 {
		o.UpdateInterval = DefaultUpdateInterval
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = DefaultBackoffMin
	}
	if o.BackoffMax < o.BackoffMin {
		o.BackoffMax = max(DefaultBackoffMax, o.BackoffMin)
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Jitter == nil {
		o.Jitter = rand.Float64
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// ///////////////////////////////////////////////
// Worker
// ///////////////////////////////////////////////

// Worker owns one connection and one configuration snapshot for its whole
// lifetime. Run it on its own goroutine; [Start] does that and hands back a
// [Handle].
type Worker struct {
	conn  Conn
	cfg   *presence.Config
	stop  *Signal
	opts  Options
	log   *slog.Logger
	state atomic.Int32
}

// New creates a worker that will broadcast cfg over conn until stop is sent.
// cfg must not be modified afterwards; [Start] passes a clone.
func New(conn Conn, cfg *presence.Config, stop *Signal, opts Options) *Worker {
	opts = opts.withDefaults()
	return &Worker{
		conn: conn,
		cfg:  cfg,
		stop: stop,
		opts: opts,
		log:  opts.Logger.With("app_id", cfg.AppID),
	}
}

// State returns the current lifecycle state. Safe from any goroutine.
func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) setState(s State) {
	if State(w.state.Swap(int32(s))) != s {
		w.log.Info("presence worker state", "state", s.String())
	}
}

// Run drives the worker to completion. It returns once the worker has
// reached [Stopped] and closed its connection. Connection and send failures
// are retried indefinitely and never returned.
func (w *Worker) Run() {
	defer w.shutdown()

	if !w.connect() {
		return
	}
	w.update()
}

// connect calls Connect until it succeeds, sleeping a jittered exponential
// backoff between failures. It returns false if a stop arrives during a wait.
func (w *Worker) connect() bool {
	w.setState(Connecting)

	for attempt := 1; ; attempt++ {
		err := w.conn.Connect()
		if err == nil {
			w.log.Info("connected to discord", "attempts", attempt)
			return true
		}

		delay := w.backoff(attempt)
		if attempt == 1 {
			w.log.Warn("discord connect failed, retrying", "error", err, "retry_in", delay)
		} else {
			w.log.Debug("discord connect failed", "attempt", attempt, "error", err, "retry_in", delay)
		}

		if !w.wait(delay) {
			return false
		}
	}
}

// update is the steady-state loop: send, recover, check for stop, wait.
func (w *Worker) update() {
	w.setState(Updating)

	failing := false
	for {
		activity := w.cfg.Activity()
		logger.Trace(w.log, "sending presence", "details", activity.Details, "state", activity.State)
		err := w.conn.SetActivity(activity)
		if err == nil {
			if failing {
				w.log.Info("presence update recovered")
			}
			failing = false
		} else {
			w.logSendFailure(err, failing)
			failing = true

			rerr := w.conn.Reconnect()
			if rerr == nil {
				// TODO: decide whether a successful reconnect should honor a
				// pending stop before re-sending; today it re-sends at once.
				w.log.Debug("reconnected to discord, re-sending presence")
				continue
			}
			w.log.Debug("discord reconnect failed", "error", rerr)
		}

		if w.stop.Requested() {
			return
		}
		if !w.wait(w.opts.UpdateInterval) {
			return
		}
	}
}

func (w *Worker) logSendFailure(err error, failing bool) {
	if failing {
		w.log.Debug("presence update failed", "error", err)
		return
	}
	w.log.Warn("presence update failed, reconnecting", "error", err)
}

// shutdown marks the worker stopped and releases the connection.
func (w *Worker) shutdown() {
	w.setState(Stopped)
	if err := w.conn.Close(); err != nil {
		w.log.Debug("closing discord connection", "error", err)
	}
}

// wait sleeps for d on the worker's clock. It returns false if a stop
// arrives first.
func (w *Worker) wait(d time.Duration) bool {
	t := w.opts.Clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.Chan():
		return true
	case <-w.stop.C():
		return false
	}
}

// backoff returns the wait after the given failed connect attempt (1-based):
// BackoffMin doubled per attempt, capped at BackoffMax, plus up to 20% jitter.
func (w *Worker) backoff(attempt int) time.Duration {
	d := w.opts.BackoffMin
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= w.opts.BackoffMax {
			d = w.opts.BackoffMax
			break
		}
	}
	return d + time.Duration(w.opts.Jitter()*jitterFraction*float64(d))
}

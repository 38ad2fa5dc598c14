package worker

import "sync"

// ///////////////////////////////////////////////
// Stop Signal
// ///////////////////////////////////////////////

// Signal is a one-shot stop request. The sending side may call [Signal.Send]
// any number of times from any goroutine; only the first has an effect and
// none of them block. The receiving side polls [Signal.Requested] or selects
// on [Signal.C].
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

// NewSignal returns a signal that has not been sent.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Send requests a stop.
func (s *Signal) Send() {
	s.once.Do(func() { close(s.ch) })
}

// Requested reports whether Send has been called. It never blocks.
func (s *Signal) Requested() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}

// C returns a channel that is closed once Send has been called.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}

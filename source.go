package flowpipe

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/karalabe/flowpipe/internal/deadline"
)

// Source is the read endpoint of a pipe, returned by Pipe.
type Source struct {
	state *pipeState

	deadline deadline.Deadline
	ctx      atomic.Pointer[context.Context]

	closed atomic.Bool
}

func newSource(st *pipeState) *Source {
	s := &Source{state: st}
	background := context.Background()
	s.ctx.Store(&background)
	return s
}

// Deadline returns the source's own deadline, consulted by every blocking
// Read. Use its Set method to bound future reads; the zero value never
// elapses.
func (s *Source) Deadline() *deadline.Deadline {
	return &s.deadline
}

// SetContext binds ctx to this endpoint; a blocked Read returns
// ErrInterrupted as soon as ctx is done. The default is
// context.Background(), which never interrupts.
func (s *Source) SetContext(ctx context.Context) {
	s.ctx.Store(&ctx)
}

func (s *Source) context() context.Context {
	return *s.ctx.Load()
}

// Read implements io.Reader. It returns io.EOF once the sink has closed
// and the buffer has fully drained; for a non-empty p it never returns
// (0, nil).
func (s *Source) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if s.closed.Load() {
		return 0, ErrClosedPipe
	}

	st := s.state
	st.mu.Lock()
	defer st.mu.Unlock()

	for {
		if st.buf.Len() > 0 {
			n := st.buf.Read(p)
			st.cond.Broadcast()
			return n, nil
		}
		if st.sinkClosed {
			return 0, io.EOF
		}

		switch s.deadline.Wait(st.cond, s.context()) {
		case deadline.Elapsed:
			return 0, ErrTimeout
		case deadline.Interrupted:
			return 0, ErrInterrupted
		}
	}
}

// Close closes the read endpoint. It is idempotent. Bytes still buffered
// are never delivered to anyone (Read on a closed Source fails with
// ErrClosedPipe); they stay counted in the buffer so that a later Flush or
// Close on the sink reports them as lost with ErrSourceClosed. The sink,
// woken by the broadcast, observes sourceClosed and fails its own pending
// or future writes instead of having them silently succeed into the void.
func (s *Source) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	st := s.state
	st.mu.Lock()
	st.sourceClosed = true
	st.cond.Broadcast()
	st.log.Debug().Msg("flowpipe: source closed")
	st.mu.Unlock()

	return nil
}

// Fold diverts the pipe's future bytes directly into dst, making the pipe
// a transparent conduit: Write calls on the sink after this point are
// forwarded to dst outside the pipe's own lock, Flush delegates to
// dst.Flush, and Close on the sink also closes dst.
//
// Fold fails with ErrIllegalState unless the internal buffer is currently
// empty, neither endpoint is closed, and no fold is already in place.
func (s *Source) Fold(dst Sink) error {
	st := s.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.buf.Len() != 0 || st.sinkClosed || st.sourceClosed || st.foldedSink != nil {
		return ErrIllegalState
	}

	st.foldedSink = dst
	st.cond.Broadcast()
	st.log.Debug().Msg("flowpipe: source folded onto downstream sink")
	return nil
}

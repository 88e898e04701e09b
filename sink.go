package flowpipe

import (
	"context"
	"sync/atomic"

	"github.com/karalabe/flowpipe/internal/deadline"
)

// SinkEndpoint is the write endpoint of a pipe, returned by Pipe. It
// implements Sink.
type SinkEndpoint struct {
	state *pipeState

	deadline deadline.Deadline
	ctx      atomic.Pointer[context.Context]

	closed atomic.Bool
}

func newSink(st *pipeState) *SinkEndpoint {
	s := &SinkEndpoint{state: st}
	background := context.Background()
	s.ctx.Store(&background)
	return s
}

// Deadline returns the sink's own deadline, consulted by every blocking
// Write. Use its Set method to bound future writes; the zero value never
// elapses.
func (s *SinkEndpoint) Deadline() *deadline.Deadline {
	return &s.deadline
}

// SetContext binds ctx to this endpoint; a blocked Write returns
// ErrInterrupted as soon as ctx is done. The default is
// context.Background(), which never interrupts.
func (s *SinkEndpoint) SetContext(ctx context.Context) {
	s.ctx.Store(&ctx)
}

func (s *SinkEndpoint) context() context.Context {
	return *s.ctx.Load()
}

// Write implements Sink.
func (s *SinkEndpoint) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosedPipe
	}

	st := s.state
	total := 0

	for len(p) > 0 {
		st.mu.Lock()

		if fs := st.foldedSink; fs != nil {
			st.mu.Unlock()
			n, err := fs.Write(p)
			return total + n, err
		}
		if st.sourceClosed {
			st.mu.Unlock()
			return total, ErrSourceClosed
		}

		available := st.capacity - st.buf.Len()
		for available <= 0 {
			switch s.deadline.Wait(st.cond, s.context()) {
			case deadline.Elapsed:
				st.mu.Unlock()
				return total, ErrTimeout
			case deadline.Interrupted:
				st.mu.Unlock()
				return total, ErrInterrupted
			}
			if st.sourceClosed {
				st.mu.Unlock()
				return total, ErrSourceClosed
			}
			if fs := st.foldedSink; fs != nil {
				st.mu.Unlock()
				n, err := fs.Write(p)
				return total + n, err
			}
			available = st.capacity - st.buf.Len()
		}

		n := len(p)
		if n > available {
			n = available
		}
		st.buf.Write(p[:n])
		p = p[n:]
		total += n

		st.cond.Broadcast()
		st.mu.Unlock()
	}

	return total, nil
}

// Flush implements Sink. It never blocks: for an in-memory pipe every
// byte Write has accepted is already observable by the reader, so Flush
// only needs to surface the case where those bytes are now unreachable
// because the reader is gone.
func (s *SinkEndpoint) Flush() error {
	if s.closed.Load() {
		return ErrClosedPipe
	}

	st := s.state
	st.mu.Lock()
	fs := st.foldedSink
	if fs != nil {
		st.mu.Unlock()
		return fs.Flush()
	}
	lost := st.sourceClosed && st.buf.Len() > 0
	st.mu.Unlock()

	if lost {
		return ErrSourceClosed
	}
	return nil
}

// Close implements Sink. It is idempotent: a second call is a no-op.
func (s *SinkEndpoint) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	st := s.state
	st.mu.Lock()
	st.sinkClosed = true
	lost := st.sourceClosed && st.buf.Len() > 0
	fs := st.foldedSink
	st.cond.Broadcast()
	st.log.Debug().Bool("bytes_lost", lost).Msg("flowpipe: sink closed")
	st.mu.Unlock()

	if fs != nil {
		fs.Close()
	}
	if lost {
		return ErrSourceClosed
	}
	return nil
}

// Package flowpipe implements an in-memory, bounded, single-producer/
// single-consumer byte pipe with blocking flow control and deadline-based
// cancellation.
//
// A pipe has two endpoints, created together by Pipe: a write-side Sink
// and a read-side Source, connected by a fixed-capacity internal buffer.
// Writers block when the buffer is full; readers block when it's empty.
// Closing either side unblocks and terminates the other in a well-defined
// way (see the Sink and Source doc comments).
package flowpipe

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/karalabe/flowpipe/internal/segbuf"
)

// Sink is the write side of a pipe, or any other destination a Source can
// be folded into (see Source.Fold). *SinkEndpoint, returned by Pipe,
// implements it; so can an arbitrary caller-supplied destination such as
// an HTTP request body. It is not safe for concurrent calls to Write (a
// pipe has exactly one producer); Close and Flush may be called from a
// different goroutine than Write, since they only touch state guarded by
// the pipe's own lock.
type Sink interface {
	// Write copies len(p) bytes into the pipe, blocking while the internal
	// buffer is full. A short write never happens: Write either moves every
	// byte of p or returns an error alongside however many of the leading
	// bytes it managed to deliver first. p is never retained beyond the
	// call, so the caller is free to reuse or overwrite it as soon as
	// Write returns, the same contract io.Writer implementations give.
	Write(p []byte) (int, error)
	// Flush reports whether every byte Write has accepted so far is
	// guaranteed to still find a reader. It never blocks.
	Flush() error
	// Close terminates the sink. It is idempotent.
	Close() error
}

// pipeState is the rendezvous object shared by exactly one *SinkEndpoint
// and one *Source: capacity, internal buffer, close flags, and the
// single monitor + condition every wait site blocks on. All field access
// happens under mu.
type pipeState struct {
	mu   sync.Mutex
	cond *sync.Cond

	capacity int
	buf      segbuf.Buffer

	sinkClosed   bool
	sourceClosed bool

	foldedSink Sink

	log zerolog.Logger
}

func newPipeState(capacity int, log zerolog.Logger) *pipeState {
	st := &pipeState{
		capacity: capacity,
		log:      log,
	}
	st.cond = sync.NewCond(&st.mu)
	return st
}

// Option configures a pipe at construction time.
type Option func(*pipeState)

// WithLogger attaches a zerolog.Logger that the pipe uses, at Debug level,
// to report sink/source close and fold transitions. The default is a
// no-op logger, so enabling it costs nothing unless the caller wants the
// visibility.
func WithLogger(log zerolog.Logger) Option {
	return func(st *pipeState) {
		st.log = log
	}
}

// Pipe creates a new pipe with the given capacity (the maximum number of
// bytes the internal buffer may hold before a Write blocks) and returns
// its two endpoints. capacity must be positive.
func Pipe(capacity int, opts ...Option) (*SinkEndpoint, *Source) {
	if capacity <= 0 {
		panic("flowpipe: capacity must be positive")
	}

	st := newPipeState(capacity, zerolog.Nop())
	for _, opt := range opts {
		opt(st)
	}

	return newSink(st), newSource(st)
}

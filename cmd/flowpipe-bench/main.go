// Command flowpipe-bench drives a flowpipe.Pipe end to end and reports
// whether the bytes the producer sent match the bytes the consumer
// received, optionally under artificial reader/writer deadlines.
package main

import (
	"crypto/sha256"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/karalabe/flowpipe"
)

var (
	capacity      int
	chunkSize     int
	totalBytes    int64
	seed          int64
	writeDeadline time.Duration
	readDeadline  time.Duration
	verbose       bool
)

func main() {
	root := &cobra.Command{
		Use:   "flowpipe-bench",
		Short: "Exercise a flowpipe.Pipe producer/consumer and verify the bytes match",
		RunE:  run,
	}

	root.Flags().IntVar(&capacity, "capacity", 1000, "pipe capacity in bytes")
	root.Flags().IntVar(&chunkSize, "chunk", 8192, "producer write size in bytes")
	root.Flags().Int64Var(&totalBytes, "bytes", 16*1024*1024, "total bytes to push through the pipe")
	root.Flags().Int64Var(&seed, "seed", 0, "RNG seed for the generated payload")
	root.Flags().DurationVar(&writeDeadline, "write-deadline", 0, "sink deadline (0 disables it)")
	root.Flags().DurationVar(&readDeadline, "read-deadline", 0, "source deadline (0 disables it)")
	root.Flags().BoolVar(&verbose, "verbose", false, "log pipe state transitions")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := zerolog.Nop()
	if verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	sink, source := flowpipe.Pipe(capacity, flowpipe.WithLogger(log))
	if writeDeadline > 0 {
		sink.Deadline().Set(time.Now().Add(writeDeadline))
	}
	if readDeadline > 0 {
		source.Deadline().Set(time.Now().Add(readDeadline))
	}

	producerSum, consumerSum, err := race(sink, source)
	if err != nil {
		return errors.Wrap(err, "run pipe scenario")
	}

	if fmt.Sprintf("%x", producerSum) != fmt.Sprintf("%x", consumerSum) {
		return errors.New("producer and consumer hashes diverged")
	}

	fmt.Printf("PASS: %d bytes, capacity=%d, chunk=%d, hash=%x\n", totalBytes, capacity, chunkSize, producerSum)
	return nil
}

// race runs the producer and consumer concurrently and returns their
// respective SHA-256 sums of the bytes they handled.
func race(sink *flowpipe.SinkEndpoint, source *flowpipe.Source) (producer, consumer []byte, err error) {
	var wg sync.WaitGroup
	wg.Add(1)

	var writeErr error
	producerHash := sha256.New()
	go func() {
		defer wg.Done()
		defer sink.Close()

		rng := rand.New(rand.NewSource(seed))
		remaining := totalBytes
		chunk := make([]byte, chunkSize)
		for remaining > 0 {
			n := int64(len(chunk))
			if n > remaining {
				n = remaining
			}
			rng.Read(chunk[:n])
			producerHash.Write(chunk[:n])

			if _, err := sink.Write(chunk[:n]); err != nil {
				writeErr = errors.Wrap(err, "sink write")
				return
			}
			remaining -= n
		}
	}()

	consumerHash := sha256.New()
	buf := make([]byte, 64*1024)
	var readErr error
readLoop:
	for {
		n, err := source.Read(buf)
		if n > 0 {
			consumerHash.Write(buf[:n])
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			break readLoop
		default:
			readErr = errors.Wrap(err, "source read")
			source.Close()
			break readLoop
		}
	}

	wg.Wait()
	if writeErr != nil {
		return nil, nil, writeErr
	}
	if readErr != nil {
		return nil, nil, readErr
	}
	return producerHash.Sum(nil), consumerHash.Sum(nil), nil
}

package flowpipe

import "io"

// Copy copies from src to dst through a capacity-sized pipe until either
// EOF is reached on src or an error occurs. It returns the number of bytes
// copied and the first error encountered while copying, if any.
//
// A successful Copy returns err == nil, not err == io.EOF. Because Copy is
// defined to read from src until EOF, it does not treat an EOF from Read
// as an error to be reported.
//
// Internally, one goroutine reads src and writes into the pipe, while the
// calling goroutine reads the pipe and writes into dst. This lets both
// endpoints run simultaneously, without one blocking the other beyond what
// the pipe's capacity imposes.
func Copy(dst io.Writer, src io.Reader, capacity int) (written int64, err error) {
	sink, source := Pipe(capacity)

	errc := make(chan error, 1)
	go func() {
		_, err := io.Copy(sink, src)
		sink.Close()
		errc <- err
	}()

	written, errOut := io.Copy(dst, source)
	source.Close()

	errIn := <-errc
	if errOut != nil {
		return written, errOut
	}
	return written, errIn
}

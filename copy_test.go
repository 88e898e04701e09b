package flowpipe

import (
	"bytes"
	"io"
	"math/rand"
	"testing"
)

// Random test data, regenerated per test run from a fixed seed so failures
// reproduce.
var copyTestData = randomBytes(4 * 1024 * 1024)

func randomBytes(length int) []byte {
	src := rand.NewSource(0)

	data := make([]byte, length)
	for i := 0; i < length; i++ {
		data[i] = byte(src.Int63() & 0xff)
	}
	return data
}

// Tests of various pipe capacities to catch segment boundary bugs.
func TestCopyCapacity3333(t *testing.T) {
	testCopy(3333, t)
}

func TestCopyCapacity33333(t *testing.T) {
	testCopy(33333, t)
}

func TestCopyCapacity333333(t *testing.T) {
	testCopy(333333, t)
}

func testCopy(capacity int, t *testing.T) {
	rb := bytes.NewBuffer(copyTestData)
	wb := new(bytes.Buffer)

	n, err := Copy(wb, rb, capacity) // odd capacity to catch index bugs
	if err != nil {
		t.Fatalf("failed to copy data: %v.", err)
	}
	if int(n) != len(copyTestData) {
		t.Fatalf("data length mismatch: have %d, want %d.", n, len(copyTestData))
	}
	if !bytes.Equal(copyTestData, wb.Bytes()) {
		t.Errorf("copy did not reproduce the source bytes.")
	}
}

// TestCopyNonWriterToSource wraps the source in io.LimitReader, which has
// no WriteTo method of its own and doesn't forward to the underlying
// bytes.Reader's, so io.Copy inside Copy can't take its io.WriterTo fast
// path; it falls back to its own internal buffer and calls sink.Write
// with the same backing array on every iteration. Copy must still
// reproduce the source exactly even though that buffer is overwritten as
// soon as each Write returns.
func TestCopyNonWriterToSource(t *testing.T) {
	rb := io.LimitReader(bytes.NewReader(copyTestData), int64(len(copyTestData)))
	wb := new(bytes.Buffer)

	n, err := Copy(wb, rb, 3333)
	if err != nil {
		t.Fatalf("failed to copy data: %v.", err)
	}
	if int(n) != len(copyTestData) {
		t.Fatalf("data length mismatch: have %d, want %d.", n, len(copyTestData))
	}
	if !bytes.Equal(copyTestData, wb.Bytes()) {
		t.Errorf("copy did not reproduce the source bytes.")
	}
}

// Benchmarks of Copy for a handful of data/capacity combinations, sweeping
// both dimensions.
func BenchmarkCopy1KbData1KbCapacity(b *testing.B) {
	benchmarkCopy(1024, 1024, b)
}

func BenchmarkCopy1KbData128KbCapacity(b *testing.B) {
	benchmarkCopy(1024, 128*1024, b)
}

func BenchmarkCopy1MbData1KbCapacity(b *testing.B) {
	benchmarkCopy(1024*1024, 1024, b)
}

func BenchmarkCopy1MbData1MbCapacity(b *testing.B) {
	benchmarkCopy(1024*1024, 1024*1024, b)
}

func benchmarkCopy(data int, capacity int, b *testing.B) {
	blob := randomBytes(data)

	b.SetBytes(int64(data))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		Copy(io.Discard, bytes.NewBuffer(blob), capacity)
	}
}

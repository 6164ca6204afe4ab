package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"imaginationai/khawab/pkg/interpret"
)

// StreamPrinter prints interpretation chunks as they arrive. Until the
// first chunk a waiting message is shown on the status writer.
type StreamPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	status  io.Writer
	started time.Time
	first   time.Duration
	chunks  int
	waiting bool
	wrote   bool
}

// NewStreamPrinter creates a printer writing text to out and the waiting
// message to status. Nil writers default to os.Stdout and os.Stderr.
func NewStreamPrinter(out, status io.Writer) *StreamPrinter {
	if out == nil {
		out = os.Stdout
	}
	if status == nil {
		status = os.Stderr
	}
	return &StreamPrinter{out: out, status: status}
}

// Start records the start time and shows message until the first chunk.
func (p *StreamPrinter) Start(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = time.Now()
	p.chunks = 0
	p.first = 0
	p.wrote = false
	if message != "" {
		fmt.Fprintf(p.status, "%s\r", message)
		p.waiting = true
	}
}

// OnChunk writes one chunk. It is passed to interpret.Client.Interpret.
func (p *StreamPrinter) OnChunk(c interpret.Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.chunks == 0 {
		p.first = time.Since(p.started)
		p.clearWaiting()
	}
	p.chunks++
	if c.Text != "" {
		fmt.Fprint(p.out, c.Text)
		p.wrote = true
	}
}

// Finish terminates the output line.
func (p *StreamPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearWaiting()
	if p.wrote {
		fmt.Fprintln(p.out)
	}
}

// Error reports a failure on the status writer.
func (p *StreamPrinter) Error(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clearWaiting()
	if p.wrote {
		fmt.Fprintln(p.out)
	}
	fmt.Fprintf(p.status, "✗ %s\n", message)
}

// Stats returns the chunk count, the time to the first chunk and the time
// since Start.
func (p *StreamPrinter) Stats() (chunks int, firstChunk, total time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chunks, p.first, time.Since(p.started)
}

func (p *StreamPrinter) clearWaiting() {
	if p.waiting {
		fmt.Fprint(p.status, "\r\033[K")
		p.waiting = false
	}
}

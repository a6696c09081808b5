package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// sink is one destination of an asyncWriter. File sinks remember their path
// so they can be reopened after logrotate moved the file away.
type sink struct {
	buf  *bufio.Writer
	file *os.File
	path string
}

// asyncWriter serializes log lines onto a single goroutine that fans them
// out to every sink.
type asyncWriter struct {
	queue   chan []byte
	control chan writerOp
	done    chan struct{}
	once    sync.Once
	bufSize int

	mu       sync.Mutex
	sinks    []*sink
	writeErr error
}

type writerOp struct {
	reopen bool
	ack    chan error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	aw := &asyncWriter{
		queue:   make(chan []byte, 256),
		control: make(chan writerOp),
		done:    make(chan struct{}),
		bufSize: bufSize,
	}
	for _, w := range writers {
		if w == nil {
			continue
		}
		s := &sink{buf: bufio.NewWriterSize(w, bufSize)}
		if f, ok := w.(*os.File); ok && f != os.Stdout && f != os.Stderr {
			s.file, s.path = f, f.Name()
		}
		aw.sinks = append(aw.sinks, s)
	}
	go aw.loop()
	return aw
}

func (w *asyncWriter) loop() {
	for {
		select {
		case data, ok := <-w.queue:
			if !ok {
				w.flushAll()
				close(w.done)
				return
			}
			if len(data) == 0 {
				continue
			}
			if err := w.writeAll(data); err != nil {
				w.setErr(err)
			}
		case op := <-w.control:
			w.drain()
			if op.reopen {
				op.ack <- w.reopenAll()
				continue
			}
			op.ack <- w.flushAll()
		}
	}
}

// drain writes the lines already queued so control ops observe them.
func (w *asyncWriter) drain() {
	for n := len(w.queue); n > 0; n-- {
		if err := w.writeAll(<-w.queue); err != nil {
			w.setErr(err)
		}
	}
}

// Write enqueues the payload for asynchronous fan-out to all sinks.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.getErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	// blocks when the queue is full; records are never dropped
	w.queue <- append([]byte(nil), p...)
	return nil
}

// Flush waits for the writer to flush all buffered content to sinks.
func (w *asyncWriter) Flush() error {
	if err := w.getErr(); err != nil {
		return err
	}
	return w.do(writerOp{})
}

// Reopen flushes and reopens every file sink at its original path. Lines
// queued before the call land in the old file, later ones in the new file.
// A successful reopen clears a previous write error.
func (w *asyncWriter) Reopen() error {
	return w.do(writerOp{reopen: true})
}

func (w *asyncWriter) do(op writerOp) error {
	op.ack = make(chan error, 1)
	select {
	case w.control <- op:
		return <-op.ack
	case <-w.done:
		return fmt.Errorf("logger: writer closed")
	}
}

// Close drains the queue, closes file sinks and reports the first
// encountered write error.
func (w *asyncWriter) Close() error {
	w.once.Do(func() {
		close(w.queue)
	})
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()
	errs := []error{w.writeErr}
	for _, s := range w.sinks {
		if s.file != nil {
			errs = append(errs, s.file.Close())
			s.file = nil
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) writeAll(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.sinks {
		if _, err := s.buf.Write(p); err != nil {
			return err
		}
		if err := s.buf.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if err := s.buf.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) reopenAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if s.path == "" {
			continue
		}
		_ = s.buf.Flush()
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			errs = append(errs, fmt.Errorf("logger: reopen %s: %w", s.path, err))
			continue
		}
		if s.file != nil {
			_ = s.file.Close()
		}
		s.file = f
		s.buf = bufio.NewWriterSize(f, w.bufSize)
	}
	if len(errs) == 0 {
		w.writeErr = nil
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) getErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeErr
}

func (w *asyncWriter) setErr(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr == nil {
		w.writeErr = err
	}
}

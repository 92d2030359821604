package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Stream frames messages as newline-delimited JSON over a byte stream. It is
// the framing used for stdio servers: one message per line, no embedded
// newlines, blank lines ignored.
type Stream struct {
	w       io.WriteCloser
	r       io.Reader
	writeMu sync.Mutex

	incoming chan []byte
	done     chan struct{}

	errMu   sync.Mutex
	readErr error

	closeOnce sync.Once
}

// NewStream starts reading frames from r. Writes go to w. Closing the stream
// closes w and, when it implements io.Closer, r.
func NewStream(r io.Reader, w io.WriteCloser) *Stream {
	s := &Stream{
		w:        w,
		r:        r,
		incoming: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
	go s.readLoop()
	return s
}

func (s *Stream) readLoop() {
	br := bufio.NewReader(s.r)
	for {
		line, err := br.ReadBytes('\n')
		if frame := bytes.TrimSpace(line); len(frame) > 0 {
			select {
			case s.incoming <- frame:
			case <-s.done:
				s.setErr(ErrClosed)
				close(s.incoming)
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				err = io.EOF
			}
			s.setErr(err)
			close(s.incoming)
			return
		}
	}
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.readErr == nil {
		s.readErr = err
	}
}

func (s *Stream) err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.readErr == nil {
		return ErrClosed
	}
	return s.readErr
}

// Send writes msg followed by a newline.
func (s *Stream) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	if bytes.ContainsAny(msg, "\r\n") {
		return fmt.Errorf("message contains a newline and cannot be framed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	frame := make([]byte, 0, len(msg)+1)
	frame = append(frame, msg...)
	frame = append(frame, '\n')
	if _, err := s.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive returns the next frame. At end of stream it returns io.EOF.
func (s *Stream) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-s.incoming:
		if !ok {
			return nil, s.err()
		}
		return msg, nil
	}
}

// Close closes both directions. It never blocks.
func (s *Stream) Close(context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		err = s.w.Close()
		s.writeMu.Unlock()
		if rc, ok := s.r.(io.Closer); ok {
			if cerr := rc.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}

// CloseWrite closes only the writing side, signalling end of input to the
// peer while still reading its remaining output.
func (s *Stream) CloseWrite() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.w.Close()
}

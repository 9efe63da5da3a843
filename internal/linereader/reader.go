// Package linereader reads trace logs one non-empty line at a time.
//
// LF and CRLF line endings are treated the same, surrounding whitespace is
// trimmed and blank lines are skipped. A Reader is single-pass: its line
// sequence can be consumed exactly once.
package linereader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
)

// maxLineSize bounds a single event line. EXEC events carry the full argv,
// which can get long for compiler and linker invocations.
const maxLineSize = 16 * 1024 * 1024

var (
	// ErrConsumed is reported when Lines is called a second time on the same Reader.
	ErrConsumed = errors.New("line sequence already consumed")
	// ErrLineTooLong is passed to ReadFile callbacks for a line over the size limit.
	ErrLineTooLong = errors.New("line exceeds maximum size")
)

// Reader yields the trimmed, non-empty lines of an underlying stream.
type Reader struct {
	src       io.Reader
	closer    io.Closer
	maxLine   int
	onTooLong func(lineNo int)
	consumed  bool
	err       error
}

// Open opens the file at path for line reading.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path) //nolint:gosec // Reading operator-supplied trace files is the purpose
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &Reader{src: f, closer: f, maxLine: maxLineSize}, nil
}

// New wraps an already open stream. The caller keeps ownership of r.
func New(r io.Reader) *Reader {
	return &Reader{src: r, maxLine: maxLineSize}
}

// OnTooLong registers fn to be called with the line number of every line
// over the size limit. Such lines are discarded and iteration goes on.
func (r *Reader) OnTooLong(fn func(lineNo int)) {
	r.onTooLong = fn
}

// Lines returns the lazy line sequence. Each element is paired with its
// 1-based physical line number in the source, blank lines included.
// Iteration stops early when ctx is cancelled; check Err afterwards.
func (r *Reader) Lines(ctx context.Context) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		if r.consumed {
			r.err = ErrConsumed
			return
		}
		r.consumed = true

		br := bufio.NewReaderSize(r.src, 64*1024)
		lineNo := 0
		for {
			raw, tooLong, err := readLine(br, r.maxLine)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					r.err = fmt.Errorf("reading line %d: %w", lineNo+1, err)
				}
				return
			}
			lineNo++
			if err := ctx.Err(); err != nil {
				r.err = err
				return
			}

			if tooLong {
				if r.onTooLong != nil {
					r.onTooLong(lineNo)
				}
				continue
			}

			// ReadLine already drops the line terminator; TrimSpace handles the rest.
			line := strings.TrimSpace(string(raw))
			if line == "" {
				continue
			}
			if !yield(lineNo, line) {
				return
			}
		}
	}
}

// readLine reads one physical line. A line longer than limit is consumed
// up to its terminator and reported as tooLong with no content.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, readErr := br.ReadLine()
		if readErr != nil {
			if len(line) > 0 || tooLong {
				return line, tooLong, nil
			}
			return nil, false, readErr
		}
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// Err returns the first error hit while iterating, if any.
func (r *Reader) Err() error {
	return r.err
}

// Close releases the underlying file. It is a no-op for readers built with New.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadFile opens path and calls fn for every non-empty line. A line over
// the size limit is reported to fn with ErrLineTooLong and no content.
// Only open and read failures are returned; what fn does with a line is its own business.
func ReadFile(ctx context.Context, path string, fn func(lineNo int, line string, err error)) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close() //nolint:errcheck // Read-only file, defer cleanup
	}()

	r.OnTooLong(func(lineNo int) {
		fn(lineNo, "", fmt.Errorf("%w (%d bytes)", ErrLineTooLong, r.maxLine))
	})
	for lineNo, line := range r.Lines(ctx) {
		fn(lineNo, line, nil)
	}

	if err := r.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// LineReader reads prompted lines from an interactive session and gives
// up when the context ends, leaving the blocked read behind.
type LineReader struct {
	reader *bufio.Reader
	out    io.Writer
	lock   sync.Mutex
}

// NewLineReader reads from in and writes prompts to out.
func NewLineReader(in io.Reader, out io.Writer) *LineReader {
	return &LineReader{reader: bufio.NewReader(in), out: out}
}

// ReadLine prints prompt and returns the trimmed line. io.EOF is returned
// once input ends with nothing left to read.
func (r *LineReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if prompt != "" && r.out != nil {
		fmt.Fprint(r.out, render(BoldStyle, strings.TrimRight(prompt, " "))+" ")
	}

	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		r.lock.Lock()
		defer r.lock.Unlock()
		value, err := r.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-resultCh:
		if errors.Is(res.err, io.EOF) && res.value != "" {
			return strings.TrimSpace(res.value), nil
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}

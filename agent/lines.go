package agent

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// LineReader hands out lines from r one at a time. The proposer and the
// confirmer of an interactive session share one reader so neither buffers
// input meant for the other.
type LineReader struct {
	r    io.Reader
	once sync.Once
	ch   chan lineOrErr
}

type lineOrErr struct {
	line string
	err  error
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r, ch: make(chan lineOrErr)}
}

func (l *LineReader) start() {
	go func() {
		sc := bufio.NewScanner(l.r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			l.ch <- lineOrErr{line: sc.Text()}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		for {
			l.ch <- lineOrErr{err: err}
		}
	}()
}

// ReadLine blocks until a line is available or ctx is done. After the input
// is exhausted it keeps returning io.EOF.
func (l *LineReader) ReadLine(ctx context.Context) (string, error) {
	l.once.Do(l.start)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case v := <-l.ch:
		return v.line, v.err
	}
}

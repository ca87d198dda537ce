package shell

import (
	"bytes"

	"github.com/quailyquaily/cmdbridge/internal/strutil"
)

const tailSize = 8 * 1024

// capture keeps the first limit bytes of a stream and, separately, its last
// tailSize bytes so the location marker survives truncation. limit <= 0
// keeps everything.
type capture struct {
	limit int
	head  bytes.Buffer
	tail  []byte
	total int64
}

func newCapture(limit int) *capture {
	return &capture{limit: limit}
}

func (c *capture) Write(p []byte) (int, error) {
	c.total += int64(len(p))
	if c.limit <= 0 {
		c.head.Write(p)
		return len(p), nil
	}
	if room := c.limit - c.head.Len(); room > 0 {
		if len(p) <= room {
			c.head.Write(p)
		} else {
			c.head.Write(p[:room])
		}
	}
	c.tail = append(c.tail, p...)
	if over := len(c.tail) - tailSize; over > 0 {
		c.tail = append(c.tail[:0], c.tail[over:]...)
	}
	return len(p), nil
}

func (c *capture) truncated() bool {
	return c.limit > 0 && c.total > int64(c.limit)
}

// text returns the captured head, cut to end before byte offset end of the
// whole stream when end >= 0.
func (c *capture) text(end int64) string {
	b := c.head.Bytes()
	if end >= 0 && end < int64(len(b)) {
		b = b[:end]
	}
	s := string(b)
	if c.truncated() {
		s = strutil.TrimIncompleteRune(s)
	}
	return s
}

// window returns the stream suffix available for marker parsing together
// with its offset in the whole stream.
func (c *capture) window() ([]byte, int64) {
	if c.limit <= 0 || !c.truncated() {
		return c.head.Bytes(), 0
	}
	return c.tail, c.total - int64(len(c.tail))
}

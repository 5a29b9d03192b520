package process

import (
	"fmt"
	"strings"
)

// captureLimit caps stdout/stderr retention per stream. The capture exists
// for diagnostics only; converters can be arbitrarily chatty.
const captureLimit = 64 * 1024

// boundedBuffer retains the first limit bytes written and counts the rest.
// Writes never fail so the child is never blocked on a full pipe.
type boundedBuffer struct {
	limit   int
	buf     strings.Builder
	dropped int64
}

func newBoundedBuffer(limit int) *boundedBuffer {
	return &boundedBuffer{limit: limit}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining > 0 {
		if len(p) <= remaining {
			b.buf.Write(p)
		} else {
			b.buf.Write(p[:remaining])
			b.dropped += int64(len(p) - remaining)
		}
	} else {
		b.dropped += int64(len(p))
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	if b.dropped == 0 {
		return b.buf.String()
	}
	return b.buf.String() + fmt.Sprintf("\n[truncated %d bytes]", b.dropped)
}

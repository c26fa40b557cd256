package process

import "sync"

// limitedBuffer is an io.Writer that retains the last max bytes of a
// helper's stderr for error reports.
type limitedBuffer struct {
	mu   sync.Mutex
	max  int
	ring []byte
	next int  // write position once the ring is full
	full bool // ring has wrapped at least once
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(p)
	if b.max <= 0 {
		return n, nil
	}
	if len(p) > b.max {
		p = p[len(p)-b.max:]
	}
	for len(p) > 0 {
		if !b.full {
			room := b.max - len(b.ring)
			take := min(room, len(p))
			b.ring = append(b.ring, p[:take]...)
			p = p[take:]
			if len(b.ring) == b.max {
				b.full = true
			}
			continue
		}
		c := copy(b.ring[b.next:], p)
		b.next = (b.next + c) % b.max
		p = p[c:]
	}
	return n, nil
}

// String returns the retained bytes in write order.
func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		return string(b.ring)
	}
	return string(b.ring[b.next:]) + string(b.ring[:b.next])
}

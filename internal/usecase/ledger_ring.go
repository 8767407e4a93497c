package usecase

import "FinCollect/internal/domain/models"

// ledgerRing is a FIFO ring with a hard capacity. Reads never reorder or
// refresh entries, so eviction is strictly oldest-first.
type ledgerRing struct {
	buf      []models.CollectedRecord
	head     int // index of the oldest record once the ring is full
	capacity int
}

func newLedgerRing(capacity int) *ledgerRing {
	return &ledgerRing{capacity: capacity}
}

func (r *ledgerRing) len() int { return len(r.buf) }

func (r *ledgerRing) full() bool { return len(r.buf) == r.capacity }

// push appends rec and reports whether the oldest record was evicted.
func (r *ledgerRing) push(rec models.CollectedRecord) bool {
	if len(r.buf) < r.capacity {
		r.buf = append(r.buf, rec)
		return false
	}
	r.buf[r.head] = rec
	r.head = (r.head + 1) % r.capacity
	return true
}

// at returns the i-th record counted from the oldest.
func (r *ledgerRing) at(i int) models.CollectedRecord {
	return r.buf[(r.head+i)%len(r.buf)]
}

// snapshot copies records oldest first.
func (r *ledgerRing) snapshot() []models.CollectedRecord {
	out := make([]models.CollectedRecord, len(r.buf))
	n := copy(out, r.buf[r.head:])
	copy(out[n:], r.buf[:r.head])
	return out
}

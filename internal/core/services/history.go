package services

import "livemon/internal/core/domain"

// historyRing is a fixed-capacity buffer of metrics snapshots. When full,
// appending evicts the oldest entry.
type historyRing struct {
	buf   []domain.SystemMetrics
	start int
	size  int
}

func newHistoryRing(capacity int) *historyRing {
	if capacity < 1 {
		capacity = 1
	}
	return &historyRing{buf: make([]domain.SystemMetrics, capacity)}
}

func (r *historyRing) append(m domain.SystemMetrics) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = m
		r.size++
		return
	}
	r.buf[r.start] = m
	r.start = (r.start + 1) % len(r.buf)
}

// tail returns up to limit most recent entries, oldest-first.
// limit <= 0 returns everything retained.
func (r *historyRing) tail(limit int) []domain.SystemMetrics {
	n := r.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.SystemMetrics, 0, n)
	for i := r.size - n; i < r.size; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

func (r *historyRing) latest() (domain.SystemMetrics, bool) {
	if r.size == 0 {
		return domain.SystemMetrics{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

func (r *historyRing) len() int { return r.size }

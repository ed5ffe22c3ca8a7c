package pipeline

import "sync"

// Progress is a point-in-time snapshot of the running totals.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100.0
	}
	return float64(p.Done) / float64(p.Total) * 100
}

// Tracker keeps the done/total counters under a single lock. Total is set
// once before any chunk starts; done only grows, by completed-batch sizes,
// and never exceeds total.
type Tracker struct {
	mu    sync.Mutex
	done  int
	total int
}

func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	t.total = total
	t.mu.Unlock()
}

func (t *Tracker) Add(n int) {
	t.mu.Lock()
	t.done += n
	if t.done > t.total {
		t.done = t.total
	}
	t.mu.Unlock()
}

func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Progress{Done: t.done, Total: t.total}
}

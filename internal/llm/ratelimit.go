package llm

import (
	"sync"
	"time"
)

// RateWindow admits at most limit calls per community within a rolling
// window. A denied call is not recorded, so it never pushes the window out.
type RateWindow struct {
	mu     sync.Mutex
	calls  map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRateWindow(limit int, window time.Duration) *RateWindow {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateWindow{
		calls:  make(map[string][]time.Time),
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow prunes expired timestamps for the community, then either records
// the call and returns true, or returns false without recording it.
func (w *RateWindow) Allow(community string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	recent := w.calls[community][:0]
	for _, t := range w.calls[community] {
		if now.Sub(t) < w.window {
			recent = append(recent, t)
		}
	}

	if len(recent) >= w.limit {
		w.calls[community] = recent
		return false
	}

	w.calls[community] = append(recent, now)
	return true
}

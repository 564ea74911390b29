package server

// Pacer decides when to prefetch and when to surface the next question from a
// stream of playback-position samples. Playback time is bucketed into windows
// of intervalSeconds; window id floor(t/interval) maps to at most one
// generation request and at most one surfaced question, so jittery sampling
// can never double-fire a window.

type PaceAction int

const (
	PaceNone PaceAction = iota
	PacePrefetch
	PaceShow
)

type PaceDecision struct {
	Action    PaceAction
	WindowID  int
	WindowEnd float64
}

type Pacer struct {
	interval  float64
	threshold float64
	requested map[int]bool
	ready     map[int]bool
	consumed  map[int]bool
	attempts  map[int]int
}

// NewPacer builds a pacer for the given question interval. The prefetch
// threshold scales with the interval (a quarter of it) and is capped so long
// intervals don't request absurdly early.
func NewPacer(intervalSeconds, prefetchCapSeconds int) *Pacer {
	interval := float64(intervalSeconds)
	threshold := interval / 4
	if cap := float64(prefetchCapSeconds); cap > 0 && threshold > cap {
		threshold = cap
	}
	return &Pacer{
		interval:  interval,
		threshold: threshold,
		requested: make(map[int]bool),
		ready:     make(map[int]bool),
		consumed:  make(map[int]bool),
		attempts:  make(map[int]int),
	}
}

// Observe feeds one playback-position sample and returns at most one decision.
// Surfacing the previous window takes priority over prefetching the next one,
// so a sample that lands exactly on a boundary pauses before it prefetches.
func (p *Pacer) Observe(t float64) PaceDecision {
	if p == nil || p.interval <= 0 || t < 0 {
		return PaceDecision{Action: PaceNone}
	}
	id := int(t / p.interval)
	if prev := id - 1; prev >= 0 && p.ready[prev] && !p.consumed[prev] {
		p.consumed[prev] = true
		return PaceDecision{Action: PaceShow, WindowID: prev, WindowEnd: float64(id) * p.interval}
	}
	boundary := float64(id+1) * p.interval
	if boundary-t <= p.threshold && !p.requested[id] && !p.consumed[id] {
		p.requested[id] = true
		p.attempts[id]++
		return PaceDecision{Action: PacePrefetch, WindowID: id, WindowEnd: boundary}
	}
	return PaceDecision{Action: PaceNone}
}

// MarkReady records that generation for a window completed. It reports false
// when the result is stale (the window was already consumed or never
// requested) and must be discarded by the caller.
func (p *Pacer) MarkReady(windowID int) bool {
	if p == nil || p.consumed[windowID] || !p.requested[windowID] {
		return false
	}
	p.ready[windowID] = true
	return true
}

// Fail re-arms a window after a failed generation attempt so a later sample
// can request it again. Returns the number of attempts made so far.
func (p *Pacer) Fail(windowID int) int {
	if p == nil {
		return 0
	}
	delete(p.requested, windowID)
	delete(p.ready, windowID)
	return p.attempts[windowID]
}

// Consumed reports whether a window's question has already been surfaced.
func (p *Pacer) Consumed(windowID int) bool {
	return p != nil && p.consumed[windowID]
}

// MarkConsumed records a window as already surfaced. Used when rebuilding a
// game from storage so old windows never fire again.
func (p *Pacer) MarkConsumed(windowID int) {
	if p == nil {
		return
	}
	p.consumed[windowID] = true
}

package crawler

import (
	"log/slog"
	"sync"
)

// pending counts the outstanding requests of the active keyword.
// Every mutation happens under mu; reaching zero closes drained exactly once.
type pending struct {
	mu        sync.Mutex
	keyword   string
	count     int
	active    bool
	drained   chan struct{}
	anomalies int

	logger   *slog.Logger
	onChange func(count int)
	onDrift  func()
}

func newPending(logger *slog.Logger) *pending {
	return &pending{logger: logger}
}

// begin activates keyword with its root request counted.
func (p *pending) begin(keyword string) <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.keyword = keyword
	p.count = 1
	p.active = true
	p.drained = make(chan struct{})
	p.changed()
	return p.drained
}

// spawn counts one more request. It must run before the spawning request completes.
func (p *pending) spawn() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		p.anomaly("spawn after drain")
		return
	}
	p.count++
	p.changed()
}

// complete resolves one request and reports whether it drained the keyword.
func (p *pending) complete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		p.anomaly("completion after drain")
		return false
	}
	if p.count <= 0 {
		p.count = 0
		p.anomaly("pending count below zero")
		return false
	}

	p.count--
	p.changed()
	if p.count > 0 {
		return false
	}

	p.active = false
	close(p.drained)
	return true
}

func (p *pending) snapshot() (count int, active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count, p.active
}

func (p *pending) anomalyCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.anomalies
}

func (p *pending) changed() {
	if p.onChange != nil {
		p.onChange(p.count)
	}
}

func (p *pending) anomaly(reason string) {
	p.anomalies++
	if p.logger != nil {
		p.logger.Warn("accounting anomaly", "reason", reason, "keyword", p.keyword, "count", p.count)
	}
	if p.onDrift != nil {
		p.onDrift()
	}
}

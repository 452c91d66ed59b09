package telemetry

import (
	"io"
	"sync"
	"time"

	"github.com/Eudes8/Compta/output"
)

// DefaultSlowThreshold marks operations worth highlighting in reports.
const DefaultSlowThreshold = 100 * time.Millisecond

// DefaultMaxRoots bounds how many top-level operations a long editing
// session keeps.
const DefaultMaxRoots = 64

// TimingCollector builds a forest of timed operations. A timer started while
// another top-level timer is still running nests under it; otherwise it starts
// a new tree. Only the most recent trees are kept.
type TimingCollector struct {
	mu       sync.Mutex
	roots    []*timerNode
	current  *timerNode
	now      func() time.Time
	slow     time.Duration
	maxRoots int
}

type timerNode struct {
	name     string
	start    time.Time
	end      time.Time
	children []*timerNode
	parent   *timerNode
}

func (n *timerNode) duration() time.Duration {
	if n.end.IsZero() {
		return 0
	}
	return n.end.Sub(n.start)
}

// TimingOption configures a TimingCollector.
type TimingOption func(*TimingCollector)

// WithClock sets the time source.
func WithClock(now func() time.Time) TimingOption {
	return func(c *TimingCollector) {
		c.now = now
	}
}

// WithSlowThreshold sets the duration from which operations are highlighted.
func WithSlowThreshold(d time.Duration) TimingOption {
	return func(c *TimingCollector) {
		c.slow = d
	}
}

// WithMaxRoots sets how many top-level operations are kept.
func WithMaxRoots(n int) TimingOption {
	return func(c *TimingCollector) {
		c.maxRoots = n
	}
}

// NewTimingCollector creates a new timing collector.
func NewTimingCollector(opts ...TimingOption) *TimingCollector {
	c := &TimingCollector{
		now:      time.Now,
		slow:     DefaultSlowThreshold,
		maxRoots: DefaultMaxRoots,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins timing an operation.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{name: name, start: c.now()}
	if c.current == nil {
		c.roots = append(c.roots, node)
		if c.maxRoots > 0 && len(c.roots) > c.maxRoots {
			c.roots = c.roots[len(c.roots)-c.maxRoots:]
		}
	} else {
		node.parent = c.current
		c.current.children = append(c.current.children, node)
	}
	c.current = node

	return &timingTimer{collector: c, node: node}
}

// Report writes every kept tree, oldest first.
func (c *TimingCollector) Report(w io.Writer, styles *output.Styles) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, root := range c.roots {
		formatTimingTree(w, root, c.slow, styles)
	}
}

// Slowest returns the name and duration of the slowest finished top-level
// operation.
func (c *TimingCollector) Slowest() (string, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var found *timerNode
	for _, root := range c.roots {
		if root.end.IsZero() {
			continue
		}
		if found == nil || root.duration() > found.duration() {
			found = root
		}
	}
	if found == nil {
		return "", 0, false
	}
	return found.name, found.duration(), true
}

type timingTimer struct {
	collector *TimingCollector
	node      *timerNode
}

func (t *timingTimer) End() {
	c := t.collector
	c.mu.Lock()
	defer c.mu.Unlock()

	if !t.node.end.IsZero() {
		return
	}
	t.node.end = c.now()
	if c.current == t.node {
		c.current = t.node.parent
	}
}

func (t *timingTimer) Child(name string) Timer {
	c := t.collector
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{
		name:   name,
		start:  c.now(),
		parent: t.node,
	}
	t.node.children = append(t.node.children, node)

	return &timingTimer{collector: c, node: node}
}

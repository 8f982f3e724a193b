package emulator

import (
	"fmt"
	"sync"
)

// Resource names a kind of device handle tracked by the Ledger
type Resource int

const (
	ResContext Resource = iota
	ResProgram
	ResKernel
	ResQueue
	ResBuffer
)

var resourceNames = [...]string{"context", "program", "kernel", "queue", "buffer"}

func (r Resource) String() string {
	if int(r) < len(resourceNames) {
		return resourceNames[r]
	}
	return fmt.Sprintf("Resource(%d)", int(r))
}

// Ledger counts acquisitions and releases of every emulated handle.
// A clean run ends with Outstanding() == 0 and all violation counters at 0.
type Ledger struct {
	mu              sync.Mutex
	acquired        map[Resource]int
	released        map[Resource]int
	doubleReleases  int
	useAfterRelease int
	orderViolations int
}

func newLedger() *Ledger {
	return &Ledger{
		acquired: make(map[Resource]int),
		released: make(map[Resource]int),
	}
}

func (l *Ledger) acquire(r Resource) {
	l.mu.Lock()
	l.acquired[r]++
	l.mu.Unlock()
}

func (l *Ledger) release(r Resource) {
	l.mu.Lock()
	l.released[r]++
	l.mu.Unlock()
}

func (l *Ledger) doubleRelease() {
	l.mu.Lock()
	l.doubleReleases++
	l.mu.Unlock()
}

func (l *Ledger) staleUse() {
	l.mu.Lock()
	l.useAfterRelease++
	l.mu.Unlock()
}

func (l *Ledger) outOfOrder(n int) {
	l.mu.Lock()
	l.orderViolations += n
	l.mu.Unlock()
}

// Acquired returns the number of successful acquisitions of r
func (l *Ledger) Acquired(r Resource) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.acquired[r]
}

// Released returns the number of first-time releases of r
func (l *Ledger) Released(r Resource) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released[r]
}

// TotalAcquired sums Acquired over every resource kind
func (l *Ledger) TotalAcquired() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, v := range l.acquired {
		n += v
	}
	return n
}

// TotalReleased sums Released over every resource kind
func (l *Ledger) TotalReleased() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, v := range l.released {
		n += v
	}
	return n
}

// Outstanding is the number of acquired handles not yet released
func (l *Ledger) Outstanding() int {
	return l.TotalAcquired() - l.TotalReleased()
}

// DoubleReleases counts Release calls on handles that were already released
func (l *Ledger) DoubleReleases() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doubleReleases
}

// UseAfterRelease counts operations attempted on released handles or on
// handles whose context was released
func (l *Ledger) UseAfterRelease() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.useAfterRelease
}

// OrderViolations counts derived handles still alive when their parent
// (context or program) was released
func (l *Ledger) OrderViolations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.orderViolations
}

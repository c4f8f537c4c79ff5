// Package ledger keeps the observable protein counters of a simulation: how
// many proteins of each kind were captured, and a smoothed level of the live
// proteins of each kind. Subscribers are told about every change.
package ledger

import (
	"math"
	"sort"
	"sync"

	"github.com/signalsfoundry/gene-expression-sim/model"
)

// DefaultAveragingTime is the time constant of the protein level average, in
// seconds.
const DefaultAveragingTime = 5.0

// EventType indicates what kind of change happened in the ledger.
type EventType int

const (
	EventProteinCaptured EventType = iota
	EventLevelsUpdated
	EventReset
)

func (t EventType) String() string {
	switch t {
	case EventProteinCaptured:
		return "protein_captured"
	case EventLevelsUpdated:
		return "levels_updated"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers when a counter changes.
type Event struct {
	Type EventType
	// Protein and Captured are set for EventProteinCaptured.
	Protein  model.ProteinKind
	Captured int
	// Levels is a copy of every smoothed level, set for EventLevelsUpdated.
	Levels map[model.ProteinKind]float64
}

// Ledger is a thread-safe store of protein counters. The simulation writes
// from its stepping goroutine while UIs and metrics read from others.
type Ledger struct {
	mu sync.RWMutex

	averagingTime float64
	captured      map[model.ProteinKind]int
	levels        map[model.ProteinKind]float64

	nextSub int
	subs    []subscription
}

type subscription struct {
	id int
	fn func(Event)
}

// New constructs an empty ledger. A non-positive averaging time selects
// DefaultAveragingTime.
func New(averagingTime float64) *Ledger {
	if averagingTime <= 0 {
		averagingTime = DefaultAveragingTime
	}
	return &Ledger{
		averagingTime: averagingTime,
		captured:      make(map[model.ProteinKind]int),
		levels:        make(map[model.ProteinKind]float64),
	}
}

// RecordCapture counts one captured protein and returns the new total for its
// kind.
func (l *Ledger) RecordCapture(kind model.ProteinKind) int {
	l.mu.Lock()
	l.captured[kind]++
	n := l.captured[kind]
	event := Event{Type: EventProteinCaptured, Protein: kind, Captured: n}
	subs := l.snapshotSubs()
	l.mu.Unlock()

	notify(subs, event)
	return n
}

// Captured returns how many proteins of kind were captured.
func (l *Ledger) Captured(kind model.ProteinKind) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.captured[kind]
}

// CapturedCounts returns a copy of every captured count.
func (l *Ledger) CapturedCounts() map[model.ProteinKind]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[model.ProteinKind]int, len(l.captured))
	for k, v := range l.captured {
		out[k] = v
	}
	return out
}

// UpdateLevels folds the current live protein counts into the smoothed levels.
// Kinds tracked before but absent from live decay toward zero.
func (l *Ledger) UpdateLevels(live map[model.ProteinKind]int, dt float64) {
	if dt <= 0 {
		return
	}
	alpha := 1 - math.Exp(-dt/l.averagingTime)

	l.mu.Lock()
	for k, n := range live {
		if _, ok := l.levels[k]; !ok {
			l.levels[k] = 0
		}
		l.levels[k] += alpha * (float64(n) - l.levels[k])
	}
	for k, v := range l.levels {
		if _, ok := live[k]; !ok {
			l.levels[k] = v - alpha*v
		}
	}
	event := Event{Type: EventLevelsUpdated, Levels: l.copyLevels()}
	subs := l.snapshotSubs()
	l.mu.Unlock()

	notify(subs, event)
}

// Level returns the smoothed level of kind.
func (l *Ledger) Level(kind model.ProteinKind) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.levels[kind]
}

// Levels returns a copy of every smoothed level.
func (l *Ledger) Levels() map[model.ProteinKind]float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.copyLevels()
}

// AverageLevel returns the mean smoothed level across kinds, or 0 when no kind
// has been seen.
func (l *Ledger) AverageLevel() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.levels) == 0 {
		return 0
	}
	var sum float64
	for _, v := range l.levels {
		sum += v
	}
	return sum / float64(len(l.levels))
}

// Kinds returns every protein kind the ledger knows about, sorted.
func (l *Ledger) Kinds() []model.ProteinKind {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[model.ProteinKind]struct{}, len(l.captured)+len(l.levels))
	for k := range l.captured {
		seen[k] = struct{}{}
	}
	for k := range l.levels {
		seen[k] = struct{}{}
	}
	out := make([]model.ProteinKind, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Reset clears every counter.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.captured = make(map[model.ProteinKind]int)
	l.levels = make(map[model.ProteinKind]float64)
	subs := l.snapshotSubs()
	l.mu.Unlock()

	notify(subs, Event{Type: EventReset})
}

// Subscribe registers a callback for ledger events. It returns an unsubscribe
// function; calling it more than once is harmless.
func (l *Ledger) Subscribe(fn func(Event)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextSub++
	id := l.nextSub
	l.subs = append(l.subs, subscription{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, s := range l.subs {
			if s.id == id {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

func (l *Ledger) copyLevels() map[model.ProteinKind]float64 {
	out := make(map[model.ProteinKind]float64, len(l.levels))
	for k, v := range l.levels {
		out[k] = v
	}
	return out
}

func (l *Ledger) snapshotSubs() []func(Event) {
	subs := make([]func(Event), 0, len(l.subs))
	for _, s := range l.subs {
		subs = append(subs, s.fn)
	}
	return subs
}

// notify runs outside the lock so subscribers may call back into the ledger.
func notify(subs []func(Event), e Event) {
	for _, fn := range subs {
		fn(e)
	}
}

package ledger

import (
	"math"
	"sync"
	"testing"

	"github.com/signalsfoundry/gene-expression-sim/model"
)

func TestRecordCaptureAndSubscribe(t *testing.T) {
	l := New(0)

	var got []Event
	unsubscribe := l.Subscribe(func(e Event) { got = append(got, e) })

	if n := l.RecordCapture("A"); n != 1 {
		t.Fatalf("RecordCapture = %d, want 1", n)
	}
	if n := l.RecordCapture("A"); n != 2 {
		t.Fatalf("RecordCapture = %d, want 2", n)
	}
	l.RecordCapture("B")

	if len(got) != 3 {
		t.Fatalf("events = %d, want 3", len(got))
	}
	if got[1].Type != EventProteinCaptured || got[1].Protein != "A" || got[1].Captured != 2 {
		t.Fatalf("event = %+v, want capture of A with count 2", got[1])
	}

	unsubscribe()
	unsubscribe()
	l.RecordCapture("B")
	if len(got) != 3 {
		t.Fatalf("events after unsubscribe = %d, want 3", len(got))
	}
	if c := l.CapturedCounts(); c["A"] != 2 || c["B"] != 2 {
		t.Fatalf("CapturedCounts = %v, want A=2 B=2", c)
	}
}

func TestUnsubscribeKeepsOtherSubscribers(t *testing.T) {
	l := New(0)
	var first, second int
	unsubFirst := l.Subscribe(func(Event) { first++ })
	l.Subscribe(func(Event) { second++ })

	unsubFirst()
	l.RecordCapture("A")
	if first != 0 || second != 1 {
		t.Fatalf("first=%d second=%d, want 0 and 1", first, second)
	}
}

func TestUpdateLevelsSmoothsTowardCounts(t *testing.T) {
	l := New(1)

	l.UpdateLevels(map[model.ProteinKind]int{"A": 10}, 1)
	want := 10 * (1 - math.Exp(-1))
	if got := l.Level("A"); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Level(A) = %v, want %v", got, want)
	}

	for i := 0; i < 100; i++ {
		l.UpdateLevels(map[model.ProteinKind]int{"A": 10}, 1)
	}
	if got := l.Level("A"); math.Abs(got-10) > 1e-6 {
		t.Fatalf("Level(A) = %v, want ~10", got)
	}

	// A disappears and decays.
	l.UpdateLevels(map[model.ProteinKind]int{"B": 4}, 1)
	if got := l.Level("A"); got >= 10 {
		t.Fatalf("Level(A) = %v, want decay below 10", got)
	}
	if got := l.AverageLevel(); got <= 0 {
		t.Fatalf("AverageLevel = %v, want > 0", got)
	}
	kinds := l.Kinds()
	if len(kinds) != 2 || kinds[0] != "A" || kinds[1] != "B" {
		t.Fatalf("Kinds = %v, want [A B]", kinds)
	}

	l.UpdateLevels(map[model.ProteinKind]int{"A": 100}, 0)
	if got := l.Level("A"); got >= 10 {
		t.Fatalf("zero dt changed level to %v", got)
	}
}

func TestLevelsEventCarriesCopy(t *testing.T) {
	l := New(1)
	var levels map[model.ProteinKind]float64
	l.Subscribe(func(e Event) {
		if e.Type == EventLevelsUpdated {
			levels = e.Levels
		}
	})
	l.UpdateLevels(map[model.ProteinKind]int{"A": 1}, 1)
	levels["A"] = 99
	if l.Level("A") == 99 {
		t.Fatalf("event levels alias ledger state")
	}
}

func TestReset(t *testing.T) {
	l := New(0)
	l.RecordCapture("A")
	l.UpdateLevels(map[model.ProteinKind]int{"A": 3}, 1)

	var reset bool
	l.Subscribe(func(e Event) { reset = e.Type == EventReset })
	l.Reset()
	if !reset {
		t.Fatalf("no reset event")
	}
	if l.Captured("A") != 0 || l.Level("A") != 0 || l.AverageLevel() != 0 {
		t.Fatalf("counters not cleared")
	}
}

func TestConcurrentAccess(t *testing.T) {
	l := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = l.Captured("A")
			_ = l.Levels()
			_ = l.AverageLevel()
		}()
		go func() {
			defer wg.Done()
			l.RecordCapture("A")
			l.UpdateLevels(map[model.ProteinKind]int{"A": i}, 0.1)
		}()
	}
	wg.Wait()
	if got := l.Captured("A"); got != 10 {
		t.Fatalf("Captured(A) = %d, want 10", got)
	}
}

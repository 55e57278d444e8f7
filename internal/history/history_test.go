package history

import (
	"sync"
	"testing"
	"time"
)

func entryAt(t time.Time, text string) Entry {
	return Entry{Start: t, Duration: time.Second, Language: "en", Text: text}
}

func TestAppendAndSnapshot(t *testing.T) {
	l := New(0)
	base := time.Now()

	l.Append(entryAt(base, "one"))
	l.Append(entryAt(base.Add(time.Second), "two"))

	all := l.Snapshot(0)
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
	if all[0].Text != "one" || all[1].Text != "two" {
		t.Errorf("unexpected order: %q, %q", all[0].Text, all[1].Text)
	}

	last := l.Snapshot(1)
	if len(last) != 1 || last[0].Text != "two" {
		t.Errorf("Snapshot(1) = %+v", last)
	}
}

func TestAppendRestoresOrder(t *testing.T) {
	l := New(0)
	base := time.Now()

	l.Append(entryAt(base.Add(2*time.Second), "late"))
	l.Append(entryAt(base, "early"))
	l.Append(entryAt(base.Add(time.Second), "middle"))

	all := l.Snapshot(0)
	for i := 1; i < len(all); i++ {
		if all[i].Start.Before(all[i-1].Start) {
			t.Fatalf("entries out of order at %d: %v after %v", i, all[i].Start, all[i-1].Start)
		}
	}
	if all[0].Text != "early" || all[2].Text != "late" {
		t.Errorf("unexpected order: %+v", all)
	}
}

func TestMaxEntriesBound(t *testing.T) {
	l := New(5)
	base := time.Now()
	for i := 0; i < 12; i++ {
		l.Append(entryAt(base.Add(time.Duration(i)*time.Second), "x"))
	}
	if l.Len() != 5 {
		t.Errorf("Len = %d, want 5", l.Len())
	}
	all := l.Snapshot(0)
	if !all[0].Start.Equal(base.Add(7 * time.Second)) {
		t.Error("oldest entries should be evicted first")
	}
}

func TestClearIdempotent(t *testing.T) {
	l := New(0)
	l.Append(entryAt(time.Now(), "a"))
	l.Append(entryAt(time.Now(), "b"))

	if n := l.Clear(); n != 2 {
		t.Errorf("first Clear removed %d, want 2", n)
	}
	if n := l.Clear(); n != 0 {
		t.Errorf("second Clear removed %d, want 0", n)
	}
	if l.Len() != 0 {
		t.Error("history not empty after clear")
	}
}

func TestConcurrentAppendSnapshot(t *testing.T) {
	l := New(0)
	base := time.Now()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			l.Append(entryAt(base.Add(time.Duration(i)*time.Millisecond), "entry"))
		}
		close(stop)
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				snap := l.Snapshot(0)
				for i := 1; i < len(snap); i++ {
					if snap[i].Start.Before(snap[i-1].Start) {
						t.Error("snapshot observed out-of-order entries")
						return
					}
				}
				for _, e := range snap {
					if e.Text == "" {
						t.Error("snapshot observed a partial entry")
						return
					}
				}
				select {
				case <-stop:
					return
				default:
				}
			}
		}()
	}

	wg.Wait()
	if l.Len() != 500 {
		t.Errorf("Len = %d, want 500", l.Len())
	}
}

func TestEventsNonBlocking(t *testing.T) {
	l := New(0)
	// Overflow the event buffer with no consumer; Append must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			l.Append(entryAt(time.Now(), "spam"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Append blocked on a full event channel")
	}

	select {
	case ev := <-l.Events():
		if ev.Text != "spam" {
			t.Errorf("unexpected event %+v", ev)
		}
	default:
		t.Error("expected buffered events")
	}
}

func TestRender(t *testing.T) {
	base := time.Now()
	s := Render([]Entry{entryAt(base, "hello"), entryAt(base, "world")})
	if s != "hello\nworld" {
		t.Errorf("Render = %q", s)
	}
	if Render(nil) != "" {
		t.Error("Render(nil) should be empty")
	}
}

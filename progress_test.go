package raxftp

import (
	"testing"
	"time"
)

func TestProgressPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bytes int64
		total int64
		want  float64
	}{
		{"zero byte transfer", 0, 0, 100},
		{"unknown total", 500, -1, 0},
		{"halfway", 50, 100, 50},
		{"complete", 100, 100, 100},
		{"overshoot capped", 150, 100, 100},
		{"start", 0, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Progress{Bytes: tt.bytes, Total: tt.total}
			if got := p.Percent(); got != tt.want {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProgressRate(t *testing.T) {
	t.Parallel()

	p := Progress{Bytes: 1000, Elapsed: 2 * time.Second}
	if got := p.Rate(); got != 500 {
		t.Errorf("Rate() = %v, want 500", got)
	}

	p = Progress{Bytes: 1000}
	if got := p.Rate(); got != 0 {
		t.Errorf("Rate() with zero elapsed = %v, want 0", got)
	}
}

func TestProgressTracker(t *testing.T) {
	t.Parallel()

	var events []Progress
	tr := newProgressTracker("file.txt", 100, func(p Progress) {
		events = append(events, p)
	})

	tr.add(40)
	tr.add(60)
	tr.finish()

	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Bytes != 40 || events[1].Bytes != 100 {
		t.Errorf("running bytes = %d, %d", events[0].Bytes, events[1].Bytes)
	}
	final := events[2]
	if final.Path != "file.txt" || final.Total != 100 || final.Percent() != 100 {
		t.Errorf("final = %+v", final)
	}
}

// With no announced size the total resolves to the byte count at the end,
// so the last event always reads complete.
func TestProgressTrackerUnknownTotal(t *testing.T) {
	t.Parallel()

	var events []Progress
	tr := newProgressTracker("stream", -1, func(p Progress) {
		events = append(events, p)
	})

	tr.add(8192)
	tr.finish()

	if events[0].Percent() != 0 {
		t.Errorf("mid-stream Percent = %v, want 0", events[0].Percent())
	}
	final := events[len(events)-1]
	if final.Total != 8192 || final.Percent() != 100 {
		t.Errorf("final = %+v, want resolved total", final)
	}
}

func TestProgressTrackerNilObserver(t *testing.T) {
	t.Parallel()

	tr := newProgressTracker("file.txt", 10, nil)
	tr.add(10)
	tr.finish()
}

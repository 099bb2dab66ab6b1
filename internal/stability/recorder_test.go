package stability

import (
	"fmt"
	"testing"
	"time"
)

func TestHistoryCapacityEviction(t *testing.T) {
	h := NewHistory(5)

	for i := 0; i < 9; i++ {
		h.Record([]string{fmt.Sprintf("%02X", i)}, nil, at(float64(i)))
	}

	if h.Len() != 5 {
		t.Fatalf("Len = %d, want 5", h.Len())
	}
	tail := h.Tail(0)
	if tail[0].UID != "04" || tail[len(tail)-1].UID != "08" {
		t.Fatalf("retained %v..%v, want 04..08 (FIFO eviction)", tail[0].UID, tail[len(tail)-1].UID)
	}
}

func TestHistoryDualDetectionPerTick(t *testing.T) {
	h := NewHistory(DefaultHistorySize)

	h.Record([]string{"04AA", "04BB"}, nil, at(0))
	h.Record(nil, nil, at(0.12))
	h.Record([]string{"04AA"}, nil, at(0.24))

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (two dual + one single, empty polls record nothing)", h.Len())
	}
}

func TestHistoryRecentWindow(t *testing.T) {
	h := NewHistory(DefaultHistorySize)
	for i := 0; i < 20; i++ {
		h.Record([]string{"04AA"}, nil, at(float64(i)))
	}

	now := at(19)
	recent := h.Recent(now, 10*time.Second)
	if len(recent) != 11 {
		t.Fatalf("recent count = %d, want 11 (boundary inclusive)", len(recent))
	}
	if got := now.Sub(recent[0].Time); got > 10*time.Second {
		t.Fatalf("oldest recent observation is %v old, want <= 10s", got)
	}

	if got := h.Recent(at(100), 10*time.Second); len(got) != 0 {
		t.Fatalf("recent after long silence = %d observations, want 0", len(got))
	}
}

func TestHistoryLabelResolution(t *testing.T) {
	h := NewHistory(DefaultHistorySize)
	resolve := resolver(map[string]string{"04AA": "A♠"})

	h.Record([]string{"04AA", "04BB"}, resolve, at(0))

	tail := h.Tail(0)
	if tail[0].Label != "A♠" {
		t.Fatalf("mapped label = %q, want A♠", tail[0].Label)
	}
	if tail[1].Label != "" {
		t.Fatalf("unmapped label = %q, want empty", tail[1].Label)
	}
}

func TestHistoryTailLimit(t *testing.T) {
	h := NewHistory(DefaultHistorySize)
	for i := 0; i < 10; i++ {
		h.Record([]string{fmt.Sprintf("%02X", i)}, nil, at(float64(i)))
	}

	tail := h.Tail(3)
	if len(tail) != 3 {
		t.Fatalf("Tail(3) len = %d, want 3", len(tail))
	}
	if tail[0].UID != "07" || tail[2].UID != "09" {
		t.Fatalf("Tail(3) = %v..%v, want 07..09", tail[0].UID, tail[2].UID)
	}
}

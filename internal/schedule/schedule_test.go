package schedule

import (
	"reflect"
	"testing"
	"time"
)

func TestNextWeekday(t *testing.T) {
	loc := time.UTC

	// Same day before target time -> same day trigger.
	now := time.Date(2026, 2, 20, 9, 0, 0, 0, loc) // Friday
	next := nextWeekday(now, time.Friday, 10, 0)
	want := time.Date(2026, 2, 20, 10, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("unexpected nextWeekday same-day result: got %v want %v", next, want)
	}

	// Same day after target time -> next week.
	now = time.Date(2026, 2, 20, 11, 0, 0, 0, loc) // Friday
	next = nextWeekday(now, time.Friday, 10, 0)
	want = time.Date(2026, 2, 27, 10, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("unexpected nextWeekday rollover result: got %v want %v", next, want)
	}

	// Different day -> nearest upcoming requested weekday.
	now = time.Date(2026, 2, 18, 12, 0, 0, 0, loc) // Wednesday
	next = nextWeekday(now, time.Friday, 10, 0)
	want = time.Date(2026, 2, 20, 10, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("unexpected nextWeekday cross-day result: got %v want %v", next, want)
	}

	// Requested weekday earlier in the week -> wraps to next week.
	now = time.Date(2026, 2, 18, 12, 0, 0, 0, loc) // Wednesday
	next = nextWeekday(now, time.Monday, 9, 0)
	want = time.Date(2026, 2, 23, 9, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("unexpected nextWeekday wrap result: got %v want %v", next, want)
	}
}

func TestIsLikelySlackID(t *testing.T) {
	tests := []struct {
		val  string
		want bool
	}{
		{"U12345678", true},
		{"W0ABCDEF12", true},
		{"alice", false},
		{"U123", false},
		{"U12345678x", false},
		{"X12345678", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isLikelySlackID(tt.val); got != tt.want {
			t.Errorf("isLikelySlackID(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}

func TestUniqueStrings(t *testing.T) {
	got := uniqueStrings([]string{"U111", "U222", "U111", "", "U333", "U222"})
	want := []string{"U111", "U222", "U333"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("uniqueStrings = %v, want %v", got, want)
	}
}

func TestDayMapCoversEveryWeekday(t *testing.T) {
	if len(dayMap) != 7 {
		t.Fatalf("dayMap has %d entries, want 7", len(dayMap))
	}
	if dayMap["monday"] != time.Monday || dayMap["sunday"] != time.Sunday {
		t.Fatalf("dayMap mismatch: %v", dayMap)
	}
}

package namematch

import (
	"errors"
	"testing"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     string
	}{
		{"TILE-M1_R1C1.TIF", "-M", "-P", "TILE-P1_R1C1.TIF"},
		{"SCENE_MSI_001.TIF", "_MSI", "_PAN", "SCENE_PAN_001.TIF"},
		{"NOMARKER.TIF", "-M", "-P", "NOMARKER.TIF"},
		{"KEEP.TIF", "", "-P", "KEEP.TIF"},
	}
	for _, tt := range tests {
		if got := Substitute(tt.name, tt.from, tt.to); got != tt.want {
			t.Errorf("Substitute(%q, %q, %q) = %q, want %q", tt.name, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestClosestExactMatchWins(t *testing.T) {
	pool := []string{"A/PAN/TILE-P1_VERY_CLOSE.TIF", "A/PAN/TILE-P1.TIF"}
	got, err := Closest("A/PAN/TILE-P1.TIF", pool)
	if err != nil {
		t.Fatalf("Closest: %v", err)
	}
	if got != "A/PAN/TILE-P1.TIF" {
		t.Errorf("exact match not preferred, got %q", got)
	}
}

func TestClosestFuzzy(t *testing.T) {
	// Guessed name does not exist verbatim; the real file differs by a
	// vendor suffix.
	pool := []string{
		"A/PAN/09NOV12-P1_R1C1-052.TIF",
		"A/PAN/09NOV12-P2_R2C2-052.TIF",
	}
	got, err := Closest("A/PAN/09NOV12-P1_R1C1.TIF", pool)
	if err != nil {
		t.Fatalf("Closest: %v", err)
	}
	if got != pool[0] {
		t.Errorf("Closest = %q, want %q", got, pool[0])
	}
}

func TestClosestEmptyPool(t *testing.T) {
	if _, err := Closest("anything", nil); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestClosestRejectsDistantNames(t *testing.T) {
	pool := []string{"zzzz/qqqq/xxxx.bin"}
	if _, err := Closest("A/PAN/TILE-P1.TIF", pool); !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for dissimilar pool, got %v", err)
	}
}

func TestClosestTieKeepsPoolOrder(t *testing.T) {
	// Equidistant candidates resolve to the earliest pool entry.
	pool := []string{"TILE-PA.TIF", "TILE-PB.TIF"}
	got, err := Closest("TILE-PX.TIF", pool)
	if err != nil {
		t.Fatalf("Closest: %v", err)
	}
	if got != "TILE-PA.TIF" {
		t.Errorf("tie broken unexpectedly: %q", got)
	}
}

package domain

import (
	"testing"
	"time"
)

func TestRegenerateFullPoolClearsTimer(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	stale := now.Add(-time.Hour)

	lives, next := Regenerate(MaxLives, &stale, now)
	if lives != MaxLives || next != nil {
		t.Fatalf("expected full pool with nil timer, got lives=%d next=%v", lives, next)
	}
}

func TestRegenerateUnarmedTimerIsNoop(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	lives, next := Regenerate(4, nil, now)
	if lives != 4 || next != nil {
		t.Fatalf("expected unchanged state, got lives=%d next=%v", lives, next)
	}
}

func TestRegenerateBeforeDueTime(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(time.Minute)

	lives, next := Regenerate(4, &due, now)
	if lives != 4 {
		t.Fatalf("expected 4 lives, got %d", lives)
	}
	if next == nil || !next.Equal(due) {
		t.Fatalf("expected timer unchanged, got %v", next)
	}
}

func TestRegenerateCatchesUpWholePeriods(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	// Due 2.5 intervals ago: the due life plus two whole elapsed periods.
	due := now.Add(-2*RegenInterval - RegenInterval/2)

	lives, next := Regenerate(3, &due, now)
	if lives != 6 {
		t.Fatalf("expected 6 lives, got %d", lives)
	}
	want := due.Add(3 * RegenInterval)
	if next == nil || !next.Equal(want) {
		t.Fatalf("expected next regen at %v, got %v", want, next)
	}
	if !next.After(now) {
		t.Fatalf("next regen must be in the future, got %v (now %v)", next, now)
	}
}

func TestRegenerateCapsAtCeiling(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-100 * RegenInterval)

	lives, next := Regenerate(1, &due, now)
	if lives != MaxLives {
		t.Fatalf("expected ceiling %d, got %d", MaxLives, lives)
	}
	if next != nil {
		t.Fatalf("expected nil timer at ceiling, got %v", next)
	}
}

func TestRegenerateIsIdempotentForSameNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-30 * time.Minute)

	lives1, next1 := Regenerate(5, &due, now)
	lives2, next2 := Regenerate(lives1, next1, now)
	if lives1 != lives2 {
		t.Fatalf("second application changed lives: %d -> %d", lives1, lives2)
	}
	if (next1 == nil) != (next2 == nil) || (next1 != nil && !next1.Equal(*next2)) {
		t.Fatalf("second application changed timer: %v -> %v", next1, next2)
	}
}

func TestRegenerateNeverDecreasesLives(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for lives := 0; lives <= MaxLives; lives++ {
		for _, offset := range []time.Duration{-10 * RegenInterval, -RegenInterval, -1, 0, time.Hour} {
			due := now.Add(offset)
			got, _ := Regenerate(lives, &due, now)
			if got < lives || got > MaxLives {
				t.Fatalf("lives=%d offset=%v: got %d out of bounds", lives, offset, got)
			}
		}
	}
}

func TestArmLifeTimer(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	if next := ArmLifeTimer(MaxLives, nil, now); next != nil {
		t.Fatalf("full pool must not arm a timer, got %v", next)
	}

	armed := now.Add(time.Hour)
	if next := ArmLifeTimer(5, &armed, now); next == nil || !next.Equal(armed) {
		t.Fatalf("armed timer must keep ticking, got %v", next)
	}

	next := ArmLifeTimer(9, nil, now)
	if next == nil || !next.Equal(now.Add(RegenInterval)) {
		t.Fatalf("expected timer armed %v ahead, got %v", RegenInterval, next)
	}
}

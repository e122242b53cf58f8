package domain

import "time"

// Regenerate applies time-based life regeneration and returns the new life
// count and next-regeneration time. It is a pure function of its inputs:
// calling it twice with the same now yields the same result, which lets both
// the lazy read path and the background sweep share it safely.
//
// A nil nextLifeAt means no regeneration is pending. The timer is armed on the
// first life loss (see ArmLifeTimer), not on reads, so a full user always
// carries a nil timer. When more than one whole interval has elapsed the
// function catches up all of them in one call.
func Regenerate(lives int, nextLifeAt *time.Time, now time.Time) (int, *time.Time) {
	if lives >= MaxLives {
		return MaxLives, nil
	}
	if nextLifeAt == nil || now.Before(*nextLifeAt) {
		return lives, nextLifeAt
	}

	elapsed := int(now.Sub(*nextLifeAt)/RegenInterval) + 1
	lives += elapsed
	if lives >= MaxLives {
		return MaxLives, nil
	}
	next := nextLifeAt.Add(time.Duration(elapsed) * RegenInterval)
	return lives, &next
}

// ArmLifeTimer returns the next-regeneration time after a life loss. An
// already armed timer keeps ticking; a life lost at full pool starts one.
func ArmLifeTimer(lives int, nextLifeAt *time.Time, now time.Time) *time.Time {
	if lives >= MaxLives {
		return nil
	}
	if nextLifeAt != nil {
		return nextLifeAt
	}
	next := now.Add(RegenInterval)
	return &next
}

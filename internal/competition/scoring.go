package competition

import "time"

// Score computes the points awarded for a correct answer submitted elapsed
// time after the question was posted. Each whole minute of delay subtracts
// lossPerMinute from basePoints; partial minutes do not count. The result
// never goes below zero, so a slow correct answer is worth nothing rather
// than a penalty.
func Score(elapsed time.Duration, basePoints, lossPerMinute int) int {
	if elapsed < 0 {
		elapsed = 0
	}
	lost := int(elapsed / time.Minute) * lossPerMinute
	if lost > basePoints {
		lost = basePoints
	}
	return basePoints - lost
}
